package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/announcer/internal/command"
	"github.com/hammamikhairi/announcer/internal/display"
	"github.com/hammamikhairi/announcer/internal/schedule"
	"github.com/hammamikhairi/announcer/internal/status"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler with the operator console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := setup(flags)
			if err != nil {
				return err
			}
			defer closeLog()

			rt, err := newRuntime(cfg, log)
			if err != nil {
				return err
			}
			return runConsole(cmd.Context(), rt, flags.quiet)
		},
	}
}

func runConsole(parent context.Context, rt *runtime, quiet bool) error {
	if parent == nil {
		parent = context.Background()
	}
	// Cancelled when the UI quits.
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt)
	defer cancel()

	ui := display.NewUI(rt.engine)
	printer := status.NewPrinter(rt.log, ui.Printf, status.WithQuiet(quiet))
	rt.bus.Subscribe("printer", printer.Handle)
	rt.bus.Subscribe("display", ui.HandleEvent)

	if err := rt.loadSchedule(ctx); err != nil {
		rt.log.Error("loading schedule %s: %v", rt.cfg.Schedule.File, err)
		fmt.Fprintf(os.Stderr, "warning: schedule not loaded: %v\n", err)
	}

	rt.engine.Start(ctx)
	go rt.checker.Run(ctx)

	if rt.cfg.Schedule.Watch {
		watcher := schedule.NewFileWatcher(rt.cfg.Schedule.File, func(ctx context.Context) {
			if err := rt.loadSchedule(ctx); err != nil {
				ui.PrintUrgent(fmt.Sprintf("Schedule reload failed: %v", err))
				return
			}
			ui.PrintHint("Schedule reloaded.")
		}, rt.log.WithPrefix("watch"))
		go func() {
			if err := watcher.Run(ctx); err != nil {
				rt.log.Error("schedule watcher: %v", err)
			}
		}()
	}

	app := &consoleApp{
		rt:     rt,
		parser: command.NewKeywordParser(rt.log),
		out:    ui,
	}

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type text to announce it live, 'help' for commands, 'quit' to exit."))
	fmt.Println()

	go func() {
		ui.WaitReady()
		app.run(ctx, ui.InputChan())
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	uiErr := ui.Run()
	cancel()

	if err := rt.engine.Close(); err != nil {
		rt.log.Error("closing engine: %v", err)
	}
	if uiErr != nil {
		return fmt.Errorf("display: %w", uiErr)
	}
	return nil
}
