package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/status"
)

type sayFlags struct {
	live     bool
	voice    int
	priority int
}

func newSayCmd(flags *globalFlags) *cobra.Command {
	var sf sayFlags

	cmd := &cobra.Command{
		Use:   "say [flags] TEXT...",
		Short: "Play one announcement and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closeLog, err := setup(flags)
			if err != nil {
				return err
			}
			defer closeLog()

			rt, err := newRuntime(cfg, log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
			defer cancel()

			return say(ctx, rt, strings.Join(args, " "), sf, cmd.Flags().Changed("voice"), cmd.Flags().Changed("priority"))
		},
	}

	cmd.Flags().BoolVar(&sf.live, "live", false, "interrupt at live priority instead of queueing")
	cmd.Flags().IntVar(&sf.voice, "voice", 0, "voice index (default live.voice)")
	cmd.Flags().IntVar(&sf.priority, "priority", domain.PriorityScheduled, "queue priority")
	return cmd
}

// say plays text through rt and waits until the engine is idle again.
func say(ctx context.Context, rt *runtime, text string, sf sayFlags, voiceSet, prioritySet bool) error {
	printer := status.NewPrinter(rt.log, nil)
	rt.bus.Subscribe("printer", printer.Handle)

	var failed error
	rt.bus.Subscribe("result", func(ev domain.Event) {
		if ev.Kind == domain.EventFailed {
			failed = ev.Err
		}
	})

	var a domain.Announcement
	if sf.live {
		a = rt.liveAnnouncement(text)
	} else {
		a = rt.queuedAnnouncement(text)
	}
	if voiceSet {
		a.VoiceID = sf.voice
	}
	if prioritySet {
		a.Priority = sf.priority
	}

	rt.engine.Start(ctx)
	defer rt.engine.Close()

	var err error
	if sf.live {
		err = rt.engine.Interrupt(a)
	} else {
		err = rt.engine.Enqueue(a)
	}
	if err != nil {
		return err
	}

	if err := rt.engine.WaitIdle(ctx); err != nil {
		return err
	}
	if failed != nil {
		return fmt.Errorf("announcement failed: %w", failed)
	}
	return nil
}
