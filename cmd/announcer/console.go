package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/render"
)

// console is the output side of the operator UI. *display.UI satisfies it.
type console interface {
	Println(a ...any)
	PrintInfo(text string)
	PrintHint(text string)
	PrintUrgent(text string)
}

// consoleApp turns operator input lines into engine operations.
type consoleApp struct {
	rt     *runtime
	parser domain.CommandParser
	out    console
}

// run reads input lines until ctx is done, the channel closes, or the
// operator quits.
func (a *consoleApp) run(ctx context.Context, input <-chan string) {
	for {
		var line string
		var ok bool

		select {
		case <-ctx.Done():
			return
		case line, ok = <-input:
			if !ok {
				return
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, err := a.parser.Parse(ctx, line)
		if err != nil {
			a.rt.log.Error("parsing input: %v", err)
			continue
		}
		a.rt.log.Debug("command: %s (text=%q)", cmd.Type, cmd.Text)

		if quit := a.handle(ctx, cmd); quit {
			return
		}
	}
}

// handle executes one command and reports whether the console should exit.
func (a *consoleApp) handle(ctx context.Context, cmd domain.Command) bool {
	switch cmd.Type {
	case domain.CommandLive:
		if err := a.rt.engine.Interrupt(a.rt.liveAnnouncement(cmd.Text)); err != nil {
			a.out.PrintUrgent(fmt.Sprintf("Live announcement rejected: %v", err))
		}
	case domain.CommandSay:
		if err := a.rt.engine.Enqueue(a.rt.queuedAnnouncement(cmd.Text)); err != nil {
			a.out.PrintUrgent(fmt.Sprintf("Announcement rejected: %v", err))
		}
	case domain.CommandSkip:
		if !a.rt.engine.Skip() {
			a.out.PrintHint("Nothing is playing.")
		}
	case domain.CommandQueue:
		a.showQueue()
	case domain.CommandSchedule:
		a.showSchedule(ctx)
	case domain.CommandReload:
		if err := a.rt.loadSchedule(ctx); err != nil {
			a.out.PrintUrgent(fmt.Sprintf("Schedule reload failed: %v", err))
			return false
		}
		a.out.PrintHint("Schedule reloaded.")
	case domain.CommandHelp:
		a.showHelp()
	case domain.CommandQuit:
		a.out.PrintHint("Goodbye.")
		return true
	default:
		if cmd.Text != "" {
			a.out.PrintHint(fmt.Sprintf("'%s' needs some text to announce.", cmd.Text))
		} else {
			a.out.PrintHint("Type 'help' for commands.")
		}
	}
	return false
}

func (a *consoleApp) showQueue() {
	snap := a.rt.engine.Snapshot()
	now := time.Now()

	if snap.Current != nil {
		a.out.PrintInfo("Now playing: " + render.Announcement(*snap.Current))
	} else {
		a.out.PrintHint("Nothing is playing.")
	}
	if len(snap.Pending) == 0 {
		a.out.PrintHint("Queue is empty.")
		return
	}
	a.out.PrintInfo(fmt.Sprintf("%d pending:", len(snap.Pending)))
	for i, p := range snap.Pending {
		a.out.PrintHint(fmt.Sprintf("%d. [p%d] %s (%s)", i+1, p.Priority, render.Announcement(p), dueString(p.PlayTime, now)))
	}
}

func (a *consoleApp) showSchedule(ctx context.Context) {
	list, err := a.rt.store.List(ctx)
	if err != nil {
		a.out.PrintUrgent(fmt.Sprintf("Error listing schedule: %v", err))
		return
	}
	if len(list) == 0 {
		a.out.PrintHint("No scheduled announcements.")
		return
	}
	now := time.Now()
	a.out.PrintInfo(fmt.Sprintf("%d scheduled:", len(list)))
	for _, s := range list {
		line := fmt.Sprintf("%s  %s (%s)", s.PlayTime.Format(domain.TimeLayout), render.Announcement(s), dueString(s.PlayTime, now))
		if s.Repeat != domain.RepeatNone {
			line += ", " + s.Repeat.String()
		}
		a.out.PrintHint(line)
	}
}

func (a *consoleApp) showHelp() {
	a.out.PrintInfo("Commands:")
	a.out.PrintHint("<text> | live <text>   interrupt with a live announcement")
	a.out.PrintHint("say <text>             queue an announcement")
	a.out.PrintHint("skip                   stop the current announcement")
	a.out.PrintHint("queue                  show what is playing and pending")
	a.out.PrintHint("schedule               show the scheduled announcements")
	a.out.PrintHint("reload                 re-read the schedule file")
	a.out.PrintHint("quit                   exit")
}

// dueString describes t relative to now ("now", "in 5 minutes", "3 hours ago").
func dueString(t, now time.Time) string {
	if d := t.Sub(now); d > -time.Second && d < time.Second {
		return "now"
	}
	if t.After(now) {
		return "in " + strings.TrimSuffix(humanize.RelTime(t, now, "", ""), " ")
	}
	return humanize.RelTime(t, now, "ago", "")
}
