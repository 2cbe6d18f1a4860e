package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/render"
	"github.com/hammamikhairi/announcer/internal/schedule"
)

var (
	headStyle = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func newListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the schedule in play order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, closeLog, err := setup(flags)
			if err != nil {
				return err
			}
			defer closeLog()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			list, err := schedule.LoadFile(cfg.Schedule.File, loc)
			if err != nil {
				return err
			}
			printSchedule(cmd.OutOrStdout(), cfg.Schedule.File, list, time.Now())
			return nil
		},
	}
}

// printSchedule writes list in queue order with relative due times.
func printSchedule(w io.Writer, path string, list []domain.Announcement, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No announcements in "+path))
		return
	}

	sorted := slices.Clone(list)
	slices.SortStableFunc(sorted, func(a, b domain.Announcement) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})

	fmt.Fprintln(w, headStyle.Render(fmt.Sprintf("%d announcements in %s", len(sorted), path)))
	for _, a := range sorted {
		meta := fmt.Sprintf("%s  %-14s p%d voice %d", a.PlayTime.Format(domain.TimeLayout), dueString(a.PlayTime, now), a.Priority, a.VoiceID)
		if a.Repeat != domain.RepeatNone {
			meta += "  " + a.Repeat.String()
			if !a.RepeatEnd.IsZero() {
				meta += " until " + a.RepeatEnd.Format(domain.TimeLayout)
			}
		}
		fmt.Fprintf(w, "%s  %s\n", dimStyle.Render(meta), render.Announcement(a))
	}
}
