package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/schedule"
)

func newAddCmd(flags *globalFlags) *cobra.Command {
	var entry schedule.Entry

	cmd := &cobra.Command{
		Use:   "add [flags] TEXT...",
		Short: "Add an announcement to the schedule file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, closeLog, err := setup(flags)
			if err != nil {
				return err
			}
			defer closeLog()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			entry.Text = strings.Join(args, " ")
			if entry.At == "" {
				entry.At = time.Now().In(loc).Add(time.Minute).Format(domain.TimeLayout)
			}

			a, err := addEntry(cfg.Schedule.File, entry, loc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s at %s to %s\n", a.ID, a.PlayTime.Format(domain.TimeLayout), cfg.Schedule.File)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&entry.ID, "id", "", "stable identifier (default: content hash)")
	f.StringVar(&entry.At, "at", "", "play time, \""+domain.TimeLayout+"\" (default: one minute from now)")
	f.StringVar(&entry.Repeat, "repeat", "", "none, daily or weekly")
	f.StringVar(&entry.RepeatEnd, "until", "", "last allowed play time of a recurring announcement")
	f.IntVar(&entry.Voice, "voice", 0, "voice index")
	f.IntVar(&entry.Priority, "priority", domain.PriorityScheduled, "priority (1-10)")
	f.StringToStringVar(&entry.Variables, "var", nil, "placeholder value, name=value (repeatable)")
	return cmd
}

// addEntry validates entry and appends it to the schedule file at path.
func addEntry(path string, entry schedule.Entry, loc *time.Location) (domain.Announcement, error) {
	a, err := entry.Announcement(loc)
	if err != nil {
		return domain.Announcement{}, err
	}

	list, err := schedule.LoadFile(path, loc)
	if err != nil {
		return domain.Announcement{}, err
	}
	for _, existing := range list {
		if existing.ID == a.ID {
			return domain.Announcement{}, fmt.Errorf("%w: %s is already scheduled", domain.ErrInvalidAnnouncement, a.ID)
		}
	}

	if err := schedule.SaveFile(path, append(list, a)); err != nil {
		return domain.Announcement{}, err
	}
	return a, nil
}
