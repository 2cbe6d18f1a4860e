package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/render"
	"github.com/hammamikhairi/announcer/internal/schedule"
)

var errCheckFailed = errors.New("schedule check failed")

func newCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the schedule file",
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
				fmt.Fprintln(cmd.OutOrStdout(), errStyle.Render(err.Error()))
				return errCheckFailed
			}
			return checkSchedule(cmd.OutOrStdout(), list, len(cfg.Speech.Voices))
		},
	}
}

// checkSchedule reports entries that would fail or speak a raw template.
// Invalid entries and unknown voices are errors; placeholders with no
// variable are warnings.
func checkSchedule(w io.Writer, list []domain.Announcement, voices int) error {
	var errs, warns int

	for _, a := range list {
		if err := a.Validate(); err != nil {
			errs++
			fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("%s: %v", a.ID, err)))
		}
		if a.VoiceID >= voices {
			errs++
			fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("%s: voice %d is not configured (%d voices)", a.ID, a.VoiceID, voices)))
		}

		missing, err := render.Missing(a.Template, a.Variables)
		switch {
		case err != nil:
			warns++
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%s: template will be spoken as written: %v", a.ID, err)))
		case len(missing) > 0:
			warns++
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%s: no value for %s, template will be spoken as written",
				a.ID, strings.Join(missing, ", "))))
		}
	}

	fmt.Fprintf(w, "%d announcements, %d errors, %d warnings\n", len(list), errs, warns)
	if errs > 0 {
		return errCheckFailed
	}
	return nil
}
