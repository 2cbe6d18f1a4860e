// Command announcer schedules and plays spoken announcements.
package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/announcer/internal/config"
	"github.com/hammamikhairi/announcer/internal/logger"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	quiet      bool
	logFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:          "announcer",
		Short:        "Schedule and play spoken announcements",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ./announcer.yaml or ~/.config/announcer/announcer.yaml)")
	pf.BoolVar(&flags.verbose, "verbose", false, "enable verbose/debug logging")
	pf.BoolVar(&flags.quiet, "quiet", false, "disable all logging")
	pf.StringVar(&flags.logFile, "log-file", "", "file to write logs to (use \"stderr\" to log to console)")

	root.AddCommand(
		newRunCmd(&flags),
		newSayCmd(&flags),
		newListCmd(&flags),
		newCheckCmd(&flags),
		newAddCmd(&flags),
	)
	return root
}

// setup loads the configuration, applies flag overrides and opens the
// log output. The returned close func releases the log file.
func setup(flags *globalFlags) (*config.Config, *logger.Logger, func(), error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if flags.verbose {
		cfg.Log.Level = logger.LevelVerbose.String()
	}
	if flags.quiet {
		cfg.Log.Level = logger.LevelOff.String()
	}
	if flags.logFile != "" {
		cfg.Log.File = flags.logFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	// Logs go to a file by default so the console stays clean.
	var logOut io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.Log.File != "" && cfg.Log.File != "stderr" {
		if dir := filepath.Dir(cfg.Log.File); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.Log.File, err)
		} else {
			logOut = f
			closeFn = func() { f.Close() }
		}
	}

	// Third-party libraries log through the standard logger.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	return cfg, logger.New(cfg.LogLevel(), logOut), closeFn, nil
}
