package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"calendario/internal/config"
	appLog "calendario/internal/log"
)

var version = "0.1.0-dev"

type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "calendario",
		Short:         "Calendar agenda with reminders and public holidays",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "/etc/calendario/config.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides config")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newAgendaCmd(flags))
	root.AddCommand(newMigrateCmd(flags))
	return root
}

// loadConfig reads the config file and applies logging settings.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	appLog.Info("effective config",
		"config_path", flags.configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"database", cfg.Database.URL != "",
		"holiday_window_days", cfg.Agenda.HolidayWindowDays,
		"holiday_calendars", len(cfg.Holidays.Calendars),
		"metrics", cfg.Metrics,
	)
	return cfg, nil
}
