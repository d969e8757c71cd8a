package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/dayboard/pkg/config"
	"github.com/harrisonrobin/dayboard/pkg/logger"
)

var (
	envFile      string
	calendarName string
	userID       string

	env *config.Env
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dayboard",
	Short: "Personal productivity dashboard: tasks, goals, energy and support inbox",
	Long: `dayboard keeps tasks, goals and an energy score in one store, plans the
day around your Google Calendar and triages the support inbox.

Run "dayboard serve" for the HTTP API; the other commands work on the same
store from the shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		env, err = config.LoadEnv(envFile)
		if err != nil {
			return err
		}
		log = logger.Init("dayboard", env.LogLevel)
		if userID == "" {
			userID = defaultUser(env)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment")
	rootCmd.PersistentFlags().StringVar(&calendarName, "calendar", "", "Google Calendar name to sync with (overrides config)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user id for task commands (default: DAYBOARD_CALENDAR_USER or \"local\")")

	importCmd.AddCommand(importTaskwarriorCmd, importOrgCmd)
	rootCmd.AddCommand(serveCmd, authCmd, setCalendarCmd, syncCmd, importCmd, scheduleCmd, energyCmd)
}

func defaultUser(e *config.Env) string {
	if e.CalendarUser != "" {
		return e.CalendarUser
	}
	return "local"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
