package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/dayboard/pkg/auth"
	"github.com/harrisonrobin/dayboard/pkg/config"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/orgmode"
	"github.com/harrisonrobin/dayboard/pkg/service"
	"github.com/harrisonrobin/dayboard/pkg/taskwarrior"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Google Calendar",
	Long: `Runs the Google OAuth consent flow in the browser and caches the token
next to credentials.json in the config directory. Any existing token is
removed first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.GetConfigDir()
		if err != nil {
			return fmt.Errorf("could not find path to configuration directory: %w", err)
		}
		a := &auth.Authenticator{Dir: dir, Log: log, Interactive: true}
		if err := a.Reset(); err != nil {
			return err
		}
		if _, err := a.CalendarService(cmd.Context()); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		log.Printf("Authentication successful! Token saved to %s", auth.TokenFile)
		return nil
	},
}

var prefTimezone string

var setCalendarCmd = &cobra.Command{
	Use:   "set-calendar NAME",
	Short: "Set the default Google Calendar name",
	Long: `Saves NAME as the calendar tasks are mirrored into. NAME matches a
calendar's title or id; "primary" selects the primary calendar. --timezone
also saves the zone used for day boundaries when DAYBOARD_TIMEZONE is unset.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := config.Load()
		if err != nil {
			return err
		}
		prefs.Calendar = args[0]
		if prefTimezone != "" {
			prefs.Timezone = prefTimezone
		}
		if err := config.Save(prefs); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default calendar set to: %s\n", args[0])
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the calendar owner's tasks into Google Calendar once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bridge, err := openCalendar(ctx)
		if err != nil {
			return err
		}
		st, err := openStore(ctx, env)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := service.NewCalendarService(st, bridge.client, bridge.overdue, userID, log)
		report, err := svc.Sync(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synced %d, removed %d, marked overdue %d, failed %d\n",
			report.Synced, report.Removed, report.Swept, report.Failed)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import tasks from Taskwarrior or Org-mode files",
}

var (
	twExport bool
	twHook   bool
	orgTag   string
)

var importTaskwarriorCmd = &cobra.Command{
	Use:   "taskwarrior [FILTER...]",
	Short: "Import a Taskwarrior JSON export read from stdin",
	Long: `Reads "task export" output from stdin. With --export the command runs
"task FILTER export" itself.

With --hook the command behaves as a Taskwarrior on-add/on-modify hook: it
reads the task lines from stdin, echoes the last one back to stdout as the
hook protocol requires, and imports it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := taskwarrior.NewClient()

		var twTasks []taskwarrior.Task
		var err error
		if twExport && !twHook {
			twTasks, err = client.GetTasks(ctx, args)
		} else {
			twTasks, err = client.ParseTasks(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("error parsing tasks: %w", err)
		}

		if twHook {
			if len(twTasks) == 0 {
				return nil
			}
			last := twTasks[len(twTasks)-1]
			if err := json.NewEncoder(cmd.OutOrStdout()).Encode(last); err != nil {
				return fmt.Errorf("error encoding task to stdout: %w", err)
			}
			twTasks = twTasks[len(twTasks)-1:]
		}

		var tasks []model.Task
		for i := range twTasks {
			if twTasks[i].Importable() {
				tasks = append(tasks, twTasks[i].ToModel(userID))
			}
		}
		out := cmd.OutOrStdout()
		if twHook {
			out = io.Discard
		}
		return runImport(cmd, tasks, out)
	},
}

var importOrgCmd = &cobra.Command{
	Use:   "org FILE...",
	Short: "Import TODO headings from Org-mode files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := orgmode.ParseFiles(args, env.Location())
		if err != nil {
			return err
		}
		if orgTag != "" {
			tasks = orgmode.FilterTasks(tasks, orgTag)
		}
		for i := range tasks {
			tasks[i].UserID = userID
		}
		return runImport(cmd, tasks, cmd.OutOrStdout())
	},
}

func runImport(cmd *cobra.Command, tasks []model.Task, out io.Writer) error {
	ctx := cmd.Context()
	st, err := openStore(ctx, env)
	if err != nil {
		return err
	}
	defer st.Close()

	goals := service.NewGoalService(st, service.NewEnergyService(st, log), log)
	report, err := service.NewImportService(st, goals, log).Import(ctx, userID, tasks)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %d, updated %d, unchanged %d, skipped %d\n",
		report.Created, report.Updated, report.Unchanged, report.Skipped)
	return nil
}

var scheduleDate string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the planned day",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		loc := env.Location()
		day := time.Now().In(loc)
		if scheduleDate != "" {
			d, err := time.ParseInLocation("2006-01-02", scheduleDate, loc)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", scheduleDate, err)
			}
			day = d
		}

		svcs, cleanup, err := buildServices(ctx, env, true)
		if err != nil {
			return err
		}
		defer cleanup()

		plan, err := svcs.Schedule.Daily(ctx, userID, day)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Schedule for %s\n", plan.Date)
		for _, b := range plan.Blocks {
			fmt.Fprintf(out, "  %s-%s  %-40s (score %d)\n",
				b.Start.In(loc).Format("15:04"), b.End.In(loc).Format("15:04"), b.Title, b.Score)
		}
		if len(plan.Unscheduled) > 0 {
			fmt.Fprintln(out, "Did not fit:")
			for _, s := range plan.Unscheduled {
				fmt.Fprintf(out, "  %-52s (score %d)\n", s.Task.Title, s.Score)
			}
		}
		return nil
	},
}

var (
	energyAdd  int
	energyNote string
)

var energyCmd = &cobra.Command{
	Use:   "energy",
	Short: "Show the energy level, or add manual points with --add",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, env)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := service.NewEnergyService(st, log)
		if energyAdd != 0 {
			if _, err := svc.Add(ctx, userID, energyAdd, energyNote); err != nil {
				return err
			}
		}
		sum, err := svc.Summary(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d points: %s %d%% (cycle %d), %d to %s\n",
			sum.Total, sum.Level.Name, sum.Percent, sum.Cycle, sum.PointsToNext, sum.Next.Name)
		return nil
	},
}

func init() {
	setCalendarCmd.Flags().StringVar(&prefTimezone, "timezone", "", "IANA timezone, e.g. Europe/Berlin")
	importTaskwarriorCmd.Flags().BoolVar(&twExport, "export", false, "run task export instead of reading stdin")
	importTaskwarriorCmd.Flags().BoolVar(&twHook, "hook", false, "run as a Taskwarrior on-add/on-modify hook")
	importOrgCmd.Flags().StringVar(&orgTag, "tag", "", "only import headings carrying this tag")
	scheduleCmd.Flags().StringVar(&scheduleDate, "date", "", "day to plan (YYYY-MM-DD, default today)")
	energyCmd.Flags().IntVar(&energyAdd, "add", 0, "manual points to add (1-100)")
	energyCmd.Flags().StringVar(&energyNote, "note", "", "note for --add")
}
