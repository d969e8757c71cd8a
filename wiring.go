package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrisonrobin/dayboard/pkg/assist"
	"github.com/harrisonrobin/dayboard/pkg/auth"
	"github.com/harrisonrobin/dayboard/pkg/colors"
	"github.com/harrisonrobin/dayboard/pkg/config"
	"github.com/harrisonrobin/dayboard/pkg/google"
	"github.com/harrisonrobin/dayboard/pkg/index"
	"github.com/harrisonrobin/dayboard/pkg/mailer"
	"github.com/harrisonrobin/dayboard/pkg/overdue"
	"github.com/harrisonrobin/dayboard/pkg/service"
	"github.com/harrisonrobin/dayboard/pkg/store"
	"github.com/harrisonrobin/dayboard/pkg/store/sqlstore"
	"github.com/harrisonrobin/dayboard/pkg/store/supabase"
	"github.com/harrisonrobin/dayboard/pkg/triage"
)

// openStore returns the configured store. With supabase the local sqlite
// database serves reads and writes while the project is unreachable.
func openStore(ctx context.Context, e *config.Env) (store.Store, error) {
	switch e.StoreDriver {
	case sqlstore.DriverPostgres:
		return sqlstore.Open(ctx, sqlstore.DriverPostgres, e.DatabaseURL)
	case sqlstore.DriverSQLite:
		return openLocal(ctx, e)
	case "supabase":
		client, err := supabase.NewClient(supabase.Config{URL: e.SupabaseURL, APIKey: e.SupabaseKey})
		if err != nil {
			return nil, err
		}
		local, err := openLocal(ctx, e)
		if err != nil {
			return nil, err
		}
		return store.NewFallback(supabase.New(client), local, log), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", e.StoreDriver)
}

func openLocal(ctx context.Context, e *config.Env) (*sqlstore.Store, error) {
	path, err := e.SQLiteFile()
	if err != nil {
		return nil, err
	}
	return sqlstore.Open(ctx, sqlstore.DriverSQLite, path)
}

// selectedCalendar picks the calendar name: flag, then saved preference,
// then the default.
func selectedCalendar() string {
	if calendarName != "" {
		return calendarName
	}
	prefs, err := config.Load()
	if err != nil {
		log.Printf("Warning: could not load preferences: %v", err)
		return config.DefaultCalendar
	}
	return prefs.Calendar
}

type calendarBridge struct {
	client  *google.CalendarClient
	overdue *overdue.Table
}

// openCalendar connects to Google Calendar with the cached token. It
// returns auth.ErrNoToken when `dayboard auth` has not been run.
func openCalendar(ctx context.Context) (*calendarBridge, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("could not find path to configuration directory: %w", err)
	}
	a := &auth.Authenticator{Dir: dir, Log: log}
	srv, err := a.CalendarService(ctx)
	if err != nil {
		return nil, err
	}

	evtIndex, err := index.NewEventIndex(dir)
	if err != nil {
		log.Printf("Warning: failed to initialize event index: %v", err)
	}
	colorCache, err := colors.NewColorCache(dir)
	if err != nil {
		log.Printf("Warning: failed to initialize color cache: %v", err)
	}
	sweepTable, err := overdue.NewTable(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize overdue sweep table: %w", err)
	}

	client, err := google.NewClient(ctx, srv, selectedCalendar(), evtIndex, colorCache)
	if err != nil {
		return nil, err
	}
	return &calendarBridge{client: client, overdue: sweepTable}, nil
}

// optionalCalendar is openCalendar for commands that work without one.
func optionalCalendar(ctx context.Context) *calendarBridge {
	bridge, err := openCalendar(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			log.Info("Google Calendar not configured, continuing without it")
		} else {
			log.WithError(err).Warn("Google Calendar unavailable, continuing without it")
		}
		return nil
	}
	return bridge
}

// inboxOptions builds the triage, drafting and delivery collaborators. The
// returned cleanup closes the draft cache connection.
func inboxOptions(ctx context.Context, e *config.Env) (service.InboxOptions, func(), error) {
	rules := triage.DefaultRules()
	if e.TriageRules != "" {
		loaded, err := triage.LoadRules(e.TriageRules)
		if err != nil {
			return service.InboxOptions{}, nil, err
		}
		rules = loaded
	}

	var drafter assist.Drafter = assist.NewTemplateDrafter("")
	if e.GenAIKey != "" {
		gen, err := assist.NewGenAIDrafter(ctx, e.GenAIKey, e.GenAIModel, drafter, log)
		if err != nil {
			return service.InboxOptions{}, nil, err
		}
		drafter = gen
	}

	cleanup := func() {}
	var cache assist.Cache = assist.NewMemoryCache()
	if e.RedisURL != "" {
		rc, err := assist.NewRedisCache(e.RedisURL)
		if err != nil {
			return service.InboxOptions{}, nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unreachable, draft cache stays in memory")
			rc.Close()
		} else {
			cache = rc
			cleanup = func() { rc.Close() }
		}
	}

	var mail mailer.Mailer = mailer.NewLogMailer(log)
	if e.SMTPHost != "" {
		m, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     e.SMTPHost,
			Port:     e.SMTPPort,
			Username: e.SMTPUser,
			Password: e.SMTPPass,
			From:     e.MailFrom,
		})
		if err != nil {
			cleanup()
			return service.InboxOptions{}, nil, err
		}
		mail = m
	}

	return service.InboxOptions{
		Classifier: triage.NewClassifier(rules),
		Drafter:    assist.NewCachedDrafter(drafter, cache, e.DraftTTL, log),
		Mailer:     mail,
	}, cleanup, nil
}

// buildServices opens everything the services need. Calendar is attached
// when withCalendar is set and a token is cached.
func buildServices(ctx context.Context, e *config.Env, withCalendar bool) (*service.Services, func(), error) {
	st, err := openStore(ctx, e)
	if err != nil {
		return nil, nil, err
	}
	inbox, closeInbox, err := inboxOptions(ctx, e)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	opts := service.Options{
		CalendarOwner: defaultUser(e),
		Inbox:         inbox,
		Location:      e.Location(),
	}
	if withCalendar {
		if bridge := optionalCalendar(ctx); bridge != nil {
			opts.Calendar = bridge.client
			opts.Overdue = bridge.overdue
		}
	}

	cleanup := func() {
		closeInbox()
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
	}
	return service.New(st, log, opts), cleanup, nil
}
