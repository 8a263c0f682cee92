package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/joboost/internal/client/client"
	"github.com/dmitrijs2005/joboost/internal/client/config"
	"github.com/dmitrijs2005/joboost/internal/client/services"
	"github.com/dmitrijs2005/joboost/internal/client/store"
	"github.com/dmitrijs2005/joboost/internal/filex"
	"github.com/dmitrijs2005/joboost/internal/logging"
)

// App wires the Gateway client, the durable store and the three client
// components behind an interactive REPL.
type App struct {
	config   *config.Config
	log      logging.Logger
	db       *sql.DB
	api      *client.HTTPClient
	session  *services.SessionManager
	apps     *services.ApplicationSynchronizer
	payments *services.PaymentMonitor
	profiles *services.ProfileService
	reader   *bufio.Reader
	out      io.Writer
}

// NewApp opens the local database under c.DataDir and assembles the App.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log, err := logging.New(c.LogFormat, os.Stderr, c.Debug)
	if err != nil {
		return nil, err
	}

	dsn, err := filex.InDir(c.DataDir, c.DatabaseFile)
	if err != nil {
		return nil, err
	}

	db, err := store.OpenDatabase(ctx, dsn)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	a := newApp(c, store.NewSQLiteSessionStore(db), log, os.Stdin, os.Stdout)
	a.db = db
	return a, nil
}

// newApp assembles the components around one HTTP client. A 401 on any
// authenticated request ends the session, and an ended session drops the
// cached applications.
func newApp(c *config.Config, st store.SessionStore, log logging.Logger, in io.Reader, out io.Writer) *App {
	api := client.NewHTTPClient(c.APIBaseURL,
		client.WithTimeout(c.RequestTimeout),
		client.WithRateLimit(c.RateLimit, c.RateBurst),
		client.WithLogger(log),
	)

	sm := services.NewSessionManager(api, st, log)
	api.SetTokenSource(sm.Token)
	api.OnUnauthorized(sm.ForceLogout)

	apps := services.NewApplicationSynchronizer(api, log)
	pm := services.NewPaymentMonitor(api, sm, services.PaymentConfig{
		Interval: c.PollInterval,
		Attempts: c.PollAttempts,
	}, log)
	profiles := services.NewProfileService(api, sm, log)

	a := &App{
		config:   c,
		log:      log,
		api:      api,
		session:  sm,
		apps:     apps,
		payments: pm,
		profiles: profiles,
		reader:   bufio.NewReader(in),
		out:      out,
	}

	sm.Subscribe(func(s services.Session) {
		if s.State == services.StateAnonymous {
			apps.Reset()
		}
	})

	return a
}

// Run restores the stored session and blocks in the REPL until the user
// exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to joboost CLI (type 'help' for commands)")

	if err := a.session.Start(ctx); err != nil {
		a.log.Warn(ctx, "stored session not restored", "error", err)
	}
	if a.isLoggedIn() {
		a.refresh(ctx)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close stops background work and releases the database.
func (a *App) Close() {
	a.payments.Stop()
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) getStatus() string {
	s := a.session.Snapshot()
	if s.User == nil {
		return fmt.Sprintf("(%s)", s.State)
	}
	name := s.User.Email
	if name == "" {
		name = s.User.ID
	}
	return fmt.Sprintf("(%s %s)", name, s.User.Plan)
}
