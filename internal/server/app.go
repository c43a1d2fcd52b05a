// Package server initializes and runs the auth API: it opens the database,
// applies migrations, wires the user service to the HTTP transport, and
// handles graceful shutdown of the server, the reset-token sweeper and any
// in-flight reset e-mails.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/dmitrijs2005/quicklyway/internal/redisx"
	"github.com/dmitrijs2005/quicklyway/internal/server/auth"
	"github.com/dmitrijs2005/quicklyway/internal/server/config"
	"github.com/dmitrijs2005/quicklyway/internal/server/jobs"
	"github.com/dmitrijs2005/quicklyway/internal/server/notify"
	"github.com/dmitrijs2005/quicklyway/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quicklyway/internal/server/rest"
	"github.com/dmitrijs2005/quicklyway/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	issuer      *auth.Issuer
	dispatcher  *notify.Dispatcher
	scheduler   *jobs.Scheduler
	userService *services.UserService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.Environment)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var rdb *redis.Client
	if c.Notifier == "redis" {
		rdb, err = redisx.NewClient(ctx, redisx.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	notifier, err := notify.New(c.Notifier, SMTPConfig(c), streamAdder(rdb), c.RedisMailStream, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	issuer := auth.NewIssuer(c)
	dispatcher := notify.NewDispatcher(notifier, c.NotifyTimeout, logger.With("module", "notify"))
	us := services.NewUserService(db, rm, auth.NewHasher(c.BcryptCost), issuer, dispatcher, c, logger.With("module", "user_service"))
	scheduler := jobs.NewScheduler(c.ResetSweepSchedule, rm.Users(db), logger.With("module", "reset_sweeper"))

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		redis:       rdb,
		issuer:      issuer,
		dispatcher:  dispatcher,
		scheduler:   scheduler,
		userService: us,
	}, nil
}

// SMTPConfig extracts outgoing mail settings from c.
func SMTPConfig(c *config.Config) notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	}
}

// streamAdder avoids handing notify.New a typed-nil interface.
func streamAdder(rdb *redis.Client) notify.StreamAdder {
	if rdb == nil {
		return nil
	}
	return rdb
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewHTTPServer(app.config, app.logger, app.userService, app.issuer)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.scheduler.Start(); err != nil {
		app.logger.Error(ctx, "reset sweeper not started", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.shutdown()
}

func (app *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	if err := app.scheduler.Stop(ctx); err != nil {
		app.logger.Warn(ctx, "reset sweeper did not stop in time", "error", err)
	}
	if err := app.dispatcher.Wait(ctx); err != nil {
		app.logger.Warn(ctx, "pending reset emails abandoned", "error", err)
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
