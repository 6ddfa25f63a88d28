package main

import (
	"context"
	"expvar" // Register the expvar handlers
	"fmt"
	"net/http"
	_ "net/http/pprof" // Register the pprof handlers
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/apps/api/echo"
	"github.com/gymhub/contentdesk/assets"
	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/core/performance"
	"github.com/gymhub/contentdesk/core/submission"
	"github.com/gymhub/contentdesk/services/email"
	"github.com/gymhub/contentdesk/services/logger"
	"github.com/gymhub/contentdesk/services/objstore"
	"github.com/gymhub/contentdesk/services/ratelimit"
	"github.com/gymhub/contentdesk/storage/database"
	"github.com/gymhub/contentdesk/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(zl.Named("api")), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	if err = run(conf, logger); err != nil {
		logger.Fatal("application failed", err)
	}
}

func run(conf *core.Config, logger core.Logger) error {
	ctx := context.Background()

	// =========================================================================
	// Set up Dependencies

	db, err := setUpDB(conf)
	if err != nil {
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	var limiter core.AttemptLimiter
	if conf.Redis.Addr != "" {
		var closeRedis func() error
		limiter, closeRedis, err = ratelimit.NewRedisLimiter(ctx, conf.Redis)
		if err != nil {
			return errors.Wrap(err, "connecting to redis")
		}
		defer func() { _ = closeRedis() }()
	} else {
		limiter = ratelimit.NewMemoryLimiter(conf.Redis.LoginAttempts, conf.Redis.LoginWindow)
	}

	store, closeStore, err := setUpObjectStore(ctx, conf)
	if err != nil {
		return errors.Wrap(err, "setting up object store")
	}
	defer func() { _ = closeStore() }()
	store = objstore.WithRetry(store, conf.Storage.Retries, conf.Storage.Timeout, logger)

	// outstanding emails are flushed before exiting
	var mailer interface {
		core.EmailService
		Wait()
	}
	if conf.Env == "PROD" || conf.Env == "QA" {
		mailer = emailsvc.NewSendgridService(conf, logger)
	} else {
		mailer = emailsvc.NewConsoleService(conf, logger)
	}
	defer mailer.Wait()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	gym.InitValidators(validate, translator)
	format.InitValidators(validate, translator)
	assignment.InitValidators(validate, translator)

	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, logger)

	gymRepo := sqlxrepos.NewGymRepository(db)
	fmtRepo := sqlxrepos.NewFormatRepository(db)

	gymSvc := gym.NewService(gymRepo, limiter, conf)
	fmtSvc := format.NewService(fmtRepo)
	asgSvc := assignment.NewService(assignment.Deps{
		Repo:       sqlxrepos.NewAssignmentRepository(db),
		Gyms:       gymSvc,
		Formats:    fmtSvc,
		Mailer:     mailer,
		Logger:     logger,
		Conf:       conf,
		Validate:   validate,
		Translator: translator,
	})
	subSvc := submission.NewService(submission.Deps{
		Repo:    sqlxrepos.NewSubmissionRepository(db),
		Formats: fmtSvc,
		Gyms:    gymSvc,
		Store:   store,
		Mailer:  mailer,
		Logger:  logger,
		Conf:    conf,
	})

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	opts := &echoapi.Options{
		Address:        conf.Server.Address,
		DisableReqLogs: !conf.Debug,
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		GymSvc:         gymSvc,
		FormatSvc:      fmtSvc,
		AssignmentSvc:  asgSvc,
		SubmissionSvc:  subSvc,
		PerformanceSvc: performance.NewService(gymSvc, asgSvc),
	}
	if conf.Storage.Backend != "gcs" {
		opts.UploadsDir = conf.Storage.LocalDir
	}
	server := echoapi.NewServer(opts, func() {
		select {
		case shutdown <- syscall.SIGTERM:
		default: // already shutting down
		}
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening", "address", conf.Server.Address)
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if errors.Cause(err) == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func setUpObjectStore(ctx context.Context, conf *core.Config) (core.ObjectStore, func() error, error) {
	if conf.Storage.Backend == "gcs" {
		return objstore.NewGCSStore(ctx, conf.Storage)
	}
	store, err := objstore.NewLocalStore(conf.Storage)
	return store, func() error { return nil }, err
}
