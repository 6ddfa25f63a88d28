package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/services/logger"
	"github.com/gymhub/contentdesk/services/ratelimit"
	"github.com/gymhub/contentdesk/storage/database"
	"github.com/gymhub/contentdesk/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewZapLogger(zl.Named("admin").WithOptions(zap.AddCallerSkip(1)))

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	gym.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db,
		gymSvc:     gym.NewService(sqlxrepos.NewGymRepository(db), ratelimit.NewMemoryLimiter(conf.Redis.LoginAttempts, conf.Redis.LoginWindow), conf),
		fmtSvc:     format.NewService(sqlxrepos.NewFormatRepository(db)),
		validate:   validate,
		translator: translator,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	_ = zl.Sync()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
