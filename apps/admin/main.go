package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/setting"
	"github.com/trezcool/hocba/core/transcript"
	"github.com/trezcool/hocba/core/user"
	"github.com/trezcool/hocba/core/warning"
	logsvc "github.com/trezcool/hocba/services/logger"
	"github.com/trezcool/hocba/storage/database"
	sqlxrepos "github.com/trezcool/hocba/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	rollbarLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	rollbarLogger.Enable(!conf.Debug)
	logger = rollbarLogger

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	auditSvc := audit.NewService(sqlxrepos.NewAuditRepository(db), logger)
	settingSvc := setting.NewService(sqlxrepos.NewSettingRepository(db), auditSvc, logger, conf)

	// start CLI
	cli := commandLine{
		db:         db.DB,
		out:        os.Stdout,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db), validate),
		settingSvc: settingSvc,
		warningSvc: warning.NewService(warning.Deps{
			Tx:         database.NewTransactor(db),
			Rules:      sqlxrepos.NewRuleRepository(db),
			Cases:      sqlxrepos.NewCaseRepository(db),
			Metrics:    transcript.NewAggregator(sqlxrepos.NewTranscriptRepository(db)),
			Thresholds: settingSvc,
			Auditor:    auditSvc,
			Validate:   validate,
			Conf:       conf.Warning,
		}),
	}
	err = cli.run(os.Args)
	if cErr := db.Close(); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
