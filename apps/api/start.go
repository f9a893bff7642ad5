package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/hocba/apps/api/echo"
	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/advisor"
	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/setting"
	"github.com/trezcool/hocba/core/student"
	"github.com/trezcool/hocba/core/transcript"
	"github.com/trezcool/hocba/core/user"
	"github.com/trezcool/hocba/core/warning"
	advisorsvc "github.com/trezcool/hocba/services/advisor"
	logsvc "github.com/trezcool/hocba/services/logger"
	"github.com/trezcool/hocba/storage/database"
	inmemdb "github.com/trezcool/hocba/storage/database/inmem"
	sqlxrepos "github.com/trezcool/hocba/storage/database/sqlx"
)

// repositories is everything the services persist through.
type repositories struct {
	tx          core.Transactor
	pinger      echoapi.Pinger
	users       user.Repository
	rules       warning.RuleRepository
	cases       warning.CaseRepository
	transcripts transcript.Repository
	students    student.Repository
	settings    setting.Repository
	audit       audit.Repository
	close       func() error
}

func start(inmem bool) {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	var (
		repos repositories
		err   error
	)
	if inmem {
		logger.Warn("serving from an in-memory database: nothing is persisted")
		repos = inmemRepositories()
	} else if repos, err = postgresRepositories(conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up services
	auditSvc := audit.NewService(repos.audit, dbLogger)
	settingSvc := setting.NewService(repos.settings, auditSvc, logger, conf)
	if err = settingSvc.Seed(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("seeding settings: %v", err), err)
	}
	warningSvc := warning.NewService(warning.Deps{
		Tx:         repos.tx,
		Rules:      repos.rules,
		Cases:      repos.cases,
		Metrics:    transcript.NewAggregator(repos.transcripts),
		Thresholds: settingSvc,
		Auditor:    auditSvc,
		Validate:   validate,
		Conf:       conf.Warning,
	})

	var gen advisor.Generator
	if conf.Advisor.APIKey != "" {
		if gen, err = advisorsvc.NewGeminiGenerator(context.Background(), conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up advisor: %v", err), err)
		}
	} else {
		logger.Warn("ADVISOR_API_KEY not set: the advisor is disabled")
	}

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

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			DB:         repos.pinger,
			UserSvc:    user.NewService(repos.users, validate),
			WarningSvc: warningSvc,
			SettingSvc: settingSvc,
			AuditSvc:   auditSvc,
			StudentSvc: student.NewService(repos.students),
			AdvisorSvc: advisor.NewService(gen, logger, conf),
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func postgresRepositories(conf *core.Config) (repositories, error) {
	db, err := setUpDB(conf)
	if err != nil {
		return repositories{}, err
	}
	return repositories{
		tx:          database.NewTransactor(db),
		pinger:      db,
		users:       sqlxrepos.NewUserRepository(db),
		rules:       sqlxrepos.NewRuleRepository(db),
		cases:       sqlxrepos.NewCaseRepository(db),
		transcripts: sqlxrepos.NewTranscriptRepository(db),
		students:    sqlxrepos.NewStudentRepository(db),
		settings:    sqlxrepos.NewSettingRepository(db),
		audit:       sqlxrepos.NewAuditRepository(db),
		close:       db.Close,
	}, nil
}

func inmemRepositories() repositories {
	db := inmemdb.Open()
	return repositories{
		tx:          db,
		users:       inmemdb.NewUserRepository(db),
		rules:       inmemdb.NewRuleRepository(db),
		cases:       inmemdb.NewCaseRepository(db),
		transcripts: inmemdb.NewTranscriptRepository(db),
		students:    inmemdb.NewStudentRepository(db),
		settings:    inmemdb.NewSettingRepository(db),
		audit:       inmemdb.NewAuditRepository(db),
		close:       func() error { return nil },
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
