package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/advisor"
	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/setting"
	"github.com/trezcool/hocba/core/student"
	"github.com/trezcool/hocba/core/user"
	"github.com/trezcool/hocba/core/warning"
)

type (
	// Pinger reports whether the database is reachable.
	Pinger interface {
		PingContext(ctx context.Context) error
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		DB         Pinger // optional
		UserSvc    user.ServiceInterface
		WarningSvc warning.ServiceInterface
		SettingSvc setting.ServiceInterface
		AuditSvc   audit.ServiceInterface
		StudentSvc student.ServiceInterface
		AdvisorSvc advisor.ServiceInterface
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	vala.BeginValidation().Validate(
		core.IsNotNil(deps.Conf, "Conf"),
		core.IsNotNil(deps.Logger, "Logger"),
		core.IsNotNil(deps.UserSvc, "UserSvc"),
		core.IsNotNil(deps.WarningSvc, "WarningSvc"),
		core.IsNotNil(deps.SettingSvc, "SettingSvc"),
		core.IsNotNil(deps.AuditSvc, "AuditSvc"),
		core.IsNotNil(deps.StudentSvc, "StudentSvc"),
		core.IsNotNil(deps.AdvisorSvc, "AdvisorSvc"),
		core.IsNotNil(deps.Validate, "Validate"),
		core.IsNotNil(deps.Translator, "Translator"),
	).CheckAndPanic()

	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/healthz", s.health)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	staff := api.Group("/admin", jwt, staffMiddleware(), auditMiddleware)

	registerUserAPI(s.app, api, jwt, conf, s.deps.UserSvc, s.deps.AuditSvc, s.deps.Validate)
	registerWarningAPI(staff, s.deps.WarningSvc)
	registerSettingAPI(staff, s.deps.SettingSvc)
	registerRegistryAPI(staff, s.deps.StudentSvc, s.deps.AuditSvc)
	registerAdvisorAPI(api, jwt, s.deps.AdvisorSvc)
}

func (s *server) Start() {
	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Addr)
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // a shutdown is already pending
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Hocba API!")
}

func (s *server) health(ctx echo.Context) error {
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx.Request().Context()); err != nil {
			s.deps.Logger.Error("health check failed", err)
			return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "version": s.deps.Conf.Build})
}
