package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/announcement"
	"github.com/trezcool/classbook/core/course"
	"github.com/trezcool/classbook/core/grade"
	"github.com/trezcool/classbook/core/payment"
)

type (
	ServerDeps struct {
		Conf            *core.Config
		Logger          core.Logger
		AccountSvc      *account.Service
		CourseSvc       *course.Service
		GradeSvc        *grade.Service
		PaymentSvc      *payment.Service
		AnnouncementSvc *announcement.Service
		Validate        *validator.Validate
		Translator      ut.Translator
	}

	Server struct {
		conf     *core.Config
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		conf:     deps.Conf,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	conf := deps.Conf

	s.app.HideBanner = conf.TestMode
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home(conf))

	g := s.app.Group("/api")
	g.GET("/health", health(conf))

	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerAuthAPI(g, jwt, conf, deps.AccountSvc, deps.Validate)
	registerAdminAPI(g, jwt, deps.AccountSvc, deps.CourseSvc)
	registerCourseAPI(g, jwt, deps.CourseSvc)
	registerGradeAPI(g, jwt, deps.GradeSvc)
	registerPaymentAPI(g, jwt, deps.PaymentSvc)
	registerAnnouncementAPI(g, jwt, deps.AnnouncementSvc)
}

// Start blocks until the server stops; failures other than a shutdown are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+conf.AppName+" API!")
	}
}

type HealthResponse struct {
	Status string    `json:"status"`
	Build  string    `json:"build"`
	Time   time.Time `json:"time"`
}

func health(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok", Build: conf.Build, Time: time.Now().UTC()})
	}
}
