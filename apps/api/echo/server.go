package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/core/performance"
	"github.com/gymhub/contentdesk/core/submission"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		UploadsDir     string // served under /uploads when set
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator

		GymSvc         gym.Service
		FormatSvc      format.Service
		AssignmentSvc  assignment.Service
		SubmissionSvc  submission.Service
		PerformanceSvc performance.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts           *Options
		app            *echo.Echo
		auth           *authenticator
		signalShutdown func()
	}
)

var _ Server = (*server)(nil)

// NewServer builds the HTTP API. signalShutdown is called when a handler hits an unrecoverable error.
func NewServer(opts *Options, signalShutdown func()) Server {
	if signalShutdown == nil {
		signalShutdown = func() {}
	}
	s := &server{
		opts:           opts,
		app:            echo.New(),
		auth:           newAuthenticator(opts.Conf, opts.GymSvc),
		signalShutdown: signalShutdown,
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if s.opts.UploadsDir != "" {
		s.app.Static("/uploads", s.opts.UploadsDir)
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig())

	registerAuthAPI(v1, jwt, s.auth, s.opts.Validate)
	registerGymAPI(v1, jwt, s.opts.GymSvc, s.opts.Validate)
	registerFormatAPI(v1, jwt, s.opts.FormatSvc, s.opts.Validate)
	registerAssignmentAPI(v1, jwt, s.opts.AssignmentSvc, s.opts.Validate)
	registerSubmissionAPI(v1, jwt, s.opts.SubmissionSvc, s.opts.Validate)
	registerDashboardAPI(v1, jwt, s.opts.PerformanceSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}
