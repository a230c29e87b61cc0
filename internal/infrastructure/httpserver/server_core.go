package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/purrfectstays/waitlist-api/internal/core/ports"
	customMiddleware "github.com/purrfectstays/waitlist-api/internal/infrastructure/httpserver/middleware"
	"github.com/purrfectstays/waitlist-api/internal/pkg/validate"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	SiteURL        string
}

type ServerDeps struct {
	RegistrationService ports.RegistrationService
	VerificationService ports.VerificationService
	WelcomeService      ports.WelcomeService
	RateLimitCounter    customMiddleware.RateLimitCounter
	RateLimitConfig     *customMiddleware.RateLimitConfig
	HealthCheckers      []ports.HealthChecker
}

type Server struct {
	echo            *echo.Echo
	config          *ServerConfig
	logger          *logrus.Logger
	registrationSvc ports.RegistrationService
	verificationSvc ports.VerificationService
	welcomeSvc      ports.WelcomeService
	middleware      *customMiddleware.MiddlewareCollection
	healthCheckers  []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, serviceTokenSecret string, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.NewEchoValidator()

	server := &Server{
		echo:            e,
		config:          serverConfig,
		logger:          logger,
		registrationSvc: deps.RegistrationService,
		verificationSvc: deps.VerificationService,
		welcomeSvc:      deps.WelcomeService,
		healthCheckers:  deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			serviceTokenSecret,
			deps.RateLimitCounter,
			deps.RateLimitConfig,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
