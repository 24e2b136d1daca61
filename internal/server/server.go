package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/promptenhancer/core/client"
	"github.com/leofalp/promptenhancer/core/client/middleware"
	"github.com/leofalp/promptenhancer/core/events"
	"github.com/leofalp/promptenhancer/core/retry"
	"github.com/leofalp/promptenhancer/internal/config"
	"github.com/leofalp/promptenhancer/providers/ai"
	"github.com/leofalp/promptenhancer/providers/ai/azure"
	"github.com/leofalp/promptenhancer/providers/tool/webfetch"
)

// ServiceName is reported by the index route.
const ServiceName = "prompt-enhancer"

// Server is the HTTP surface of the service. All of its state is shared
// read-only between requests except the provider handle, which builds the
// provider client once on first use.
type Server struct {
	settings     config.Settings
	build        func(context.Context) (ai.StreamProvider, error)
	provider     *client.Handle[ai.StreamProvider]
	translator   *events.Translator
	fetcher      *webfetch.Fetcher
	extractCache *webfetch.Cache
	retryOptions []retry.Option
	logger       *slog.Logger
	engine       *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithProviderFactory replaces the Azure client factory. The factory runs
// lazily on the first request that needs the model; failures are retried on
// the next request. The provider it returns is wrapped with the timeout and
// logging middlewares.
func WithProviderFactory(build func(context.Context) (ai.StreamProvider, error)) Option {
	return func(s *Server) {
		if build != nil {
			s.build = build
		}
	}
}

// WithTranslator sets the event translator. Default: random identifiers.
func WithTranslator(translator *events.Translator) Option {
	return func(s *Server) {
		if translator != nil {
			s.translator = translator
		}
	}
}

// WithFetcher sets the page fetcher used by /extract-url.
func WithFetcher(fetcher *webfetch.Fetcher) Option {
	return func(s *Server) {
		if fetcher != nil {
			s.fetcher = fetcher
		}
	}
}

// WithRetryOptions adds options to every retry driver the server builds.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(s *Server) {
		s.retryOptions = append(s.retryOptions, opts...)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Server and its routes.
func New(settings config.Settings, opts ...Option) *Server {
	s := &Server{
		settings:   settings,
		translator: events.NewTranslator(nil),
		logger:     slog.Default(),
		build: func(context.Context) (ai.StreamProvider, error) {
			return azure.New(settings.AzureConfig())
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = webfetch.NewFetcher()
	}
	s.extractCache = webfetch.NewCache(settings.CacheMaxEntries, settings.ExtractCacheTTL())
	s.provider = client.NewHandle(s.buildProvider)

	s.engine = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(requestID(), s.accessLog(), s.recovery())

	engine.GET("/", s.index)
	engine.GET("/health", s.health)

	protected := engine.Group("/", s.authenticate())
	protected.POST("/enhance", s.enhance)
	protected.POST("/inspect", s.inspect)
	protected.POST("/extract-url", s.extractURL)

	engine.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, CodeNotFound, "Not found.")
	})
	return engine
}

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": ServiceName,
		"status":  "running",
		"health":  "/health",
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"deployment": s.settings.Deployment,
	})
}

// buildProvider builds the provider and wraps it so every physical call is
// cut off when it stalls longer than the provider timeout, and logged.
func (s *Server) buildProvider(ctx context.Context) (ai.StreamProvider, error) {
	provider, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "provider client ready", slog.String("deployment", s.settings.Deployment))
	return client.Chain(provider,
		middleware.NewTimeoutMiddleware(s.settings.ProviderTimeout()),
		middleware.NewLoggingMiddleware(s.logger, middleware.LogLevelStandard),
	), nil
}

// newDriver returns a retry driver for one logical call, logging through
// the request's logger.
func (s *Server) newDriver(c *gin.Context, provider ai.StreamProvider) *retry.Driver {
	opts := append([]retry.Option{retry.WithLogger(requestLogger(c, s.logger))}, s.retryOptions...)
	return retry.NewDriver(provider, s.settings.RetryConfig(), opts...)
}

// baseRequest carries the model and run options shared by every call.
func (s *Server) baseRequest() ai.Request {
	return ai.Request{
		Model:   s.settings.Deployment,
		Options: s.settings.RunOptions(),
	}
}
