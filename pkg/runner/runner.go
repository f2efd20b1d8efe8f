// Package runner provides a reusable pipeline execution engine that can
// be embedded into other Go applications or started as an HTTP gateway.
package runner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/lei/runci/internal/api"
	"github.com/lei/runci/internal/config"
	"github.com/lei/runci/internal/engine"
	"github.com/lei/runci/internal/models"
	"github.com/lei/runci/internal/service"
	"github.com/lei/runci/internal/sink"
	"github.com/lei/runci/internal/store"
	"github.com/lei/runci/pkg/logger"
)

// Runner is an embeddable pipeline engine instance with its HTTP surface
type Runner struct {
	config  *Config
	service *service.Service
	router  http.Handler
	server  *http.Server
	logger  *logger.Logger
}

// Config holds the configuration for the Runner
type Config struct {
	// Pipeline is the already-validated pipeline document to execute
	Pipeline *models.Pipeline

	// Server configuration
	Server ServerConfig

	// Auth configuration; empty APIKeys disables authentication
	Auth AuthConfig

	// Engine configuration
	Engine EngineConfig

	// Sink configuration; empty KafkaBrokers selects the log sink
	Sink SinkConfig

	// Store configuration; empty PostgresDSN selects the in-memory store
	Store StoreConfig

	// Logging configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKeys []APIKey
}

// APIKey represents an API key for authentication
type APIKey struct {
	Name string
	Key  string
}

// EngineConfig holds execution engine configuration
type EngineConfig struct {
	MaxConcurrency     int
	MaxOutputBytes     int64
	GracePeriod        time.Duration
	DefaultStepTimeout time.Duration
	Workdir            string
	SupersedeOnPush    bool
}

// SinkConfig holds result sink configuration
type SinkConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// StoreConfig holds run history store configuration
type StoreConfig struct {
	PostgresDSN string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// New creates a new Runner instance with the provided configuration
func New(cfg *Config) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}

	appLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	// Execution engine
	executor := engine.NewExecutor(cfg.Engine.MaxOutputBytes, cfg.Engine.GracePeriod,
		cfg.Engine.DefaultStepTimeout, appLogger)
	jobRunner := engine.NewJobRunner(executor, cfg.Engine.Workdir, appLogger)
	scheduler := engine.NewScheduler(jobRunner, cfg.Engine.MaxConcurrency, appLogger)
	registry := engine.NewRegistry()

	// Run history store
	var runStore store.RunStore
	if cfg.Store.PostgresDSN != "" {
		pg, err := store.NewPostgresStore(cfg.Store.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		runStore = pg
		appLogger.Info("initialized postgres run store")
	} else {
		runStore = store.NewMemoryStore()
	}

	// Result sink
	var resultSink sink.Sink = sink.NewLogSink(appLogger)
	if len(cfg.Sink.KafkaBrokers) > 0 {
		topic := cfg.Sink.KafkaTopic
		if topic == "" {
			topic = "run-results"
		}
		kafka, err := sink.NewKafkaSink(cfg.Sink.KafkaBrokers, topic)
		if err != nil {
			return nil, fmt.Errorf("initialize kafka sink: %w", err)
		}
		resultSink = sink.Multi{resultSink, kafka}
		appLogger.Info("initialized kafka sink", "topic", topic)
	}

	// Service layer
	svc := service.NewService(cfg.Pipeline, scheduler, registry, runStore, resultSink,
		service.Options{SupersedeOnPush: cfg.Engine.SupersedeOnPush}, appLogger)

	// API layer
	handlers := api.NewHandlers(svc)
	configAPIKeys := make([]config.APIKey, len(cfg.Auth.APIKeys))
	for i, key := range cfg.Auth.APIKeys {
		configAPIKeys[i] = config.APIKey{Name: key.Name, Key: key.Key}
	}
	authMiddleware := api.NewAuthMiddleware(configAPIKeys)
	loggingMiddleware := api.NewLoggingMiddleware(appLogger)
	router := api.NewRouter(handlers, authMiddleware, loggingMiddleware)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Runner{
		config:  cfg,
		service: svc,
		router:  router,
		server:  srv,
		logger:  appLogger,
	}, nil
}

// Start starts the HTTP server.
// This is a blocking call that runs until the context is canceled or an
// error occurs; on shutdown it waits for in-flight runs to record.
func (r *Runner) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		r.logger.Info("starting http server", "port", r.config.Server.Port,
			"pipeline", r.config.Pipeline.Name)
		serverErrors <- r.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return r.service.Close()

	case <-ctx.Done():
		r.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var errs error
		if err := r.server.Shutdown(shutdownCtx); err != nil {
			r.server.Close()
			errs = multierr.Append(errs, fmt.Errorf("graceful shutdown failed: %w", err))
		}
		errs = multierr.Append(errs, r.service.Close())
		if errs == nil {
			r.logger.Info("server stopped gracefully")
		}
		return errs
	}
}

// Handler returns the http.Handler for the runner.
// Use this to mount the engine's API into an existing HTTP server.
func (r *Runner) Handler() http.Handler {
	return r.router
}

// Service returns the underlying service layer for direct programmatic
// access: dispatching events, inspecting and canceling runs
func (r *Runner) Service() *service.Service {
	return r.service
}

// NewFromEnv creates a Runner from a yaml config file and a pipeline
// document file
func NewFromEnv(configFile, pipelineFile string) (*Runner, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	pipeline, err := config.LoadPipeline(pipelineFile)
	if err != nil {
		return nil, fmt.Errorf("load pipeline: %w", err)
	}

	apiKeys := make([]APIKey, len(cfg.Auth.APIKeys))
	for i, key := range cfg.Auth.APIKeys {
		apiKeys[i] = APIKey{Name: key.Name, Key: key.Key}
	}

	return New(&Config{
		Pipeline: pipeline,
		Server: ServerConfig{
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		Auth: AuthConfig{APIKeys: apiKeys},
		Engine: EngineConfig{
			MaxConcurrency:     cfg.Engine.MaxConcurrency,
			MaxOutputBytes:     cfg.Engine.MaxOutputBytes,
			GracePeriod:        cfg.Engine.GracePeriod,
			DefaultStepTimeout: cfg.Engine.DefaultStepTimeout,
			Workdir:            cfg.Engine.Workdir,
			SupersedeOnPush:    cfg.Engine.SupersedeOnPush,
		},
		Sink: SinkConfig{
			KafkaBrokers: cfg.Sink.KafkaBrokers,
			KafkaTopic:   cfg.Sink.KafkaTopic,
		},
		Store: StoreConfig{
			PostgresDSN: cfg.Store.PostgresDSN,
		},
		Logging: LoggingConfig{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		},
	})
}
