// This program provides a web service for asking questions about an uploaded
// CSV or Excel dataset. A question is turned into DuckDB SQL by a language
// model, executed against the dataset and, depending on the mode, explained.
//
// # Running the program:
//
//	$ go run ./cmd/analyst
//
// # Settings (environment or .env file):
//
//	LLM_BACKEND      http (default) or kronk
//	LLM_SERVER       chat completions endpoint for the http backend
//	LLM_MODEL        model name for the http backend
//	LLM_API_KEY      bearer token for the http backend
//	KRONK_MODEL_URL  model to install for the kronk backend
//	ANALYST_MODE     explain (default), execute, route or route-explain
//	DUCKDB_PATH      database file, in memory when empty
//	WEB_API_HOST     listen address
//
// # Asking a question:
//
//	$ curl -F file=@zarf/data/sales.csv http://localhost:3000/upload
//	$ curl -d '{"question":"How many rows are there?"}' http://localhost:3000/ask
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/ai-agents/cmd/analyst/website"
	"github.com/ardanlabs/ai-agents/foundation/analyst"
	"github.com/ardanlabs/ai-agents/foundation/config"
	"github.com/ardanlabs/ai-agents/foundation/duck"
	"github.com/ardanlabs/ai-agents/foundation/llm"
	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/ardanlabs/ai-agents/foundation/retry"
)

const (
	WebReadTimeout     = 10 * time.Second
	WebWriteTimeout    = 180 * time.Second
	WebIdleTimeout     = 120 * time.Second
	WebShutdownTimeout = 20 * time.Second
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "ANALYST")

	if err := run(log); err != nil {
		log(context.Background(), "startup", "ERROR", err)
		os.Exit(1)
	}
}

func run(log logger.Logger) error {
	ctx := context.Background()

	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log(ctx, "startup", "build", build, "backend", cfg.backend, "mode", cfg.mode, "host", cfg.host)

	// -------------------------------------------------------------------------

	completer, release, err := llm.New(ctx, llm.Config{
		Log:           log,
		Backend:       cfg.backend,
		URL:           cfg.llmURL,
		Model:         cfg.llmModel,
		APIKey:        cfg.llmAPIKey,
		KronkModelURL: cfg.kronkModelURL,
	})
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			log(ctx, "shutdown: release llm", "ERROR", err)
		}
	}()

	store, err := duck.Open(duck.Config{
		Log:  log,
		Path: cfg.dbPath,
	})
	if err != nil {
		return fmt.Errorf("duck: %w", err)
	}
	defer store.Close()

	metrics := website.NewMetrics()

	pipeline, err := analyst.New(analyst.Config{
		Log:          log,
		Completer:    completer,
		Store:        store,
		Mode:         cfg.mode,
		SchemaHint:   cfg.schemaHint,
		LLMPolicy:    cfg.llmPolicy,
		OnTransition: metrics.Transition,
	})
	if err != nil {
		return fmt.Errorf("analyst: %w", err)
	}

	// -------------------------------------------------------------------------

	log(ctx, "startup", "status", "initializing V1 API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	api := http.Server{
		Addr: cfg.host,
		Handler: website.WebAPI(website.Config{
			Log:        log,
			Store:      store,
			Pipeline:   pipeline,
			Metrics:    metrics,
			RunTimeout: WebWriteTimeout - 10*time.Second,
			MaxRuns:    cfg.maxRuns,
			Version:    build,
		}),
		ReadTimeout:  WebReadTimeout,
		WriteTimeout: WebWriteTimeout,
		IdleTimeout:  WebIdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		log(ctx, "startup", "status", "api router and website started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), WebShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// =============================================================================

type settings struct {
	backend       string
	llmURL        string
	llmModel      string
	llmAPIKey     string
	kronkModelURL string
	llmPolicy     retry.Policy
	mode          analyst.Mode
	schemaHint    bool
	dbPath        string
	host          string
	maxRuns       int64
}

func loadConfig() (settings, error) {
	mode, err := analyst.ParseMode(config.String("ANALYST_MODE", analyst.ModeExplain.String()))
	if err != nil {
		return settings{}, err
	}

	policy, err := llm.PolicyFromEnv()
	if err != nil {
		return settings{}, err
	}

	schemaHint, err := config.Bool("ANALYST_SCHEMA_HINT", false)
	if err != nil {
		return settings{}, err
	}

	maxRuns, err := config.Int("WEB_MAX_RUNS", 4)
	if err != nil {
		return settings{}, err
	}

	s := settings{
		backend:       config.String("LLM_BACKEND", llm.BackendHTTP),
		llmURL:        config.String("LLM_SERVER", llm.DefaultURL),
		llmModel:      config.String("LLM_MODEL", llm.DefaultModel),
		llmAPIKey:     config.String("LLM_API_KEY", ""),
		kronkModelURL: config.String("KRONK_MODEL_URL", ""),
		llmPolicy:     policy,
		mode:          mode,
		schemaHint:    schemaHint,
		dbPath:        config.String("DUCKDB_PATH", ""),
		host:          config.String("WEB_API_HOST", "0.0.0.0:3000"),
		maxRuns:       maxRuns,
	}

	return s, nil
}
