package website

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/analyst"
	"github.com/ardanlabs/ai-agents/foundation/duck"
	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/ardanlabs/ai-agents/foundation/upload"
	"golang.org/x/sync/semaphore"
)

// Config represents what the web api needs to serve requests.
type Config struct {
	Log        logger.Logger
	Store      *duck.Store
	Pipeline   *analyst.Pipeline
	Metrics    *Metrics
	RunTimeout time.Duration
	MaxRuns    int64
	MaxUpload  int64
	Version    string
}

// WebAPI constructs the handler for the api, the MCP tools and the web ui.
func WebAPI(cfg Config) http.Handler {
	if cfg.Log == nil {
		cfg.Log = logger.Noop
	}

	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}

	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = 2 * time.Minute
	}

	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = 4
	}

	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = 32 << 20
	}

	if cfg.Version == "" {
		cfg.Version = "v1.0.0"
	}

	h := handlers{
		log:        cfg.Log,
		store:      cfg.Store,
		pipeline:   cfg.Pipeline,
		metrics:    cfg.Metrics,
		runs:       semaphore.NewWeighted(cfg.MaxRuns),
		runTimeout: cfg.RunTimeout,
		maxUpload:  cfg.MaxUpload,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /upload", h.upload)
	mux.HandleFunc("POST /ask", h.ask)
	mux.HandleFunc("GET /schema", h.schema)
	mux.Handle("GET /metrics", cfg.Metrics.Handler())
	mux.Handle("/mcp", mcpHandler(&h, cfg.Version))
	mux.HandleFunc("/", h.fileServer())

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================

func respond(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(ErrorResponse{Error: fmt.Sprintf("encode response: %s", err)})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func sendError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	status := statusCode(err)

	resp := ErrorResponse{
		Error:   message(err),
		TraceID: logger.GetTraceID(ctx),
	}

	var se *analyst.StageError
	if errors.As(err, &se) {
		resp.Phase = se.Phase.String()
	}

	log(ctx, "website: "+op, "status", status, "ERROR", err)

	respond(w, status, resp)
}

// statusCode maps the error kinds onto http status codes.
func statusCode(err error) int {
	var ufe *upload.UnsupportedFormatError
	var qe *duck.QueryError
	var le *analyst.LLMError
	var mbe *http.MaxBytesError

	switch {
	case errors.Is(err, analyst.ErrEmptyQuestion), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &ufe):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &qe):
		return http.StatusUnprocessableEntity
	case errors.As(err, &le):
		return http.StatusBadGateway
	case errors.Is(err, errBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// message returns the message of the failure without the phase prefix so
// engine and model messages reach the user unmodified.
func message(err error) string {
	var se *analyst.StageError
	if errors.As(err, &se) {
		return se.Err.Error()
	}

	return err.Error()
}
