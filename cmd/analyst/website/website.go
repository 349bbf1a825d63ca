// Package website provides the api, the MCP tools and the web ui for asking
// questions about an uploaded dataset.
package website

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/analyst"
	"github.com/ardanlabs/ai-agents/foundation/duck"
	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/ardanlabs/ai-agents/foundation/upload"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

//go:embed static
var website embed.FS

const (
	websiteDir  = "static"
	websitePath = "/"
)

type handlers struct {
	log        logger.Logger
	store      *duck.Store
	pipeline   *analyst.Pipeline
	metrics    *Metrics
	runs       *semaphore.Weighted
	runTimeout time.Duration
	maxUpload  int64
}

func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	ctx := h.trace(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.metrics.upload("failed")

		var mbe *http.MaxBytesError
		if !errors.As(err, &mbe) {
			err = badRequest("form file: %s", err)
		}

		sendError(ctx, w, h.log, "upload: form", err)
		return
	}
	defer file.Close()

	h.log(ctx, "website: upload: started", "file", header.Filename, "size", header.Size)

	ds, err := upload.Parse(header.Filename, file)
	if err != nil {
		h.metrics.upload("failed")

		var ufe *upload.UnsupportedFormatError
		if !errors.As(err, &ufe) {
			err = badRequest("%s", err)
		}

		sendError(ctx, w, h.log, "upload: parse", err)
		return
	}

	table := h.pipeline.Table()

	if err := h.store.Load(ctx, table, ds); err != nil {
		h.metrics.upload("failed")
		sendError(ctx, w, h.log, "upload: load", err)
		return
	}

	h.metrics.upload("ok")

	resp := UploadResponse{
		Table:   table,
		File:    header.Filename,
		Columns: ds.Columns,
		Rows:    len(ds.Rows),
		Preview: duck.Result{Rows: ds.Rows}.Head(analyst.PreviewRows).Rows,
	}

	h.log(ctx, "website: upload: completed", "table", table, "columns", len(ds.Columns), "rows", len(ds.Rows))

	respond(w, http.StatusOK, resp)
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	ctx := h.trace(w, r)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(ctx, w, h.log, "ask: decode", badRequest("decode: %s", err))
		return
	}

	state, err := h.run(ctx, req.Question)
	if err != nil {
		sendError(ctx, w, h.log, "ask: run", err)
		return
	}

	respond(w, http.StatusOK, toAskResponse(h.pipeline.Mode(), state))
}

func (h *handlers) schema(w http.ResponseWriter, r *http.Request) {
	ctx := h.trace(w, r)

	tables, err := h.describe(ctx)
	if err != nil {
		sendError(ctx, w, h.log, "schema", err)
		return
	}

	respond(w, http.StatusOK, tables)
}

func (h *handlers) fileServer() func(w http.ResponseWriter, r *http.Request) {
	fileMatcher := regexp.MustCompile(`\.[a-zA-Z]*$`)

	fSys, err := fs.Sub(website, websiteDir)
	if err != nil {
		panic(fmt.Sprintf("static folder: %s", err))
	}

	fileServer := http.StripPrefix(websitePath, http.FileServer(http.FS(fSys)))

	f := func(w http.ResponseWriter, r *http.Request) {
		if !fileMatcher.MatchString(r.URL.Path) {
			p, err := website.ReadFile(fmt.Sprintf("%s/index.html", websiteDir))
			if err != nil {
				h.log(r.Context(), "website: file server: index.html not found", "ERROR", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(p)
			return
		}

		fileServer.ServeHTTP(w, r)
	}

	return f
}

// =============================================================================

// run executes one question under the concurrency limit and the run timeout.
func (h *handlers) run(ctx context.Context, question string) (analyst.State, error) {
	if err := h.runs.Acquire(ctx, 1); err != nil {
		return analyst.State{}, errBusy
	}
	defer h.runs.Release(1)

	ctx, cancel := context.WithTimeout(ctx, h.runTimeout)
	defer cancel()

	start := time.Now()

	state, err := h.pipeline.Run(ctx, question)

	phase := state.Phase
	var se *analyst.StageError
	if errors.As(err, &se) {
		phase = se.Phase
	}

	h.metrics.run(h.pipeline.Mode(), phase, time.Since(start))

	return state, err
}

func (h *handlers) describe(ctx context.Context) ([]TableSchema, error) {
	names, err := h.store.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}

	tables := make([]TableSchema, 0, len(names))
	for _, name := range names {
		cols, err := h.store.Describe(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", name, err)
		}

		tables = append(tables, TableSchema{Name: name, Columns: cols})
	}

	return tables, nil
}

func (h *handlers) trace(w http.ResponseWriter, r *http.Request) context.Context {
	traceID := uuid.NewString()
	w.Header().Set("X-Trace-Id", traceID)

	return logger.SetTraceID(r.Context(), traceID)
}
