package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lychee-technology/swatches"
	"github.com/lychee-technology/swatches/internal"
	"go.uber.org/zap"
)

const apiPrefix = "/product-swatches/v1"

type regenerationRunner interface {
	RunAll(ctx context.Context) (bool, error)
	Progress(ctx context.Context) (swatches.Progress, error)
}

type productRegenerator interface {
	Handle(ctx context.Context, event internal.CatalogEvent) error
	Regenerate(ctx context.Context, id swatches.ProductID) error
	BulkRegenerate(ctx context.Context, ids []swatches.ProductID) internal.BulkResult
}

type swatchReader interface {
	SwatchesFor(ctx context.Context, id swatches.ProductID) (internal.Placement, error)
}

type termFieldEditor interface {
	Save(ctx context.Context, taxonomy string, termID swatches.TermID, submission map[string]string) error
	RenderColumn(ctx context.Context, taxonomy string, termID swatches.TermID) (string, error)
	RenderForm(ctx context.Context, taxonomy string, termID swatches.TermID) (string, error)
}

// bulkRequest is the body of POST /bulk.
type bulkRequest struct {
	ProductIDs []swatches.ProductID `json:"productIds"`
}

// handleStartUpdate handles POST /product-swatches/v1/update.
// A pass already in flight is not an error: the caller gets 200 with started=false.
func (s *Server) handleStartUpdate(w http.ResponseWriter, r *http.Request) {
	progress, err := s.engine.Progress(r.Context())
	if err != nil {
		writeSwatchError(w, err)
		return
	}
	if progress.Running {
		writeSuccess(w, http.StatusOK, map[string]any{"started": false})
		return
	}

	ctx := context.WithoutCancel(r.Context())
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		started, err := s.engine.RunAll(ctx)
		if err != nil {
			s.logger.Error("regeneration pass failed", zap.Error(err))
			return
		}
		if !started {
			s.logger.Info("regeneration pass skipped, another pass holds the lock")
		}
	}()

	writeSuccess(w, http.StatusAccepted, map[string]any{"started": true})
}

// handleProgress handles GET /product-swatches/v1/update.
// The body is the bare array [count, max, running, status] polled by the admin screen.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.engine.Progress(r.Context())
	if err != nil {
		writeSwatchError(w, err)
		return
	}
	running := 0
	if progress.Running {
		running = 1
	}
	writeJSON(w, http.StatusOK, []any{progress.Count, progress.Max, running, progress.Status})
}

// handleRegenerateProduct handles POST /product-swatches/v1/products/{id}/regenerate
func (s *Server) handleRegenerateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.events.Regenerate(r.Context(), id); err != nil {
		writeSwatchError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"productId": id})
}

// handleBulk handles POST /product-swatches/v1/bulk
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	if len(req.ProductIDs) == 0 {
		writeError(w, http.StatusBadRequest, "productIds must not be empty")
		return
	}
	result := s.events.BulkRegenerate(r.Context(), req.ProductIDs)
	writeSuccess(w, http.StatusOK, result)
}

// handleSwatches handles GET /product-swatches/v1/products/{id}/swatches
func (s *Server) handleSwatches(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	placement, err := s.storefront.SwatchesFor(r.Context(), id)
	if err != nil {
		writeSwatchError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, placement)
}

// handleEvent handles POST /product-swatches/v1/events
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev internal.CatalogEvent
	if err := readJSONBody(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	if err := ev.Validate(); err != nil {
		writeSwatchError(w, err)
		return
	}
	if err := s.events.Handle(r.Context(), ev); err != nil {
		writeSwatchError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, ev)
}

// handleSaveTerm handles POST /product-swatches/v1/terms/{taxonomy}/{termID}
func (s *Server) handleSaveTerm(w http.ResponseWriter, r *http.Request) {
	taxonomy := r.PathValue("taxonomy")
	termID, err := parseTermID(r.PathValue("termID"))
	if err != nil || termID == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid term id %q", r.PathValue("termID")))
		return
	}
	submission, err := readSubmission(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if err := s.fields.Save(r.Context(), taxonomy, termID, submission); err != nil {
		writeSwatchError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"taxonomy": taxonomy, "termId": termID})
}

// handleTermColumn handles GET /product-swatches/v1/terms/{taxonomy}/{termID}/column
func (s *Server) handleTermColumn(w http.ResponseWriter, r *http.Request) {
	taxonomy := r.PathValue("taxonomy")
	termID, err := parseTermID(r.PathValue("termID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	html, err := s.fields.RenderColumn(r.Context(), taxonomy, termID)
	if err != nil {
		writeSwatchError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"html": html})
}

// handleTermForm handles GET /product-swatches/v1/terms/{taxonomy}/{termID}/form.
// Term id 0 renders the add-term form.
func (s *Server) handleTermForm(w http.ResponseWriter, r *http.Request) {
	taxonomy := r.PathValue("taxonomy")
	termID, err := parseTermID(r.PathValue("termID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	html, err := s.fields.RenderForm(r.Context(), taxonomy, termID)
	if err != nil {
		writeSwatchError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"html": html})
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireToken rejects requests without the configured bearer token. An empty token disables the check.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			if err := checkBearer(r, s.token); err != nil {
				writeSwatchError(w, swatches.NewUnauthorizedError(err.Error()))
				return
			}
		}
		next(w, r)
	}
}
