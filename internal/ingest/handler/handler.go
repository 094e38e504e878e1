// Package handler exposes the reconciliation batch endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mlongerich/DonationTracker-sub003/internal/ingest"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/httputil"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// Service defines the ingest operation the handler delegates to.
type Service interface {
	IngestBatch(ctx context.Context, records []ingest.Record) (ingest.Summary, error)
}

// Handler wires the batch endpoint to the ingest service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an ingest handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the batch endpoint; the router guards it with the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/ingest/batch", h.HandleBatch)
}

// BatchRequest is the HTTP request body for POST /ingest/batch.
type BatchRequest struct {
	Records []ingest.Record `json:"records"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *BatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if len(r.Records) == 0 {
		return dErrors.NewField("records", "must not be empty")
	}
	return nil
}

// HandleBatch handles POST /ingest/batch requests.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	summary, err := h.service.IngestBatch(ctx, req.Records)
	if err != nil {
		h.logger.ErrorContext(ctx, "ingest batch failed",
			"request_id", requestID,
			"records", len(req.Records),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ingest batch processed",
		"request_id", requestID,
		"records", len(req.Records),
		"created", summary.Created,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, summary)
}
