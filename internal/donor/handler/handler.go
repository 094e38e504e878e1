// Package handler exposes donor endpoints, including the admin merge.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mlongerich/DonationTracker-sub003/internal/donor/identity"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/service"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/httputil"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// Service defines the donor operations the handler delegates to.
type Service interface {
	CreateDonor(ctx context.Context, attrs identity.Attributes) (*models.Donor, error)
	Get(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	List(ctx context.Context, visibility id.Visibility) ([]*models.Donor, error)
	Merge(ctx context.Context, ids []id.DonorID, fieldSelections map[string]id.DonorID) (*service.MergeResult, error)
}

// Handler wires donor endpoints to the donor service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a donor handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public donor endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/donors", h.HandleCreate)
	r.Get("/donors", h.HandleList)
	r.Get("/donors/{donorID}", h.HandleGet)
}

// RegisterAdmin mounts the merge endpoint; the router guards it with the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/donors/merge", h.HandleMerge)
}

// HandleCreate handles POST /donors requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateDonorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	donor, err := h.service.CreateDonor(ctx, req.Identity())
	if err != nil {
		h.logger.ErrorContext(ctx, "donor creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "donor created",
		"request_id", requestID,
		"donor_id", donor.ID,
	)

	httputil.WriteJSON(w, http.StatusCreated, donor)
}

// HandleList handles GET /donors requests. include_archived=1 widens the
// listing to archived donors; merged-away donors never appear.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	visibility := id.VisibilityDefault
	if r.URL.Query().Get("include_archived") == "1" {
		visibility = id.VisibilityIncludeArchived
	}

	donors, err := h.service.List(ctx, visibility)
	if err != nil {
		h.logger.ErrorContext(ctx, "donor listing failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListDonorsResponse{Donors: donors})
}

// HandleGet handles GET /donors/{donorID} requests. A merged-away id
// resolves to its surviving record.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	donorID, err := id.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		httputil.WriteError(w, dErrors.NewField("donor_id", "is invalid"))
		return
	}

	donor, err := h.service.Get(r.Context(), donorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, donor)
}

// HandleMerge handles POST /donors/merge requests.
func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[MergeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Merge(ctx, req.ParsedIDs(), req.ParsedSelections())
	if err != nil {
		h.logger.ErrorContext(ctx, "donor merge failed",
			"request_id", requestID,
			"donor_ids", req.DonorIDs,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "donors merged",
		"request_id", requestID,
		"survivor_id", result.Survivor.ID,
		"merged", len(result.MergedIDs),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromMergeResult(result))
}
