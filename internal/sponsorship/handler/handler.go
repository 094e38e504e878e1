// Package handler exposes sponsorship endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/httputil"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// Service defines the sponsorship operations the handler delegates to.
type Service interface {
	CreateSponsorship(ctx context.Context, donorID id.DonorID, childID id.ChildID, amountCents int64, startDate time.Time) (*models.Sponsorship, error)
	EndSponsorship(ctx context.Context, sponsorshipID id.SponsorshipID, endDate time.Time) (*models.Sponsorship, error)
	Get(ctx context.Context, sponsorshipID id.SponsorshipID) (*models.Sponsorship, error)
}

// Handler wires sponsorship endpoints to the sponsorship service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a sponsorship handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts sponsorship endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sponsorships", h.HandleCreate)
	r.Post("/sponsorships/{sponsorshipID}/end", h.HandleEnd)
	r.Get("/sponsorships/{sponsorshipID}", h.HandleGet)
}

// HandleCreate handles POST /sponsorships requests. Creating against a
// donor and child that already hold an active sponsorship at the same
// amount returns the existing row.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateSponsorshipRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sp, err := h.service.CreateSponsorship(ctx, req.ParsedDonorID(), req.ParsedChildID(), req.MonthlyAmountCents, req.ParsedStartDate())
	if err != nil {
		h.logger.ErrorContext(ctx, "sponsorship creation failed",
			"request_id", requestID,
			"donor_id", req.DonorID,
			"child_id", req.ChildID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sponsorship created",
		"request_id", requestID,
		"sponsorship_id", sp.ID,
		"donor_id", sp.DonorID,
		"child_id", sp.ChildID,
	)

	httputil.WriteJSON(w, http.StatusCreated, sp)
}

// HandleEnd handles POST /sponsorships/{sponsorshipID}/end requests.
func (h *Handler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sponsorshipID, err := id.ParseSponsorshipID(chi.URLParam(r, "sponsorshipID"))
	if err != nil {
		httputil.WriteError(w, dErrors.NewField("sponsorship_id", "is invalid"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[EndSponsorshipRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sp, err := h.service.EndSponsorship(ctx, sponsorshipID, req.ParsedEndDate())
	if err != nil {
		h.logger.ErrorContext(ctx, "sponsorship end failed",
			"request_id", requestID,
			"sponsorship_id", sponsorshipID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sp)
}

// HandleGet handles GET /sponsorships/{sponsorshipID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sponsorshipID, err := id.ParseSponsorshipID(chi.URLParam(r, "sponsorshipID"))
	if err != nil {
		httputil.WriteError(w, dErrors.NewField("sponsorship_id", "is invalid"))
		return
	}

	sp, err := h.service.Get(r.Context(), sponsorshipID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sp)
}
