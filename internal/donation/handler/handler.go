// Package handler exposes donation intake and review endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/donation/service"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/httputil"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// Service defines the donation operations the handler delegates to.
type Service interface {
	CreateDonation(ctx context.Context, req service.CreateDonationRequest) (*service.CreateResult, error)
	Get(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	PendingReview(ctx context.Context) ([]*models.Donation, error)
	Active(ctx context.Context) ([]*models.Donation, error)
	ForSubscription(ctx context.Context, externalSubscriptionID string) ([]*models.Donation, error)
}

// Handler wires donation endpoints to the donation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a donation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts donation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/donations", h.HandleCreate)
	r.Get("/donations", h.HandleList)
	r.Get("/donations/{donationID}", h.HandleGet)
	r.Get("/donations/subscription/{subscriptionID}", h.HandleForSubscription)
}

// HandleCreate handles POST /donations requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateDonationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.CreateDonation(ctx, service.CreateDonationRequest{
		DonorID:                req.ParsedDonorID(),
		Donor:                  req.Identity(),
		ProjectID:              req.ParsedProjectID(),
		ChildID:                req.ParsedChildID(),
		AmountCents:            req.AmountCents,
		Date:                   req.ParsedDate(),
		PaymentMethod:          req.PaymentMethod,
		Status:                 req.Status,
		ExternalSubscriptionID: req.ExternalSubscriptionID,
		ExternalInvoiceID:      req.ExternalInvoiceID,
		ExternalChargeID:       req.ExternalChargeID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "donation creation failed",
			"request_id", requestID,
			"payment_method", req.PaymentMethod,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "donation created",
		"request_id", requestID,
		"donation_id", result.Donation.ID,
		"donor_id", result.Donation.DonorID,
		"donor_created", result.DonorCreated,
		"sponsorship_created", result.SponsorshipCreated,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromCreateResult(result))
}

// HandleList handles GET /donations requests. The view query parameter
// selects the pending_review or active listing.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		donations []*models.Donation
		err       error
	)
	switch view := r.URL.Query().Get("view"); view {
	case "pending_review":
		donations, err = h.service.PendingReview(ctx)
	case "", "active":
		donations, err = h.service.Active(ctx)
	default:
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unknown view %q", view))
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "donation listing failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListDonationsResponse{Donations: donations})
}

// HandleGet handles GET /donations/{donationID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	donationID, err := id.ParseDonationID(chi.URLParam(r, "donationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.NewField("donation_id", "is invalid"))
		return
	}

	donation, err := h.service.Get(ctx, donationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, donation)
}

// HandleForSubscription handles GET /donations/subscription/{subscriptionID}.
func (h *Handler) HandleForSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	donations, err := h.service.ForSubscription(ctx, chi.URLParam(r, "subscriptionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListDonationsResponse{Donations: donations})
}
