// Package handler exposes the archive, restore, and hard delete endpoints.
// Routes are registered per entity rather than on a wildcard segment so they
// coexist with the entity read routes in the same routing tree.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/httputil"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler delegates to.
type Service interface {
	Archive(ctx context.Context, entity id.EntityType, rawID string) error
	Restore(ctx context.Context, entity id.EntityType, rawID string) error
	HardDelete(ctx context.Context, entity id.EntityType, rawID string) error
}

// Handler wires lifecycle endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a lifecycle handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the lifecycle endpoints; the router guards them with
// the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	for _, e := range []struct {
		entity id.EntityType
		prefix string
		param  string
	}{
		{id.EntityDonor, "/donors", "donorID"},
		{id.EntityChild, "/children", "childID"},
		{id.EntityProject, "/projects", "projectID"},
	} {
		r.Post(e.prefix+"/{"+e.param+"}/archive", h.handle(e.entity, e.param, "archive", h.service.Archive))
		r.Post(e.prefix+"/{"+e.param+"}/restore", h.handle(e.entity, e.param, "restore", h.service.Restore))
		r.Delete(e.prefix+"/{"+e.param+"}", h.handle(e.entity, e.param, "delete", h.service.HardDelete))
	}
}

func (h *Handler) handle(entity id.EntityType, param, action string, op func(context.Context, id.EntityType, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rawID := chi.URLParam(r, param)

		if err := op(ctx, entity, rawID); err != nil {
			h.logger.ErrorContext(ctx, "lifecycle operation failed",
				"request_id", requestcontext.RequestID(ctx),
				"entity", entity,
				"entity_id", rawID,
				"action", action,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		h.logger.InfoContext(ctx, "lifecycle operation applied",
			"request_id", requestcontext.RequestID(ctx),
			"entity", entity,
			"entity_id", rawID,
			"action", action,
		)

		w.WriteHeader(http.StatusNoContent)
	}
}
