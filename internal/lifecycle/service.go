// Package lifecycle implements soft delete, restore, and hard delete for
// donors, children, and projects, with the cascade guards that keep
// sponsorship and donation history intact.
package lifecycle

import (
	"context"
	"log/slog"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	childmodels "github.com/mlongerich/DonationTracker-sub003/internal/child/models"
	donormodels "github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/metrics"
	projectmodels "github.com/mlongerich/DonationTracker-sub003/internal/project/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

type DonorStore interface {
	FindByID(ctx context.Context, donorID id.DonorID) (*donormodels.Donor, error)
	Update(ctx context.Context, donor *donormodels.Donor) error
	Delete(ctx context.Context, donorID id.DonorID) error
}

type ChildStore interface {
	FindByID(ctx context.Context, childID id.ChildID) (*childmodels.Child, error)
	Update(ctx context.Context, child *childmodels.Child) error
	Delete(ctx context.Context, childID id.ChildID) error
}

type ProjectStore interface {
	FindByID(ctx context.Context, projectID id.ProjectID) (*projectmodels.Project, error)
	Update(ctx context.Context, project *projectmodels.Project) error
	Delete(ctx context.Context, projectID id.ProjectID) error
}

// SponsorshipGuard answers the questions the cascade rules ask of pledges.
type SponsorshipGuard interface {
	ActiveCountByDonor(ctx context.Context, donorID id.DonorID) (int, error)
	ActiveCountByChild(ctx context.Context, childID id.ChildID) (int, error)
	ActiveCountByProject(ctx context.Context, projectID id.ProjectID) (int, error)
	ExistsForDonor(ctx context.Context, donorID id.DonorID) (bool, error)
	ExistsForChild(ctx context.Context, childID id.ChildID) (bool, error)
	ExistsForProject(ctx context.Context, projectID id.ProjectID) (bool, error)
}

// DonationGuard answers whether any donation history references an entity.
type DonationGuard interface {
	ExistsForDonor(ctx context.Context, donorID id.DonorID) (bool, error)
	ExistsForChild(ctx context.Context, childID id.ChildID) (bool, error)
	ExistsForProject(ctx context.Context, projectID id.ProjectID) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service applies the lifecycle rules uniformly across entity types.
type Service struct {
	donors       DonorStore
	children     ChildStore
	projects     ProjectStore
	sponsorships SponsorshipGuard
	donations    DonationGuard
	tx           storage.Tx
	logger       *slog.Logger
	audit        AuditPublisher
	metrics      *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service. A nil tx defaults to the in-memory boundary.
func New(
	donors DonorStore,
	children ChildStore,
	projects ProjectStore,
	sponsorships SponsorshipGuard,
	donations DonationGuard,
	tx storage.Tx,
	opts ...Option,
) *Service {
	if tx == nil {
		tx = storage.NewMemoryTx()
	}
	s := &Service{
		donors:       donors,
		children:     children,
		projects:     projects,
		sponsorships: sponsorships,
		donations:    donations,
		tx:           tx,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, action string, entity id.EntityType, entityID string) {
	args := []any{"event", action, "entity_type", entity, "entity_id", entityID, "log_type", "audit"}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, action, args...)
	if s.audit == nil {
		return
	}
	event := audit.Event{Action: action, EntityType: string(entity), EntityID: entityID}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "event", action, "error", err)
	}
}
