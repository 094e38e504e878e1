// Package service implements the sponsorship matcher/allocator: donations
// toward a child either reuse the donor's active pledge at the same amount or
// open a new one with its own dedicated project.
package service

import (
	"context"
	"log/slog"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	childmodels "github.com/mlongerich/DonationTracker-sub003/internal/child/models"
	donormodels "github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/metrics"
	projectmodels "github.com/mlongerich/DonationTracker-sub003/internal/project/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

type SponsorshipStore interface {
	CreateIfVacant(ctx context.Context, sp *models.Sponsorship) error
	Update(ctx context.Context, sp *models.Sponsorship) error
	FindByID(ctx context.Context, sponsorshipID id.SponsorshipID) (*models.Sponsorship, error)
	FindActiveMatch(ctx context.Context, donorID id.DonorID, childID id.ChildID, amountCents int64) (*models.Sponsorship, error)
}

type ChildStore interface {
	FindByID(ctx context.Context, childID id.ChildID) (*childmodels.Child, error)
}

type DonorStore interface {
	FindByID(ctx context.Context, donorID id.DonorID) (*donormodels.Donor, error)
	Update(ctx context.Context, donor *donormodels.Donor) error
}

type ProjectStore interface {
	Create(ctx context.Context, project *projectmodels.Project) error
	Delete(ctx context.Context, projectID id.ProjectID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates sponsorship allocation and lifecycle.
type Service struct {
	sponsorships SponsorshipStore
	children     ChildStore
	projects     ProjectStore
	donors       DonorStore
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
func New(sponsorships SponsorshipStore, children ChildStore, projects ProjectStore, donors DonorStore, tx storage.Tx, opts ...Option) *Service {
	if tx == nil {
		tx = storage.NewMemoryTx()
	}
	s := &Service{
		sponsorships: sponsorships,
		children:     children,
		projects:     projects,
		donors:       donors,
		tx:           tx,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, action string, event audit.Event, attributes ...any) {
	args := append(attributes, "event", action, "log_type", "audit")
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, action, args...)
	if s.audit == nil {
		return
	}
	event.Action = action
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "event", action, "error", err)
	}
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.SponsorshipsCreated.Inc()
	}
}

func (s *Service) incrementReused() {
	if s.metrics != nil {
		s.metrics.SponsorshipsReused.Inc()
	}
}
