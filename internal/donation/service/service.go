// Package service orchestrates donation intake: donor identity resolution,
// sponsorship allocation, validation, and the duplicate guard, all inside one
// transaction per donation.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	donormodels "github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/metrics"
	projectmodels "github.com/mlongerich/DonationTracker-sub003/internal/project/models"
	sponsorshipservice "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/service"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

type DonationStore interface {
	Create(ctx context.Context, d *models.Donation) error
	Update(ctx context.Context, d *models.Donation) error
	FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error)
	FindByExternalInvoiceID(ctx context.Context, externalInvoiceID string) (*models.Donation, error)
	ListPendingReview(ctx context.Context) ([]*models.Donation, error)
	ListActive(ctx context.Context) ([]*models.Donation, error)
	ListBySubscription(ctx context.Context, externalSubscriptionID string) ([]*models.Donation, error)
	ExistsSubscriptionForOtherChild(ctx context.Context, externalSubscriptionID string, childID *id.ChildID) (bool, error)
}

type InvoiceStore interface {
	Upsert(ctx context.Context, inv *models.Invoice) error
	FindByExternalID(ctx context.Context, externalInvoiceID string) (*models.Invoice, error)
}

type DonorStore interface {
	Create(ctx context.Context, donor *donormodels.Donor) error
	Update(ctx context.Context, donor *donormodels.Donor) error
	FindByID(ctx context.Context, donorID id.DonorID) (*donormodels.Donor, error)
	FindByEmail(ctx context.Context, email string) (*donormodels.Donor, error)
}

type ProjectStore interface {
	FindByID(ctx context.Context, projectID id.ProjectID) (*projectmodels.Project, error)
	Update(ctx context.Context, project *projectmodels.Project) error
	FindGeneralFund(ctx context.Context) (*projectmodels.Project, error)
}

// Allocator matches a donation toward a child to its sponsorship.
type Allocator interface {
	Allocate(ctx context.Context, donorID id.DonorID, childID id.ChildID, amountCents int64, startDate time.Time) (sponsorshipservice.Allocation, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates donation intake and the query views.
type Service struct {
	donations DonationStore
	invoices  InvoiceStore
	donors    DonorStore
	projects  ProjectStore
	allocator Allocator
	tx        storage.Tx
	logger    *slog.Logger
	audit     AuditPublisher
	metrics   *metrics.Metrics
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
	donations DonationStore,
	invoices InvoiceStore,
	donors DonorStore,
	projects ProjectStore,
	allocator Allocator,
	tx storage.Tx,
	opts ...Option,
) *Service {
	if tx == nil {
		tx = storage.NewMemoryTx()
	}
	s := &Service{
		donations: donations,
		invoices:  invoices,
		donors:    donors,
		projects:  projects,
		allocator: allocator,
		tx:        tx,
		logger:    slog.Default(),
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
