// Package service implements donor operations: lookup, listing, creation via
// the identity resolver, and the merge engine that collapses duplicate donor
// records.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/identity"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/metrics"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

type DonorStore interface {
	Create(ctx context.Context, donor *models.Donor) error
	Update(ctx context.Context, donor *models.Donor) error
	FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	FindByEmail(ctx context.Context, email string) (*models.Donor, error)
	List(ctx context.Context, visibility id.Visibility) ([]*models.Donor, error)
}

// Reassigner moves ownership of records from one donor to another. The
// donation and sponsorship stores both satisfy it.
type Reassigner interface {
	ReassignDonor(ctx context.Context, from, to id.DonorID) (int, error)
}

// SponsorshipReassigner additionally answers whether a set of donors hold
// clashing active sponsorship slots, so a merge can refuse before it moves
// anything.
type SponsorshipReassigner interface {
	Reassigner
	ActiveSlotConflicts(ctx context.Context, donorIDs []id.DonorID) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates donor management.
type Service struct {
	donors       DonorStore
	donations    Reassigner
	sponsorships SponsorshipReassigner
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
func New(donors DonorStore, donations Reassigner, sponsorships SponsorshipReassigner, tx storage.Tx, opts ...Option) *Service {
	if tx == nil {
		tx = storage.NewMemoryTx()
	}
	s := &Service{
		donors:       donors,
		donations:    donations,
		sponsorships: sponsorships,
		tx:           tx,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDonor resolves the supplied attributes into a full identity and
// persists the donor. The resolved email must be free among live donors.
func (s *Service) CreateDonor(ctx context.Context, attrs identity.Attributes) (*models.Donor, error) {
	resolved, err := identity.Resolve(attrs)
	if err != nil {
		return nil, err
	}

	var donor *models.Donor
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		d, err := models.NewDonor(id.NewDonorID(), resolved.Name, resolved.Email, resolved.Phone,
			resolved.Address, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.donors.Create(txCtx, d); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.NewField("email", "has already been taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donor")
		}
		donor = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return donor, nil
}

// Get loads one donor. Merged donors resolve to their survivor.
func (s *Service) Get(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	if donorID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "donor id is required")
	}
	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
	}
	if donor.IsMerged() {
		return s.Get(ctx, *donor.MergedInto)
	}
	return donor, nil
}

// List returns donors under the given visibility. Merged-away donors never
// appear, archived ones only under IncludeArchived.
func (s *Service) List(ctx context.Context, visibility id.Visibility) ([]*models.Donor, error) {
	out, err := s.donors.List(ctx, visibility)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donors")
	}
	return out, nil
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
