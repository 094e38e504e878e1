// Package ingest consumes pre-parsed reconciliation records (CSV import or
// webhook receiver output) and feeds them through the donation upsert flow.
// Batches are safe to re-run: the upsert keyed by external invoice id is the
// authoritative guard, with an optional Redis seen-key fast path in front.
package ingest

import (
	"context"
	"log/slog"
	"time"

	donationservice "github.com/mlongerich/DonationTracker-sub003/internal/donation/service"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/identity"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/metrics"
	"github.com/mlongerich/DonationTracker-sub003/internal/platform/redis"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// Record is one pre-parsed external donation record. Raw ids arrive as
// strings from the ingestion collaborator and are parsed at this boundary.
type Record struct {
	AmountCents            int64               `json:"amount_cents"`
	Date                   time.Time           `json:"date"`
	Donor                  identity.Attributes `json:"donor"`
	ChildID                string              `json:"child_id,omitempty"`
	ProjectID              string              `json:"project_id,omitempty"`
	PaymentMethod          string              `json:"payment_method"`
	Status                 string              `json:"status,omitempty"`
	ExternalSubscriptionID string              `json:"external_subscription_id,omitempty"`
	ExternalInvoiceID      string              `json:"external_invoice_id,omitempty"`
	ExternalChargeID       string              `json:"external_charge_id,omitempty"`
}

// RecordError ties a failed record to its position in the batch.
type RecordError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Summary reports what a batch run did.
type Summary struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Skipped int           `json:"skipped"`
	Flagged int           `json:"flagged"`
	Failed  int           `json:"failed"`
	Errors  []RecordError `json:"errors,omitempty"`
}

// Donations is the slice of the donation service the ingester drives.
type Donations interface {
	CreateDonation(ctx context.Context, req donationservice.CreateDonationRequest) (*donationservice.CreateResult, error)
	UpsertExternal(ctx context.Context, req donationservice.CreateDonationRequest) (*donationservice.UpsertResult, error)
}

// Service runs reconciliation batches.
type Service struct {
	donations Donations
	cache     *redis.Client
	seenTTL   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache enables the Redis seen-key fast path. A nil client is ignored.
func WithCache(cache *redis.Client, seenTTL time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.seenTTL = seenTTL
	}
}

func New(donations Donations, opts ...Option) *Service {
	s := &Service{donations: donations, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestBatch processes the records in order. A failing record is reported
// in the summary and does not stop the batch; re-running the batch later
// retries only what did not land.
func (s *Service) IngestBatch(ctx context.Context, records []Record) (Summary, error) {
	var summary Summary
	for i, record := range records {
		if s.seen(ctx, record.ExternalInvoiceID) {
			summary.Skipped++
			if s.metrics != nil {
				s.metrics.IngestBatchSkipped.Inc()
			}
			continue
		}

		if err := s.ingestOne(ctx, record, &summary); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, RecordError{Index: i, Error: err.Error()})
			s.logger.WarnContext(ctx, "ingest record failed",
				"index", i, "external_invoice_id", record.ExternalInvoiceID, "error", err)
			continue
		}
		s.markSeen(ctx, record.ExternalInvoiceID)
	}
	return summary, nil
}

func (s *Service) ingestOne(ctx context.Context, record Record, summary *Summary) error {
	req, err := buildRequest(record)
	if err != nil {
		return err
	}

	if record.ExternalInvoiceID == "" {
		result, err := s.donations.CreateDonation(ctx, req)
		if err != nil {
			return err
		}
		summary.Created++
		if result.Flagged {
			summary.Flagged++
		}
		return nil
	}

	result, err := s.donations.UpsertExternal(ctx, req)
	if err != nil {
		return err
	}
	if result.Created {
		summary.Created++
	}
	if result.Updated {
		summary.Updated++
	}
	if result.Flagged {
		summary.Flagged++
	}
	return nil
}

func buildRequest(record Record) (donationservice.CreateDonationRequest, error) {
	req := donationservice.CreateDonationRequest{
		Donor:                  record.Donor,
		AmountCents:            record.AmountCents,
		Date:                   record.Date,
		PaymentMethod:          record.PaymentMethod,
		Status:                 record.Status,
		ExternalSubscriptionID: record.ExternalSubscriptionID,
		ExternalInvoiceID:      record.ExternalInvoiceID,
		ExternalChargeID:       record.ExternalChargeID,
	}
	if record.ChildID != "" {
		childID, err := id.ParseChildID(record.ChildID)
		if err != nil {
			return req, dErrors.NewField("child_id", "is invalid")
		}
		req.ChildID = &childID
	}
	if record.ProjectID != "" {
		projectID, err := id.ParseProjectID(record.ProjectID)
		if err != nil {
			return req, dErrors.NewField("project_id", "is invalid")
		}
		req.ProjectID = &projectID
	}
	return req, nil
}

const seenKeyPrefix = "ingest:invoice:"

// seen consults the idempotency cache. Any cache failure falls through to
// the authoritative upsert.
func (s *Service) seen(ctx context.Context, externalInvoiceID string) bool {
	if s.cache == nil || externalInvoiceID == "" {
		return false
	}
	n, err := s.cache.Exists(ctx, seenKeyPrefix+externalInvoiceID).Result()
	if err != nil {
		s.logger.WarnContext(ctx, "ingest cache check failed", "error", err)
		return false
	}
	return n > 0
}

func (s *Service) markSeen(ctx context.Context, externalInvoiceID string) {
	if s.cache == nil || externalInvoiceID == "" {
		return
	}
	if err := s.cache.SetNX(ctx, seenKeyPrefix+externalInvoiceID, 1, s.seenTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "ingest cache mark failed", "error", err)
	}
}
