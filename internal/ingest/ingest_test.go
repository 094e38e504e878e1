package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	childmodels "github.com/mlongerich/DonationTracker-sub003/internal/child/models"
	childstore "github.com/mlongerich/DonationTracker-sub003/internal/child/store"
	donationservice "github.com/mlongerich/DonationTracker-sub003/internal/donation/service"
	donationstore "github.com/mlongerich/DonationTracker-sub003/internal/donation/store"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/identity"
	donorstore "github.com/mlongerich/DonationTracker-sub003/internal/donor/store"
	projectstore "github.com/mlongerich/DonationTracker-sub003/internal/project/store"
	sponsorshipservice "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/service"
	sponsorshipstore "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/store"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
)

type IngestSuite struct {
	suite.Suite
	ctx       context.Context
	donations *donationstore.InMemory
	service   *Service

	child *childmodels.Child
}

func TestIngestSuite(t *testing.T) {
	suite.Run(t, new(IngestSuite))
}

func (s *IngestSuite) SetupTest() {
	s.ctx = context.Background()
	donors := donorstore.NewInMemory()
	children := childstore.NewInMemory()
	projects := projectstore.NewInMemory()
	s.donations = donationstore.NewInMemory()
	invoices := donationstore.NewInMemoryInvoices()

	_, err := projectstore.SeedGeneralFund(s.ctx, projects)
	s.Require().NoError(err)

	child, err := childmodels.NewChild(id.NewChildID(), "Amara", nil, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(children.Create(s.ctx, child))
	s.child = child

	allocator := sponsorshipservice.New(sponsorshipstore.NewInMemory(), children, projects, donors, nil)
	s.service = New(donationservice.New(s.donations, invoices, donors, projects, allocator, nil))
}

func (s *IngestSuite) record(invoiceID string) Record {
	return Record{
		AmountCents:       2500,
		Date:              time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Donor:             identity.Attributes{Name: "Jane Doe", Email: "jane@example.org"},
		PaymentMethod:     "stripe",
		ExternalInvoiceID: invoiceID,
	}
}

// TestRerunIsIdempotent verifies the invoice-keyed upsert makes a whole batch
// safe to feed twice.
func (s *IngestSuite) TestRerunIsIdempotent() {
	batch := []Record{s.record("inv-001"), s.record("inv-002")}

	first, err := s.service.IngestBatch(s.ctx, batch)
	s.Require().NoError(err)
	s.Equal(Summary{Created: 2}, first)

	second, err := s.service.IngestBatch(s.ctx, batch)
	s.Require().NoError(err)
	s.Equal(Summary{}, second, "an unchanged batch must be a no-op")
}

func (s *IngestSuite) TestStatusRefreshCountsAsUpdate() {
	_, err := s.service.IngestBatch(s.ctx, []Record{s.record("inv-001")})
	s.Require().NoError(err)

	refreshed := s.record("inv-001")
	refreshed.Status = "refunded"
	summary, err := s.service.IngestBatch(s.ctx, []Record{refreshed})
	s.Require().NoError(err)
	s.Equal(Summary{Updated: 1}, summary)
}

// TestBlankInvoiceBypassesUpsert verifies records with no external invoice id
// go through plain creation, so feeding them twice writes two donations.
func (s *IngestSuite) TestBlankInvoiceBypassesUpsert() {
	batch := []Record{s.record("")}

	for range 2 {
		summary, err := s.service.IngestBatch(s.ctx, batch)
		s.Require().NoError(err)
		s.Equal(Summary{Created: 1}, summary)
	}
}

func (s *IngestSuite) TestFailedRecordDoesNotStopTheBatch() {
	bad := s.record("inv-bad")
	bad.ChildID = "not-a-uuid"
	batch := []Record{s.record("inv-001"), bad, s.record("inv-002")}

	summary, err := s.service.IngestBatch(s.ctx, batch)
	s.Require().NoError(err)

	s.Equal(2, summary.Created)
	s.Equal(1, summary.Failed)
	s.Require().Len(summary.Errors, 1)
	s.Equal(1, summary.Errors[0].Index)
	s.Contains(summary.Errors[0].Error, "child_id")
}

func (s *IngestSuite) TestValidationFailureIsReported() {
	bad := s.record("inv-001")
	bad.AmountCents = 0

	summary, err := s.service.IngestBatch(s.ctx, []Record{bad})
	s.Require().NoError(err)
	s.Equal(1, summary.Failed)
	s.Require().Len(summary.Errors, 1)
	s.Equal(0, summary.Errors[0].Index)
}

// TestDuplicateSubscriptionIsFlagged verifies the flag the upsert raises when
// a subscription already paid toward a child shows up somewhere else.
func (s *IngestSuite) TestDuplicateSubscriptionIsFlagged() {
	sponsored := s.record("inv-001")
	sponsored.ChildID = s.child.ID.String()
	sponsored.ExternalSubscriptionID = "sub-001"

	stray := s.record("inv-002")
	stray.ExternalSubscriptionID = "sub-001"

	summary, err := s.service.IngestBatch(s.ctx, []Record{sponsored, stray})
	s.Require().NoError(err)
	s.Equal(2, summary.Created)
	s.Equal(1, summary.Flagged)
}
