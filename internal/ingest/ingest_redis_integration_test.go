//go:build integration

package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	childstore "github.com/mlongerich/DonationTracker-sub003/internal/child/store"
	donationservice "github.com/mlongerich/DonationTracker-sub003/internal/donation/service"
	donationstore "github.com/mlongerich/DonationTracker-sub003/internal/donation/store"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/identity"
	donorstore "github.com/mlongerich/DonationTracker-sub003/internal/donor/store"
	"github.com/mlongerich/DonationTracker-sub003/internal/ingest"
	platformredis "github.com/mlongerich/DonationTracker-sub003/internal/platform/redis"
	projectstore "github.com/mlongerich/DonationTracker-sub003/internal/project/store"
	sponsorshipservice "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/service"
	sponsorshipstore "github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/store"
	"github.com/mlongerich/DonationTracker-sub003/pkg/testutil/containers"
)

type IngestRedisSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	service *ingest.Service
}

func TestIngestRedisSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(IngestRedisSuite))
}

func (s *IngestRedisSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *IngestRedisSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.redis.FlushAll(ctx))

	donors := donorstore.NewInMemory()
	children := childstore.NewInMemory()
	projects := projectstore.NewInMemory()
	donations := donationstore.NewInMemory()
	invoices := donationstore.NewInMemoryInvoices()
	_, err := projectstore.SeedGeneralFund(ctx, projects)
	s.Require().NoError(err)

	allocator := sponsorshipservice.New(sponsorshipstore.NewInMemory(), children, projects, donors, nil)
	donationSvc := donationservice.New(donations, invoices, donors, projects, allocator, nil)
	s.service = ingest.New(donationSvc,
		ingest.WithCache(&platformredis.Client{Client: s.redis.Client}, time.Hour),
	)
}

func (s *IngestRedisSuite) record(invoiceID string) ingest.Record {
	return ingest.Record{
		AmountCents:       2500,
		Date:              time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Donor:             identity.Attributes{Name: "Jane Doe", Email: "jane@example.org"},
		PaymentMethod:     "stripe",
		ExternalInvoiceID: invoiceID,
	}
}

// TestSeenKeysShortCircuitReruns verifies a landed invoice is skipped on the
// next run without touching the donation service.
func (s *IngestRedisSuite) TestSeenKeysShortCircuitReruns() {
	ctx := context.Background()
	batch := []ingest.Record{s.record("inv-001")}

	first, err := s.service.IngestBatch(ctx, batch)
	s.Require().NoError(err)
	s.Equal(1, first.Created)

	n, err := s.redis.Client.Exists(ctx, "ingest:invoice:inv-001").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	ttl, err := s.redis.Client.TTL(ctx, "ingest:invoice:inv-001").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	second, err := s.service.IngestBatch(ctx, batch)
	s.Require().NoError(err)
	s.Equal(ingest.Summary{Skipped: 1}, second)
}

// TestFailedRecordIsNotMarkedSeen verifies only landed records get a seen
// key, so a re-run retries the failures.
func (s *IngestRedisSuite) TestFailedRecordIsNotMarkedSeen() {
	ctx := context.Background()
	bad := s.record("inv-002")
	bad.AmountCents = 0

	summary, err := s.service.IngestBatch(ctx, []ingest.Record{bad})
	s.Require().NoError(err)
	s.Equal(1, summary.Failed)

	n, err := s.redis.Client.Exists(ctx, "ingest:invoice:inv-002").Result()
	s.Require().NoError(err)
	s.Zero(n)

	fixed := s.record("inv-002")
	retry, err := s.service.IngestBatch(ctx, []ingest.Record{fixed})
	s.Require().NoError(err)
	s.Equal(1, retry.Created)
}
