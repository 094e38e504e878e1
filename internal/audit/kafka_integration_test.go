//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	"github.com/mlongerich/DonationTracker-sub003/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	broker string
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
}

// TestAppendDelivers verifies events land on the topic keyed by entity id.
func (s *KafkaSinkSuite) TestAppendDelivers() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "audit-test-append"

	sink, err := audit.NewKafkaSink(ctx, []string{s.broker}, topic)
	s.Require().NoError(err)
	defer sink.Close()

	event := audit.Event{
		Action:     audit.ActionEntityArchived,
		EntityType: "donor",
		EntityID:   "donor-123",
	}
	s.Require().NoError(sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	s.Equal([]byte("donor-123"), records[0].Key)
	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(audit.ActionEntityArchived, got.Action)
	s.Equal("donor", got.EntityType)
}
