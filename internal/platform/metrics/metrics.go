package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	DonationsCreated     prometheus.Counter
	DonationsUpserted    prometheus.Counter
	SponsorshipsCreated  prometheus.Counter
	SponsorshipsReused   prometheus.Counter
	DonorsMerged         prometheus.Counter
	DuplicatesFlagged    prometheus.Counter
	EntitiesArchived     *prometheus.CounterVec
	EntitiesRestored     *prometheus.CounterVec
	IngestBatchSkipped   prometheus.Counter
	RequestLatencySecond *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		DonationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donation_tracker_donations_created_total",
			Help: "Total number of donations created",
		}),
		DonationsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donation_tracker_donations_upserted_total",
			Help: "Total number of donations updated by reconciliation import",
		}),
		SponsorshipsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donation_tracker_sponsorships_created_total",
			Help: "Total number of sponsorships created",
		}),
		SponsorshipsReused: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donation_tracker_sponsorships_reused_total",
			Help: "Total number of donations matched to an existing sponsorship",
		}),
		DonorsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donation_tracker_donors_merged_total",
			Help: "Total number of donor records merged away",
		}),
		DuplicatesFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donation_tracker_duplicate_subscriptions_flagged_total",
			Help: "Total number of donations flagged with an advisory duplicate subscription",
		}),
		EntitiesArchived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_tracker_entities_archived_total",
			Help: "Total number of archive operations, by entity type",
		}, []string{"entity"}),
		EntitiesRestored: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_tracker_entities_restored_total",
			Help: "Total number of restore operations (explicit and implicit), by entity type",
		}, []string{"entity"}),
		IngestBatchSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donation_tracker_ingest_records_skipped_total",
			Help: "Total number of ingest records short-circuited by the idempotency cache",
		}),
		RequestLatencySecond: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donation_tracker_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}
