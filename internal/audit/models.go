package audit

import "time"

// Action names for the events the services emit.
const (
	ActionDonationCreated    = "donation.created"
	ActionDonationUpserted   = "donation.upserted"
	ActionSponsorshipCreated = "sponsorship.created"
	ActionSponsorshipEnded   = "sponsorship.ended"
	ActionDonorMerged        = "donor.merged"
	ActionEntityArchived     = "entity.archived"
	ActionEntityRestored     = "entity.restored"
	ActionEntityDeleted      = "entity.deleted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Actor      string    `json:"actor,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}
