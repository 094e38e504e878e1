package models

import (
	"time"

	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// Child is a sponsored child.
//
// Invariants:
//   - Name is non-empty
//   - An archived child owns zero active sponsorships (the cascade guard
//     refuses the archive otherwise)
type Child struct {
	ID         id.ChildID `json:"id"`
	Name       string     `json:"name"`
	Gender     *string    `json:"gender,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func NewChild(childID id.ChildID, name string, gender *string, now time.Time) (*Child, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "child name cannot be empty")
	}
	return &Child{
		ID:        childID,
		Name:      name,
		Gender:    gender,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (c *Child) IsArchived() bool { return c.ArchivedAt != nil }

func (c *Child) Archive(now time.Time) {
	c.ArchivedAt = &now
	c.UpdatedAt = now
}

func (c *Child) Restore(now time.Time) {
	c.ArchivedAt = nil
	c.UpdatedAt = now
}
