package domain

import dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"

// EntityType names the entities the archive/restore lifecycle applies to.
// Invariant: the value must be one of the supported entity types.
//
// Usage: construct via ParseEntityType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type EntityType string

const (
	EntityDonor   EntityType = "donor"
	EntityChild   EntityType = "child"
	EntityProject EntityType = "project"
)

// validEntityTypes is the single source of truth for lifecycle-managed entities.
var validEntityTypes = map[EntityType]bool{
	EntityDonor:   true,
	EntityChild:   true,
	EntityProject: true,
}

// ParseEntityType constructs an EntityType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseEntityType(s string) (EntityType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity type cannot be empty")
	}
	t := EntityType(s)
	if !validEntityTypes[t] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid entity type")
	}
	return t, nil
}

func (t EntityType) IsValid() bool { return validEntityTypes[t] }

func (t EntityType) String() string { return string(t) }
