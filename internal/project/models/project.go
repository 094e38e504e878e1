package models

import (
	"time"

	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// ProjectType classifies what a project collects for.
// Invariant: the value must be one of the supported types.
type ProjectType string

const (
	TypeGeneral     ProjectType = "general"
	TypeCampaign    ProjectType = "campaign"
	TypeSponsorship ProjectType = "sponsorship"
)

var validProjectTypes = map[ProjectType]bool{
	TypeGeneral:     true,
	TypeCampaign:    true,
	TypeSponsorship: true,
}

// ParseProjectType constructs a ProjectType from external input.
func ParseProjectType(s string) (ProjectType, error) {
	if s == "" {
		return "", dErrors.NewField("type", "cannot be blank")
	}
	t := ProjectType(s)
	if !validProjectTypes[t] {
		return "", dErrors.NewField("type", "is not a valid project type")
	}
	return t, nil
}

func (t ProjectType) IsValid() bool  { return validProjectTypes[t] }
func (t ProjectType) String() string { return string(t) }

// Project is a destination for donations.
//
// Invariants:
//   - Title is non-empty
//   - A sponsorship-type project is owned by exactly one sponsorship and is
//     auto-provisioned by the allocator, never created directly
//   - System-flagged projects are permanently non-deletable
type Project struct {
	ID         id.ProjectID `json:"id"`
	Title      string       `json:"title"`
	Type       ProjectType  `json:"type"`
	System     bool         `json:"system"`
	ArchivedAt *time.Time   `json:"archived_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func NewProject(projectID id.ProjectID, title string, projectType ProjectType, system bool, now time.Time) (*Project, error) {
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "project title cannot be empty")
	}
	if !projectType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid project type")
	}
	return &Project{
		ID:        projectID,
		Title:     title,
		Type:      projectType,
		System:    system,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewSponsorshipProject provisions the dedicated project a new sponsorship
// owns, titled after the child.
func NewSponsorshipProject(projectID id.ProjectID, childName string, now time.Time) (*Project, error) {
	return NewProject(projectID, "Sponsor "+childName, TypeSponsorship, false, now)
}

func (p *Project) IsArchived() bool { return p.ArchivedAt != nil }

func (p *Project) Archive(now time.Time) {
	p.ArchivedAt = &now
	p.UpdatedAt = now
}

func (p *Project) Restore(now time.Time) {
	p.ArchivedAt = nil
	p.UpdatedAt = now
}
