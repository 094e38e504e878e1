package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// target abstracts one lifecycle-managed record so the archive, restore, and
// delete rules are written once. Each entity type adapts its model behind
// this interface inside the transaction.
type target struct {
	archived     bool
	blocked      func(ctx context.Context) (string, error) // archive blocker, "" when clear
	hasHistory   func(ctx context.Context) (string, error) // hard-delete blocker, "" when clear
	setArchived  func(ctx context.Context, archived bool) error
	deleteRecord func(ctx context.Context) error
}

// Archive soft-deletes an entity. It is refused while the entity still holds
// an active sponsorship, and for system projects, which must always exist.
func (s *Service) Archive(ctx context.Context, entity id.EntityType, rawID string) error {
	return s.run(ctx, entity, rawID, func(txCtx context.Context, t *target) (string, error) {
		if t.archived {
			return "", dErrors.New(dErrors.CodeConflict, fmt.Sprintf("%s is already archived", entity))
		}
		blocker, err := t.blocked(txCtx)
		if err != nil {
			return "", err
		}
		if blocker != "" {
			return "", dErrors.New(dErrors.CodeValidation, blocker)
		}
		return audit.ActionEntityArchived, t.setArchived(txCtx, true)
	})
}

// Restore clears an entity's archived marker.
func (s *Service) Restore(ctx context.Context, entity id.EntityType, rawID string) error {
	return s.run(ctx, entity, rawID, func(txCtx context.Context, t *target) (string, error) {
		if !t.archived {
			return "", dErrors.New(dErrors.CodeConflict, fmt.Sprintf("%s is not archived", entity))
		}
		return audit.ActionEntityRestored, t.setArchived(txCtx, false)
	})
}

// HardDelete removes an entity outright. Any donation or sponsorship history
// blocks it; archiving is the only removal path once history exists.
func (s *Service) HardDelete(ctx context.Context, entity id.EntityType, rawID string) error {
	return s.run(ctx, entity, rawID, func(txCtx context.Context, t *target) (string, error) {
		blocker, err := t.hasHistory(txCtx)
		if err != nil {
			return "", err
		}
		if blocker != "" {
			return "", dErrors.New(dErrors.CodeValidation, blocker)
		}
		return audit.ActionEntityDeleted, t.deleteRecord(txCtx)
	})
}

func (s *Service) run(ctx context.Context, entity id.EntityType, rawID string, op func(ctx context.Context, t *target) (string, error)) error {
	if !entity.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid entity type")
	}

	var action string
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.load(txCtx, entity, rawID)
		if err != nil {
			return err
		}
		action, err = op(txCtx, t)
		return err
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, action, entity, rawID)
	if s.metrics != nil {
		switch action {
		case audit.ActionEntityArchived:
			s.metrics.EntitiesArchived.WithLabelValues(string(entity)).Inc()
		case audit.ActionEntityRestored:
			s.metrics.EntitiesRestored.WithLabelValues(string(entity)).Inc()
		}
	}
	return nil
}

// load resolves the raw id for the entity type and binds the type-specific
// rules into a target.
func (s *Service) load(ctx context.Context, entity id.EntityType, rawID string) (*target, error) {
	switch entity {
	case id.EntityDonor:
		donorID, err := id.ParseDonorID(rawID)
		if err != nil {
			return nil, err
		}
		return s.loadDonor(ctx, donorID)
	case id.EntityChild:
		childID, err := id.ParseChildID(rawID)
		if err != nil {
			return nil, err
		}
		return s.loadChild(ctx, childID)
	case id.EntityProject:
		projectID, err := id.ParseProjectID(rawID)
		if err != nil {
			return nil, err
		}
		return s.loadProject(ctx, projectID)
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity type")
	}
}

func (s *Service) loadDonor(ctx context.Context, donorID id.DonorID) (*target, error) {
	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		return nil, notFoundOrInternal(err, "donor")
	}
	if donor.IsMerged() {
		return nil, dErrors.New(dErrors.CodeValidation, "donor has been merged into another record")
	}
	return &target{
		archived: donor.IsArchived(),
		blocked: func(ctx context.Context) (string, error) {
			count, err := s.sponsorships.ActiveCountByDonor(ctx, donorID)
			if err != nil {
				return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sponsorships")
			}
			if count > 0 {
				return "donor has active sponsorships", nil
			}
			return "", nil
		},
		hasHistory: func(ctx context.Context) (string, error) {
			return s.history(ctx, "donor",
				func(ctx context.Context) (bool, error) { return s.donations.ExistsForDonor(ctx, donorID) },
				func(ctx context.Context) (bool, error) { return s.sponsorships.ExistsForDonor(ctx, donorID) })
		},
		setArchived: func(ctx context.Context, archived bool) error {
			now := requestcontext.Now(ctx)
			if archived {
				donor.Archive(now)
			} else {
				donor.Restore(now)
			}
			return wrapUpdate(s.donors.Update(ctx, donor), "donor")
		},
		deleteRecord: func(ctx context.Context) error {
			return wrapDelete(s.donors.Delete(ctx, donorID), "donor")
		},
	}, nil
}

func (s *Service) loadChild(ctx context.Context, childID id.ChildID) (*target, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		return nil, notFoundOrInternal(err, "child")
	}
	return &target{
		archived: child.IsArchived(),
		blocked: func(ctx context.Context) (string, error) {
			count, err := s.sponsorships.ActiveCountByChild(ctx, childID)
			if err != nil {
				return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sponsorships")
			}
			if count > 0 {
				return "child has active sponsorships", nil
			}
			return "", nil
		},
		hasHistory: func(ctx context.Context) (string, error) {
			return s.history(ctx, "child",
				func(ctx context.Context) (bool, error) { return s.donations.ExistsForChild(ctx, childID) },
				func(ctx context.Context) (bool, error) { return s.sponsorships.ExistsForChild(ctx, childID) })
		},
		setArchived: func(ctx context.Context, archived bool) error {
			now := requestcontext.Now(ctx)
			if archived {
				child.Archive(now)
			} else {
				child.Restore(now)
			}
			return wrapUpdate(s.children.Update(ctx, child), "child")
		},
		deleteRecord: func(ctx context.Context) error {
			return wrapDelete(s.children.Delete(ctx, childID), "child")
		},
	}, nil
}

func (s *Service) loadProject(ctx context.Context, projectID id.ProjectID) (*target, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFoundOrInternal(err, "project")
	}
	return &target{
		archived: project.IsArchived(),
		blocked: func(ctx context.Context) (string, error) {
			if project.System {
				return "system projects cannot be archived", nil
			}
			count, err := s.sponsorships.ActiveCountByProject(ctx, projectID)
			if err != nil {
				return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sponsorships")
			}
			if count > 0 {
				return "project has active sponsorships", nil
			}
			return "", nil
		},
		hasHistory: func(ctx context.Context) (string, error) {
			if project.System {
				return "system projects cannot be deleted", nil
			}
			return s.history(ctx, "project",
				func(ctx context.Context) (bool, error) { return s.donations.ExistsForProject(ctx, projectID) },
				func(ctx context.Context) (bool, error) { return s.sponsorships.ExistsForProject(ctx, projectID) })
		},
		setArchived: func(ctx context.Context, archived bool) error {
			now := requestcontext.Now(ctx)
			if archived {
				project.Archive(now)
			} else {
				project.Restore(now)
			}
			return wrapUpdate(s.projects.Update(ctx, project), "project")
		},
		deleteRecord: func(ctx context.Context) error {
			return wrapDelete(s.projects.Delete(ctx, projectID), "project")
		},
	}, nil
}

func (s *Service) history(ctx context.Context, noun string, donations, sponsorships func(context.Context) (bool, error)) (string, error) {
	has, err := donations(ctx)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check donation history")
	}
	if has {
		return noun + " has donation history", nil
	}
	has, err = sponsorships(ctx)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check sponsorship history")
	}
	if has {
		return noun + " has sponsorship history", nil
	}
	return "", nil
}

func notFoundOrInternal(err error, noun string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, noun+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+noun)
}

func wrapUpdate(err error, noun string) error {
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update "+noun)
	}
	return nil
}

func wrapDelete(err error, noun string) error {
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete "+noun)
	}
	return nil
}
