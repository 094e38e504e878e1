package store

import (
	"context"
	"errors"
	"time"

	"github.com/mlongerich/DonationTracker-sub003/internal/project/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// GeneralFund is the interface the seeder needs from either store flavor.
type GeneralFund interface {
	FindGeneralFund(ctx context.Context) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
}

// SeedGeneralFund ensures the system general-fund project exists. It is
// system-flagged, so it can never be hard-deleted.
func SeedGeneralFund(ctx context.Context, projects GeneralFund) (*models.Project, error) {
	existing, err := projects.FindGeneralFund(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	project, err := models.NewProject(id.NewProjectID(), "General Fund", models.TypeGeneral, true, time.Now())
	if err != nil {
		return nil, err
	}
	if err := projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}
