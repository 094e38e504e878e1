package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mlongerich/DonationTracker-sub003/internal/project/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// InMemory keeps projects in a map.
type InMemory struct {
	mu       sync.RWMutex
	projects map[id.ProjectID]*models.Project
}

func NewInMemory() *InMemory {
	return &InMemory{projects: make(map[id.ProjectID]*models.Project)}
}

func (s *InMemory) Create(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[project.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.projects[project.ID] = clone(project)
	return nil
}

func (s *InMemory) Update(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[project.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.projects[project.ID] = clone(project)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, projectID id.ProjectID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, exists := s.projects[projectID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return clone(project), nil
}

// FindGeneralFund returns the system general-fund project donations default
// to when no project or child is named.
func (s *InMemory) FindGeneralFund(_ context.Context) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, project := range s.projects {
		if project.System && project.Type == models.TypeGeneral {
			return clone(project), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context, visibility id.Visibility) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Project
	for _, project := range s.projects {
		if project.IsArchived() && !visibility.IncludesArchived() {
			continue
		}
		out = append(out, clone(project))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, projectID id.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[projectID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.projects, projectID)
	return nil
}

func clone(p *models.Project) *models.Project {
	cp := *p
	if p.ArchivedAt != nil {
		t := *p.ArchivedAt
		cp.ArchivedAt = &t
	}
	return &cp
}
