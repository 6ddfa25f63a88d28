package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

// load returns a copy of d with its template and gym name attached. The caller holds the lock.
func (repo *assignmentRepository) load(d *assignment.Distribution) assignment.Distribution {
	out := *d
	if t, ok := repo.db.templates[d.TemplateID]; ok {
		out.Template = *t
	}
	if g, ok := repo.db.gyms[d.GymID]; ok {
		out.GymName = g.Name
	}
	return out
}

func (repo *assignmentRepository) CreateAssignment(
	_ context.Context,
	scope core.Scope,
	t assignment.Template,
	ds []assignment.Distribution,
) (assignment.Template, []assignment.Distribution, error) {
	if err := scope.RequireAdmin(); err != nil {
		return assignment.Template{}, nil, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.FailWrites != nil {
		return assignment.Template{}, nil, repo.db.FailWrites
	}
	// check everything before writing anything
	for _, d := range ds {
		if _, ok := repo.db.gyms[d.GymID]; !ok {
			return assignment.Template{}, nil, core.NewUpstreamError("inserting distribution", assignment.ErrNotFound)
		}
	}

	t.ID = uuid.New().String()
	repo.db.templates[t.ID] = &t
	out := make([]assignment.Distribution, 0, len(ds))
	for _, d := range ds {
		d.ID = uuid.New().String()
		d.TemplateID = t.ID
		stored := d
		repo.db.distributions[d.ID] = &stored
		out = append(out, repo.load(&stored))
	}
	return t, out, nil
}

func (repo *assignmentRepository) GetDistribution(_ context.Context, scope core.Scope, id string) (assignment.Distribution, error) {
	if err := scope.Check(); err != nil {
		return assignment.Distribution{}, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if d, ok := repo.db.distributions[id]; ok && scope.CanAccess(d.GymID) {
		return repo.load(d), nil
	}
	return assignment.Distribution{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryDistributions(
	_ context.Context,
	scope core.Scope,
	filter *assignment.QueryFilter,
	_ []core.DBOrdering,
) ([]assignment.Distribution, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var statuses map[assignment.Status]bool
	if filter != nil && len(filter.Statuses()) > 0 {
		statuses = make(map[assignment.Status]bool)
		for _, st := range filter.Statuses() {
			statuses[st] = true
		}
	}

	dists := make([]assignment.Distribution, 0, len(repo.db.distributions))
	for _, d := range repo.db.distributions {
		if !scope.CanAccess(d.GymID) {
			continue
		}
		if filter != nil {
			if filter.GymID != "" && d.GymID != filter.GymID {
				continue
			}
			if filter.TemplateID != "" && d.TemplateID != filter.TemplateID {
				continue
			}
			if statuses != nil && !statuses[d.Status] {
				continue
			}
		}
		dists = append(dists, repo.load(d))
	}
	sort.Slice(dists, func(i, j int) bool {
		if !dists[i].DueDate.Equal(dists[j].DueDate) {
			return dists[i].DueDate.Before(dists[j].DueDate)
		}
		return dists[i].ID < dists[j].ID
	})
	return dists, nil
}

func (repo *assignmentRepository) UpdateStatus(
	_ context.Context,
	scope core.Scope,
	from assignment.Status,
	d assignment.Distribution,
) (assignment.Distribution, error) {
	if err := scope.RequireAccess(d.GymID); err != nil {
		return assignment.Distribution{}, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.FailWrites != nil {
		return assignment.Distribution{}, repo.db.FailWrites
	}
	stored, ok := repo.db.distributions[d.ID]
	if !ok {
		return assignment.Distribution{}, assignment.ErrNotFound
	}
	if stored.Status != from {
		return assignment.Distribution{}, assignment.ErrStatusChanged
	}
	stored.Status = d.Status
	stored.AcknowledgedAt = d.AcknowledgedAt
	stored.StartedAt = d.StartedAt
	stored.SubmittedAt = d.SubmittedAt
	stored.ReviewedAt = d.ReviewedAt
	stored.ReviewNotes = d.ReviewNotes
	return repo.load(stored), nil
}

func (repo *assignmentRepository) UpdateDueDate(
	_ context.Context,
	scope core.Scope,
	id string,
	dueDate time.Time,
) (assignment.Distribution, error) {
	if err := scope.RequireAdmin(); err != nil {
		return assignment.Distribution{}, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.FailWrites != nil {
		return assignment.Distribution{}, repo.db.FailWrites
	}
	stored, ok := repo.db.distributions[id]
	if !ok {
		return assignment.Distribution{}, assignment.ErrNotFound
	}
	stored.DueDate = dueDate
	return repo.load(stored), nil
}
