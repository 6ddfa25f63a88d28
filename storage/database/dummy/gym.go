package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/gym"
)

type gymRepository struct {
	db *DB
}

var _ gym.Repository = (*gymRepository)(nil) // interface compliance check

func NewGymRepository(db *DB) gym.Repository {
	return &gymRepository{db: db}
}

func (repo *gymRepository) CreateGym(_ context.Context, g gym.Gym) (gym.Gym, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.FailWrites != nil {
		return gym.Gym{}, repo.db.FailWrites
	}
	for _, existing := range repo.db.gyms {
		if existing.PINLookup == g.PINLookup {
			return gym.Gym{}, core.NewValidationError(gym.ErrPINInUse, core.FieldError{Field: "pin", Error: gym.ErrPINInUse.Error()})
		}
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	repo.db.gyms[g.ID] = &g
	return g, nil
}

func (repo *gymRepository) GetGym(_ context.Context, scope core.Scope, id string) (gym.Gym, error) {
	if err := scope.Check(); err != nil {
		return gym.Gym{}, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if g, ok := repo.db.gyms[id]; ok && scope.CanAccess(g.ID) {
		return *g, nil
	}
	return gym.Gym{}, gym.ErrNotFound
}

func (repo *gymRepository) GetGymByPINLookup(_ context.Context, lookup string) (gym.Gym, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, g := range repo.db.gyms {
		if g.PINLookup == lookup {
			return *g, nil
		}
	}
	return gym.Gym{}, gym.ErrNotFound
}

func (repo *gymRepository) QueryGyms(_ context.Context, scope core.Scope, filter *gym.QueryFilter) ([]gym.Gym, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	gyms := make([]gym.Gym, 0, len(repo.db.gyms))
	for _, g := range repo.db.gyms {
		if !scope.CanAccess(g.ID) {
			continue
		}
		if filter != nil {
			if filter.Role != "" && g.Role != filter.Role {
				continue
			}
			if filter.IsActive != nil && g.IsActive != *filter.IsActive {
				continue
			}
			if s := strings.ToLower(filter.Search); s != "" &&
				!strings.Contains(strings.ToLower(g.Name), s) &&
				!strings.Contains(strings.ToLower(g.Location), s) {
				continue
			}
		}
		gyms = append(gyms, *g)
	}
	sort.Slice(gyms, func(i, j int) bool { return gyms[i].Name < gyms[j].Name })
	return gyms, nil
}

func (repo *gymRepository) UpdateGym(_ context.Context, scope core.Scope, g gym.Gym) (gym.Gym, error) {
	if err := scope.RequireAccess(g.ID); err != nil {
		return gym.Gym{}, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.FailWrites != nil {
		return gym.Gym{}, repo.db.FailWrites
	}
	if _, ok := repo.db.gyms[g.ID]; !ok {
		return gym.Gym{}, gym.ErrNotFound
	}
	repo.db.gyms[g.ID] = &g
	return g, nil
}
