package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/gymhub/contentdesk/core/format"
)

type formatRepository struct {
	db *DB
}

var _ format.Repository = (*formatRepository)(nil) // interface compliance check

func NewFormatRepository(db *DB) format.Repository {
	return &formatRepository{db: db}
}

func (repo *formatRepository) CreateFormat(_ context.Context, f format.Format) (format.Format, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.FailWrites != nil {
		return format.Format{}, repo.db.FailWrites
	}
	for _, existing := range repo.db.formats {
		if existing.Key == f.Key {
			return format.Format{}, format.ErrKeyExists
		}
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	repo.db.formats[f.ID] = &f
	return f, nil
}

func (repo *formatRepository) GetFormat(_ context.Context, id string) (format.Format, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if f, ok := repo.db.formats[id]; ok {
		return *f, nil
	}
	return format.Format{}, format.ErrNotFound
}

func (repo *formatRepository) GetFormatByKey(_ context.Context, key string) (format.Format, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, f := range repo.db.formats {
		if f.Key == key {
			return *f, nil
		}
	}
	return format.Format{}, format.ErrNotFound
}

func (repo *formatRepository) QueryFormats(_ context.Context, filter *format.QueryFilter) ([]format.Format, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var keys map[string]bool
	if filter != nil && len(filter.Keys) > 0 {
		keys = make(map[string]bool, len(filter.Keys))
		for _, k := range filter.Keys {
			keys[k] = true
		}
	}

	formats := make([]format.Format, 0, len(repo.db.formats))
	for _, f := range repo.db.formats {
		if filter != nil && filter.Type != "" && f.Type != filter.Type {
			continue
		}
		if keys != nil && !keys[f.Key] {
			continue
		}
		formats = append(formats, *f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i].Key < formats[j].Key })
	return formats, nil
}

func (repo *formatRepository) UpdateFormat(_ context.Context, f format.Format) (format.Format, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.FailWrites != nil {
		return format.Format{}, repo.db.FailWrites
	}
	if _, ok := repo.db.formats[f.ID]; !ok {
		return format.Format{}, format.ErrNotFound
	}
	repo.db.formats[f.ID] = &f
	return f, nil
}
