package dummydb

import (
	"sync"

	"github.com/gymhub/contentdesk/core/assignment"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/core/submission"
)

// DB is an in-memory record store. A single lock guards all tables so multi-table writes are atomic.
type DB struct {
	mu            sync.RWMutex
	gyms          map[string]*gym.Gym
	formats       map[string]*format.Format
	templates     map[string]*assignment.Template
	distributions map[string]*assignment.Distribution
	submissions   map[string]*submission.Submission

	// FailWrites makes every write fail with it when set.
	FailWrites error
}

func Open() *DB {
	return &DB{
		gyms:          make(map[string]*gym.Gym),
		formats:       make(map[string]*format.Format),
		templates:     make(map[string]*assignment.Template),
		distributions: make(map[string]*assignment.Distribution),
		submissions:   make(map[string]*submission.Submission),
	}
}

// Counts returns the number of templates, distributions and submissions stored.
func (db *DB) Counts() (templates, distributions, submissions int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.templates), len(db.distributions), len(db.submissions)
}
