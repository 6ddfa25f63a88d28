package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmissions(
	_ context.Context,
	scope core.Scope,
	subs []submission.Submission,
	supersededID string,
) ([]submission.Submission, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	for _, s := range subs {
		if err := scope.RequireAccess(s.GymID); err != nil {
			return nil, err
		}
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.FailWrites != nil {
		return nil, repo.db.FailWrites
	}
	var replaced *submission.Submission
	if supersededID != "" {
		prev, ok := repo.db.submissions[supersededID]
		if !ok || !scope.CanAccess(prev.GymID) || prev.Superseded {
			return nil, submission.ErrNotFound
		}
		replaced = prev
	}

	out := make([]submission.Submission, 0, len(subs))
	for _, s := range subs {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		stored := s
		repo.db.submissions[s.ID] = &stored
		out = append(out, s)
	}
	if replaced != nil {
		replaced.Superseded = true
	}
	return out, nil
}

func (repo *submissionRepository) GetSubmission(_ context.Context, scope core.Scope, id string) (submission.Submission, error) {
	if err := scope.Check(); err != nil {
		return submission.Submission{}, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.submissions[id]; ok && scope.CanAccess(s.GymID) {
		return *s, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) QuerySubmissions(
	_ context.Context,
	scope core.Scope,
	filter *submission.QueryFilter,
) ([]submission.Submission, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]submission.Submission, 0, len(repo.db.submissions))
	for _, s := range repo.db.submissions {
		if !scope.CanAccess(s.GymID) {
			continue
		}
		if filter != nil {
			if filter.GymID != "" && s.GymID != filter.GymID {
				continue
			}
			if filter.FormatID != "" && s.FormatID != filter.FormatID {
				continue
			}
			if filter.Status != "" && s.Status != filter.Status {
				continue
			}
			if s.Superseded && !filter.IncludeSuperseded {
				continue
			}
		}
		subs = append(subs, *s)
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (repo *submissionRepository) ReviewSubmission(
	_ context.Context,
	scope core.Scope,
	s submission.Submission,
) (submission.Submission, error) {
	if err := scope.RequireAdmin(); err != nil {
		return submission.Submission{}, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.FailWrites != nil {
		return submission.Submission{}, repo.db.FailWrites
	}
	stored, ok := repo.db.submissions[s.ID]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	if stored.Status != submission.StatusPending || stored.Superseded {
		return submission.Submission{}, submission.ErrNotPending
	}
	stored.Status = s.Status
	stored.FeedbackNotes = s.FeedbackNotes
	stored.ReviewedAt = s.ReviewedAt
	return *stored, nil
}
