package performance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
	"github.com/gymhub/contentdesk/core/gym"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		stats    Stats
		wantRate int
		want     Status
	}{
		{name: "no assignments", stats: Stats{}, wantRate: 0, want: StatusWarning},
		{name: "overdue", stats: Stats{TotalAssignments: 10, CompletedAssignments: 10, OverdueAssignments: 1}, wantRate: 100, want: StatusCritical},
		{name: "low completion", stats: Stats{TotalAssignments: 10, CompletedAssignments: 4}, wantRate: 40, want: StatusCritical},
		{name: "half done", stats: Stats{TotalAssignments: 10, CompletedAssignments: 5}, wantRate: 50, want: StatusWarning},
		{name: "slow responses", stats: Stats{TotalAssignments: 10, CompletedAssignments: 10, AverageResponseTimeDays: 7.5}, wantRate: 100, want: StatusWarning},
		{name: "good", stats: Stats{TotalAssignments: 10, CompletedAssignments: 9, AverageResponseTimeDays: 3}, wantRate: 90, want: StatusGood},
		{name: "just under excellent", stats: Stats{TotalAssignments: 100, CompletedAssignments: 94}, wantRate: 94, want: StatusGood},
		{name: "excellent", stats: Stats{TotalAssignments: 20, CompletedAssignments: 19, AverageResponseTimeDays: 7}, wantRate: 95, want: StatusExcellent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRate, CompletionRate(tt.stats))
			assert.Equal(t, tt.want, Classify(tt.stats))
		})
	}
}

var now = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func dist(gymID string, status assignment.Status, dueInDays int, respondedInDays float64) assignment.Distribution {
	created := now.AddDate(0, 0, -10)
	d := assignment.Distribution{
		GymID:     gymID,
		Status:    status,
		CreatedAt: created,
		DueDate:   now.AddDate(0, 0, dueInDays),
	}
	if respondedInDays > 0 {
		at := created.Add(time.Duration(respondedInDays * 24 * float64(time.Hour)))
		d.SubmittedAt = &at
	}
	return d
}

func TestSummarize(t *testing.T) {
	dists := []assignment.Distribution{
		dist("g1", assignment.StatusApproved, -2, 2),
		dist("g1", assignment.StatusApproved, 5, 3),
		dist("g1", assignment.StatusInProgress, -1, 0),
		dist("g1", assignment.StatusSubmitted, 3, 4.5),
		dist("g2", assignment.StatusApproved, 1, 1),
	}

	s := Summarize("g1", dists, now)
	assert.Equal(t, 4, s.TotalAssignments)
	assert.Equal(t, 2, s.CompletedAssignments)
	assert.Equal(t, 1, s.OverdueAssignments)
	assert.InDelta(t, 9.5/3, s.AverageResponseTimeDays, 1e-9)
	assert.Equal(t, StatusCritical, Classify(s))

	assert.Equal(t, Stats{}, Summarize("g3", dists, now))
}

func TestSummarize_responseTimeBoundary(t *testing.T) {
	tests := []struct {
		name      string
		responded float64
		want      Status
	}{
		{name: "exactly a week", responded: 7, want: StatusExcellent},
		{name: "just over a week", responded: 7.04, want: StatusWarning},
		{name: "well over a week", responded: 7.5, want: StatusWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize("g1", []assignment.Distribution{dist("g1", assignment.StatusApproved, 3, tt.responded)}, now)
			assert.Equal(t, tt.want, Classify(s))
		})
	}
}

func TestService_Dashboard_roundsResponseTime(t *testing.T) {
	gyms := fakeGyms{{ID: "g1", Name: "Downtown", Role: gym.RoleMember, IsActive: true}}
	dists := fakeDists{dist("g1", assignment.StatusApproved, 3, 7.04)}
	svc := &service{gyms: gyms, dists: dists, now: func() time.Time { return now }}

	rows, err := svc.Dashboard(context.Background(), core.AdminScope("hq"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7.0, rows[0].Stats.AverageResponseTimeDays)
	assert.Equal(t, StatusWarning, rows[0].Status)
}

type fakeGyms []gym.Gym

func (f fakeGyms) Query(_ context.Context, _ core.Scope, filter *gym.QueryFilter) ([]gym.Gym, error) {
	var out []gym.Gym
	for _, g := range f {
		if filter.Role != "" && g.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && g.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

type fakeDists []assignment.Distribution

func (f fakeDists) Query(context.Context, core.Scope, *assignment.QueryFilter, []core.DBOrdering) ([]assignment.View, error) {
	views := make([]assignment.View, 0, len(f))
	for _, d := range f {
		views = append(views, assignment.NewView(d, now))
	}
	return views, nil
}

func TestService_Dashboard(t *testing.T) {
	gyms := fakeGyms{
		{ID: "hq", Name: "HQ", Role: gym.RoleAdmin, IsActive: true},
		{ID: "g1", Name: "Downtown", Role: gym.RoleMember, IsActive: true},
		{ID: "g2", Name: "Riverside", Role: gym.RoleMember, IsActive: true},
		{ID: "g3", Name: "Alpine", Role: gym.RoleMember, IsActive: true},
		{ID: "g4", Name: "Closed", Role: gym.RoleMember, IsActive: false},
	}
	var dists fakeDists
	for i := 0; i < 9; i++ {
		dists = append(dists, dist("g1", assignment.StatusApproved, 3, 2))
	}
	dists = append(dists, dist("g1", assignment.StatusInProgress, 3, 0))
	dists = append(dists, dist("g2", assignment.StatusAssigned, -1, 0))

	svc := &service{gyms: gyms, dists: dists, now: func() time.Time { return now }}

	rows, err := svc.Dashboard(context.Background(), core.AdminScope("hq"))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Riverside", rows[0].GymName)
	assert.Equal(t, StatusCritical, rows[0].Status)
	assert.Equal(t, "Alpine", rows[1].GymName)
	assert.Equal(t, StatusWarning, rows[1].Status)
	assert.Zero(t, rows[1].CompletionRate)
	assert.Equal(t, "Downtown", rows[2].GymName)
	assert.Equal(t, StatusGood, rows[2].Status)
	assert.Equal(t, 90, rows[2].CompletionRate)

	_, err = svc.Dashboard(context.Background(), core.MemberScope("g1"))
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))
}
