// Package performance rates gyms on their assignment completion for the admin dashboard.
package performance

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
	"github.com/gymhub/contentdesk/core/gym"
)

type Status string

// Performance statuses, from worst to best
const (
	StatusCritical  Status = "critical"
	StatusWarning   Status = "warning"
	StatusGood      Status = "good"
	StatusExcellent Status = "excellent"
)

var severity = map[Status]int{StatusCritical: 0, StatusWarning: 1, StatusGood: 2, StatusExcellent: 3}

// Stats are a gym's assignment counters.
type Stats struct {
	TotalAssignments        int     `json:"total_assignments"`
	CompletedAssignments    int     `json:"completed_assignments"`
	OverdueAssignments      int     `json:"overdue_assignments"`
	AverageResponseTimeDays float64 `json:"average_response_time_days"`
}

// CompletionRate is the rounded completed percentage, 0 without assignments.
func CompletionRate(s Stats) int {
	if s.TotalAssignments <= 0 {
		return 0
	}
	return int(math.Round(float64(s.CompletedAssignments) / float64(s.TotalAssignments) * 100))
}

// Classify applies the first matching rule. A gym without assignments has no data to rate and is a warning.
func Classify(s Stats) Status {
	rate := CompletionRate(s)
	switch {
	case s.TotalAssignments == 0:
		return StatusWarning
	case s.OverdueAssignments > 0 || rate < 50:
		return StatusCritical
	case rate < 80 || s.AverageResponseTimeDays > 7:
		return StatusWarning
	case rate < 95:
		return StatusGood
	default:
		return StatusExcellent
	}
}

// Summarize computes the Stats of gymID's distributions at now.
// The response time of a distribution is the time from its creation to its submission.
// The mean is kept unrounded so Classify sees the exact value.
func Summarize(gymID string, dists []assignment.Distribution, now time.Time) Stats {
	var (
		s         Stats
		responded int
		totalDays float64
	)
	for _, d := range dists {
		if d.GymID != gymID {
			continue
		}
		s.TotalAssignments++
		if d.Status.IsDone() {
			s.CompletedAssignments++
		}
		if assignment.IsOverdue(d.DueDate, d.Status, now) {
			s.OverdueAssignments++
		}
		if d.SubmittedAt != nil && !d.SubmittedAt.Before(d.CreatedAt) {
			responded++
			totalDays += d.SubmittedAt.Sub(d.CreatedAt).Hours() / 24
		}
	}
	if responded > 0 {
		s.AverageResponseTimeDays = totalDays / float64(responded)
	}
	return s
}

// GymPerformance is one dashboard row. Its average response time is rounded to a tenth of a day.
type GymPerformance struct {
	GymID          string `json:"gym_id"`
	GymName        string `json:"gym_name"`
	Location       string `json:"location"`
	Stats          Stats  `json:"stats"`
	CompletionRate int    `json:"completion_rate"`
	Status         Status `json:"status"`
}

type (
	GymLister interface {
		Query(ctx context.Context, scope core.Scope, filter *gym.QueryFilter) ([]gym.Gym, error)
	}

	DistributionLister interface {
		Query(ctx context.Context, scope core.Scope, filter *assignment.QueryFilter, ordering []core.DBOrdering) ([]assignment.View, error)
	}

	Service interface {
		// Dashboard rates every active member gym, worst first.
		Dashboard(ctx context.Context, scope core.Scope) ([]GymPerformance, error)
	}

	service struct {
		gyms  GymLister
		dists DistributionLister
		now   func() time.Time
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(gyms GymLister, dists DistributionLister) Service {
	return &service{
		gyms:  gyms,
		dists: dists,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (svc *service) Dashboard(ctx context.Context, scope core.Scope) ([]GymPerformance, error) {
	if err := scope.RequireAdmin(); err != nil {
		return nil, err
	}

	active := true
	gyms, err := svc.gyms.Query(ctx, scope, &gym.QueryFilter{Role: gym.RoleMember, IsActive: &active})
	if err != nil {
		return nil, errors.Wrap(err, "querying gyms")
	}
	views, err := svc.dists.Query(ctx, scope, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying distributions")
	}
	dists := make([]assignment.Distribution, 0, len(views))
	for _, v := range views {
		dists = append(dists, v.Distribution)
	}

	now := svc.now()
	rows := make([]GymPerformance, 0, len(gyms))
	for _, g := range gyms {
		stats := Summarize(g.ID, dists, now)
		shown := stats
		shown.AverageResponseTimeDays = math.Round(stats.AverageResponseTimeDays*10) / 10
		rows = append(rows, GymPerformance{
			GymID:          g.ID,
			GymName:        g.Name,
			Location:       g.Location,
			Stats:          shown,
			CompletionRate: CompletionRate(stats),
			Status:         Classify(stats),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if si, sj := severity[rows[i].Status], severity[rows[j].Status]; si != sj {
			return si < sj
		}
		return rows[i].GymName < rows[j].GymName
	})
	return rows, nil
}
