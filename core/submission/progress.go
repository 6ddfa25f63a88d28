package submission

import (
	"math"
	"sort"
	"time"
)

// Progress is the per (gym, format) submission tally. It is derived on every read, never stored.
type Progress struct {
	GymID              string     `json:"gym_id"`
	FormatID           string     `json:"format_id"`
	CompletedCount     int        `json:"completed_count"`
	PendingCount       int        `json:"pending_count"`
	RevisionCount      int        `json:"revision_count"`
	LastSubmissionDate *time.Time `json:"last_submission_date"`
}

// Total is the number of live submissions counted.
func (p Progress) Total() int {
	return p.CompletedCount + p.PendingCount + p.RevisionCount
}

func (p *Progress) add(s Submission) {
	switch s.Status {
	case StatusApproved:
		p.CompletedCount++
	case StatusPending:
		p.PendingCount++
	case StatusNeedsRevision, StatusRejected:
		p.RevisionCount++
	default:
		return
	}
	if p.LastSubmissionDate == nil || s.SubmittedAt.After(*p.LastSubmissionDate) {
		at := s.SubmittedAt
		p.LastSubmissionDate = &at
	}
}

// Aggregate tallies the submissions of gymID for formatID. Superseded submissions are not counted.
func Aggregate(gymID, formatID string, subs []Submission) Progress {
	p := Progress{GymID: gymID, FormatID: formatID}
	for _, s := range subs {
		if s.Superseded || s.GymID != gymID || s.FormatID != formatID {
			continue
		}
		p.add(s)
	}
	return p
}

// AggregateAll tallies subs for every (gym, format) pair present, ordered by gym then format.
func AggregateAll(subs []Submission) []Progress {
	type key struct{ gym, format string }
	byKey := make(map[key]*Progress)
	for _, s := range subs {
		if s.Superseded {
			continue
		}
		k := key{s.GymID, s.FormatID}
		p, ok := byKey[k]
		if !ok {
			p = &Progress{GymID: s.GymID, FormatID: s.FormatID}
			byKey[k] = p
		}
		p.add(s)
	}

	out := make([]Progress, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GymID != out[j].GymID {
			return out[i].GymID < out[j].GymID
		}
		return out[i].FormatID < out[j].FormatID
	})
	return out
}

// UploadProgress is the completed share of a quota as a rounded percentage in [0, 100].
func UploadProgress(completed, required int) int {
	if required <= 0 || completed <= 0 {
		return 0
	}
	pct := int(math.Round(float64(completed) / float64(required) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// FormatProgress is a gym's Progress on one catalog format, with its quota.
type FormatProgress struct {
	Progress
	FormatKey     string `json:"format_key"`
	FormatTitle   string `json:"format_title"`
	FormatType    string `json:"format_type"`
	TotalRequired int    `json:"total_required"`
	Percentage    int    `json:"percentage"`
}
