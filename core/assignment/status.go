package assignment

import (
	"fmt"
	"time"

	"github.com/gymhub/contentdesk/core"
)

type Status string

// Distribution statuses
const (
	StatusAssigned      Status = "assigned"
	StatusAcknowledged  Status = "acknowledged"
	StatusInProgress    Status = "in_progress"
	StatusSubmitted     Status = "submitted"
	StatusUnderReview   Status = "under_review"
	StatusApproved      Status = "approved"
	StatusNeedsRevision Status = "needs_revision"
	StatusRejected      Status = "rejected"

	// statusCompleted is only accepted as input: it is a synonym of StatusApproved.
	statusCompleted = "completed"
)

var AllStatuses = []Status{
	StatusAssigned, StatusAcknowledged, StatusInProgress, StatusSubmitted,
	StatusUnderReview, StatusApproved, StatusNeedsRevision, StatusRejected,
}

// ParseStatus normalizes s to a Status. Dashes are accepted for underscores and
// "completed" collapses into StatusApproved.
func ParseStatus(s string) (Status, error) {
	s = core.CleanString(s, true /* lower */)
	switch s {
	case statusCompleted:
		return StatusApproved, nil
	case "in-progress":
		return StatusInProgress, nil
	case "under-review":
		return StatusUnderReview, nil
	case "needs-revision":
		return StatusNeedsRevision, nil
	}
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// IsDone reports whether the work is finished: the one terminal "done" value.
func (s Status) IsDone() bool {
	return s == StatusApproved
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Event string

// Lifecycle events
const (
	EventAcknowledge     Event = "acknowledge"
	EventStart           Event = "start"
	EventSubmit          Event = "submit"
	EventResume          Event = "resume"
	EventBeginReview     Event = "begin_review"
	EventApprove         Event = "approve"
	EventRequestRevision Event = "request_revision"
	EventReject          Event = "reject"
)

type transition struct {
	from  []Status
	to    Status
	admin bool // actor: admin, else the gym the distribution belongs to
}

var transitions = map[Event]transition{
	EventAcknowledge:     {from: []Status{StatusAssigned}, to: StatusAcknowledged},
	EventStart:           {from: []Status{StatusAssigned, StatusAcknowledged}, to: StatusInProgress},
	EventSubmit:          {from: []Status{StatusInProgress}, to: StatusSubmitted},
	EventResume:          {from: []Status{StatusNeedsRevision}, to: StatusInProgress},
	EventBeginReview:     {from: []Status{StatusSubmitted}, to: StatusUnderReview, admin: true},
	EventApprove:         {from: []Status{StatusSubmitted, StatusUnderReview}, to: StatusApproved, admin: true},
	EventRequestRevision: {from: []Status{StatusSubmitted, StatusUnderReview}, to: StatusNeedsRevision, admin: true},
	EventReject:          {from: []Status{StatusSubmitted, StatusUnderReview}, to: StatusRejected, admin: true},
}

// ReviewEvents maps review decisions to their events.
var ReviewEvents = map[string]Event{
	"approve":          EventApprove,
	"request_revision": EventRequestRevision,
	"reject":           EventReject,
}

// Transition returns the status event leads to from the current status, or a
// ValidationError if the lifecycle does not allow it (no state is ever skipped).
func Transition(from Status, event Event) (Status, error) {
	tr, ok := transitions[event]
	if !ok {
		return "", core.NewValidationError(nil, core.FieldError{Field: "event", Error: fmt.Sprintf("unknown event %q", event)})
	}
	for _, st := range tr.from {
		if st == from {
			return tr.to, nil
		}
	}
	return "", newInvalidTransitionError(from, tr.to)
}

// IsAdminEvent reports whether event is performed by an admin rather than by the gym.
func IsAdminEvent(event Event) bool {
	return transitions[event].admin
}

func newInvalidTransitionError(from, to Status) error {
	msg := fmt.Sprintf("cannot move from %s to %s", from, to)
	return core.NewValidationError(nil, core.FieldError{Field: "status", Error: msg})
}

// IsOverdue is the overdue predicate. It depends on now, so it is computed on every read and never stored.
func IsOverdue(dueDate time.Time, status Status, now time.Time) bool {
	return !dueDate.IsZero() && dueDate.Before(now) && !status.IsDone()
}

// LifecycleProgress is the status based progress proxy shown on assignment progress bars.
// It deliberately ignores uploads: see submission.UploadProgress for upload counts.
func LifecycleProgress(status Status) int {
	switch status {
	case StatusApproved:
		return 100
	case StatusSubmitted, StatusUnderReview:
		return 80
	case StatusInProgress, StatusNeedsRevision:
		return 40
	case StatusAcknowledged:
		return 20
	default:
		return 0
	}
}

// StatusDisplayInfo contains display information for a distribution status
type StatusDisplayInfo struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var statusDisplay = map[Status]StatusDisplayInfo{
	StatusAssigned:      {Label: "Assigned", Color: "#8C8C8C"},
	StatusAcknowledged:  {Label: "Acknowledged", Color: "#4EC6E0"},
	StatusInProgress:    {Label: "In Progress", Color: "#FFA500"},
	StatusSubmitted:     {Label: "Submitted", Color: "#0066CC"},
	StatusUnderReview:   {Label: "Under Review", Color: "#0052A3"},
	StatusApproved:      {Label: "Approved", Color: "#28a745"},
	StatusNeedsRevision: {Label: "Needs Revision", Color: "#dc3545"},
	StatusRejected:      {Label: "Rejected", Color: "#666666"},
}

func (s Status) DisplayInfo() StatusDisplayInfo {
	if info, ok := statusDisplay[s]; ok {
		return info
	}
	return StatusDisplayInfo{Label: string(s), Color: "#8C8C8C"}
}
