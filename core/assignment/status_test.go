package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gymhub/contentdesk/core"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "assigned", want: StatusAssigned},
		{in: " In_Progress ", want: StatusInProgress},
		{in: "in-progress", want: StatusInProgress},
		{in: "needs-revision", want: StatusNeedsRevision},
		{in: "completed", want: StatusApproved},
		{in: "approved", want: StatusApproved},
		{in: "done", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		event   Event
		want    Status
		wantErr bool
	}{
		{name: "acknowledge", from: StatusAssigned, event: EventAcknowledge, want: StatusAcknowledged},
		{name: "start from assigned", from: StatusAssigned, event: EventStart, want: StatusInProgress},
		{name: "start from acknowledged", from: StatusAcknowledged, event: EventStart, want: StatusInProgress},
		{name: "submit", from: StatusInProgress, event: EventSubmit, want: StatusSubmitted},
		{name: "begin review", from: StatusSubmitted, event: EventBeginReview, want: StatusUnderReview},
		{name: "approve submitted", from: StatusSubmitted, event: EventApprove, want: StatusApproved},
		{name: "approve under review", from: StatusUnderReview, event: EventApprove, want: StatusApproved},
		{name: "request revision", from: StatusUnderReview, event: EventRequestRevision, want: StatusNeedsRevision},
		{name: "reject", from: StatusSubmitted, event: EventReject, want: StatusRejected},
		{name: "resume", from: StatusNeedsRevision, event: EventResume, want: StatusInProgress},
		{name: "assigned to submitted skips states", from: StatusAssigned, event: EventSubmit, wantErr: true},
		{name: "acknowledged to submitted skips states", from: StatusAcknowledged, event: EventSubmit, wantErr: true},
		{name: "approve in progress", from: StatusInProgress, event: EventApprove, wantErr: true},
		{name: "acknowledge twice", from: StatusAcknowledged, event: EventAcknowledge, wantErr: true},
		{name: "unknown event", from: StatusAssigned, event: Event("finish"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.event)
			if tt.wantErr {
				assert.Equal(t, core.KindValidation, core.KindOf(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_happyPath(t *testing.T) {
	status := StatusAssigned
	for _, event := range []Event{EventAcknowledge, EventStart, EventSubmit, EventBeginReview, EventApprove} {
		next, err := Transition(status, event)
		if !assert.NoError(t, err, "event %s from %s", event, status) {
			return
		}
		status = next
	}
	assert.Equal(t, StatusApproved, status)
}

func TestTransition_terminalNeverRegresses(t *testing.T) {
	events := []Event{
		EventAcknowledge, EventStart, EventSubmit, EventResume,
		EventBeginReview, EventApprove, EventRequestRevision, EventReject,
	}
	for _, terminal := range []Status{StatusApproved, StatusRejected} {
		assert.True(t, terminal.IsTerminal())
		for _, event := range events {
			_, err := Transition(terminal, event)
			assert.Error(t, err, "%s must not leave %s", event, terminal)
		}
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	assert.True(t, IsOverdue(yesterday, StatusInProgress, now))
	assert.True(t, IsOverdue(yesterday, StatusRejected, now))
	assert.False(t, IsOverdue(yesterday, StatusApproved, now))
	assert.False(t, IsOverdue(tomorrow, StatusAssigned, now))
	assert.False(t, IsOverdue(time.Time{}, StatusAssigned, now))
}

func TestLifecycleProgress(t *testing.T) {
	want := map[Status]int{
		StatusAssigned:      0,
		StatusAcknowledged:  20,
		StatusInProgress:    40,
		StatusNeedsRevision: 40,
		StatusSubmitted:     80,
		StatusUnderReview:   80,
		StatusApproved:      100,
		StatusRejected:      0,
	}
	for _, st := range AllStatuses {
		assert.Equal(t, want[st], LifecycleProgress(st), string(st))
	}
}

func TestIsAdminEvent(t *testing.T) {
	assert.False(t, IsAdminEvent(EventAcknowledge))
	assert.False(t, IsAdminEvent(EventResume))
	assert.True(t, IsAdminEvent(EventBeginReview))
	assert.True(t, IsAdminEvent(EventReject))
}
