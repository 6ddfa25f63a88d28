package submission

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gymhub/contentdesk/core"
)

// Submission statuses
const (
	StatusPending       = "pending"
	StatusApproved      = "approved"
	StatusNeedsRevision = "needs_revision"
	StatusRejected      = "rejected"
)

var AllStatuses = []string{StatusPending, StatusApproved, StatusNeedsRevision, StatusRejected}

// Submission is one uploaded file counted against a format's quota.
type Submission struct {
	ID            string     `json:"id"`
	FormatID      string     `json:"format_id"`
	GymID         string     `json:"gym_id"`
	FileName      string     `json:"file_name"`
	FilePath      string     `json:"file_path"`
	FileType      string     `json:"file_type"`
	FileURL       string     `json:"file_url"`
	Status        string     `json:"status"`
	FeedbackNotes string     `json:"feedback_notes,omitempty"`
	ReplacesID    string     `json:"replaces_id,omitempty"`
	Superseded    bool       `json:"superseded"`
	SubmittedAt   time.Time  `json:"submitted_at"` // UTC
	ReviewedAt    *time.Time `json:"reviewed_at"`
}

// Resubmittable reports whether a replacement may be uploaded for s.
func (s Submission) Resubmittable() bool {
	return !s.Superseded && (s.Status == StatusNeedsRevision || s.Status == StatusRejected)
}

// File is a file received for upload. Open may be called more than once.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileResult is the outcome of one file of a batch.
type FileResult struct {
	FileName string `json:"file_name"`
	FilePath string `json:"file_path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchError is returned when at least one file of a batch could not be stored.
// None of the batch's submissions are recorded then.
type BatchError struct {
	Results []FileResult
	err     error
}

func (err *BatchError) Error() string {
	var failed int
	for _, r := range err.Results {
		if r.Error != "" {
			failed++
		}
	}
	return fmt.Sprintf("%d of %d uploads failed", failed, len(err.Results))
}

// Unwrap exposes the first upload failure.
func (err *BatchError) Unwrap() error { return err.err }

// ReviewSubmission is an admin's decision on a pending submission.
type ReviewSubmission struct {
	Status        string `json:"status" validate:"required,oneof=approved needs_revision rejected"`
	FeedbackNotes string `json:"feedback_notes"`
}

func (rs *ReviewSubmission) Validate(validate *validator.Validate) error {
	rs.Status = core.CleanString(rs.Status, true /* lower */)
	if rs.Status == "completed" {
		rs.Status = StatusApproved
	}
	rs.Status = strings.ReplaceAll(rs.Status, "-", "_")
	rs.FeedbackNotes = core.CleanString(rs.FeedbackNotes)
	return validate.Struct(rs)
}

type QueryFilter struct {
	GymID             string `query:"gym_id"`
	FormatID          string `query:"format_id"`
	Status            string `query:"status"`
	IncludeSuperseded bool   `query:"include_superseded"`
}

func (qf *QueryFilter) Clean() {
	qf.GymID = core.CleanString(qf.GymID)
	qf.FormatID = core.CleanString(qf.FormatID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
