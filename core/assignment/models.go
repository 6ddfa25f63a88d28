package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gymhub/contentdesk/core"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var AllPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Template is the master definition of an assignment. It is never edited once distributed.
type Template struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Priority        string    `json:"priority"`
	FormatsRequired []string  `json:"formats_required"`
	ClipsRequired   *int      `json:"clips_required"`
	SetupPlanning   string    `json:"setup_planning"`
	ProductionTips  string    `json:"production_tips"`
	CreatedByID     string    `json:"created_by_id"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

// Distribution is the per-gym instance of a Template: the unit whose lifecycle is tracked.
type Distribution struct {
	ID                string     `json:"id"`
	TemplateID        string     `json:"template_id"`
	GymID             string     `json:"gym_id"`
	GymName           string     `json:"gym_name,omitempty"`
	CustomTitle       string     `json:"custom_title,omitempty"`
	CustomDescription string     `json:"custom_description,omitempty"`
	DueDate           time.Time  `json:"due_date"` // UTC
	Status            Status     `json:"status"`
	PriorityOverride  string     `json:"priority_override,omitempty"`
	ReviewNotes       string     `json:"review_notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"` // UTC
	AcknowledgedAt    *time.Time `json:"acknowledged_at"`
	StartedAt         *time.Time `json:"started_at"`
	SubmittedAt       *time.Time `json:"submitted_at"`
	ReviewedAt        *time.Time `json:"reviewed_at"`

	// Template is loaded along with the distribution on reads.
	Template Template `json:"-"`
}

// Title is the custom title if any, the template's otherwise.
func (d Distribution) Title() string {
	if d.CustomTitle != "" {
		return d.CustomTitle
	}
	return d.Template.Title
}

func (d Distribution) Description() string {
	if d.CustomDescription != "" {
		return d.CustomDescription
	}
	return d.Template.Description
}

func (d Distribution) Priority() string {
	if d.PriorityOverride != "" {
		return d.PriorityOverride
	}
	return d.Template.Priority
}

// stamp sets the timestamp matching the status d is moving to.
func (d *Distribution) stamp(to Status, now time.Time) {
	switch to {
	case StatusAcknowledged:
		d.AcknowledgedAt = &now
	case StatusInProgress:
		d.StartedAt = &now
	case StatusSubmitted:
		d.SubmittedAt = &now
	case StatusApproved, StatusNeedsRevision, StatusRejected:
		d.ReviewedAt = &now
	}
	d.Status = to
}

// View is a Distribution as shown to clients, with the values derived at read time.
type View struct {
	Distribution
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Priority          string            `json:"priority"`
	FormatsRequired   []string          `json:"formats_required"`
	ClipsRequired     *int              `json:"clips_required"`
	SetupPlanning     string            `json:"setup_planning"`
	ProductionTips    string            `json:"production_tips"`
	IsOverdue         bool              `json:"is_overdue"`
	LifecycleProgress int               `json:"lifecycle_progress"`
	StatusDisplay     StatusDisplayInfo `json:"status_display"`
}

func NewView(d Distribution, now time.Time) View {
	return View{
		Distribution:      d,
		Title:             d.Title(),
		Description:       d.Description(),
		Priority:          d.Priority(),
		FormatsRequired:   d.Template.FormatsRequired,
		ClipsRequired:     d.Template.ClipsRequired,
		SetupPlanning:     d.Template.SetupPlanning,
		ProductionTips:    d.Template.ProductionTips,
		IsOverdue:         IsOverdue(d.DueDate, d.Status, now),
		LifecycleProgress: LifecycleProgress(d.Status),
		StatusDisplay:     d.Status.DisplayInfo(),
	}
}

// NewAssignment contains information needed to create a Template and distribute it to gyms.
type NewAssignment struct {
	Title           string    `json:"title" validate:"required,notblank"`
	Description     string    `json:"description"`
	Priority        string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	FormatsRequired []string  `json:"formats_required" validate:"notempty,dive,required"`
	ClipsRequired   *int      `json:"clips_required" validate:"omitempty,min=0"`
	SetupPlanning   string    `json:"setup_planning"`
	ProductionTips  string    `json:"production_tips"`
	DueDate         time.Time `json:"due_date" validate:"required"`
	GymIDs          []string  `json:"gym_ids" validate:"notempty,dive,required"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Priority = core.CleanString(na.Priority, true /* lower */)
	if na.Priority == "" {
		na.Priority = PriorityMedium
	}
	na.FormatsRequired = core.CleanStrings(na.FormatsRequired, true /* lower */)
	na.GymIDs = uniqueStrings(core.CleanStrings(na.GymIDs))
	if !na.DueDate.IsZero() {
		na.DueDate = na.DueDate.UTC()
	}
	return validate.Struct(na)
}

// ReviewDistribution is an admin's decision on a submitted distribution.
type ReviewDistribution struct {
	Decision string `json:"decision" validate:"required,oneof=approve request_revision reject"`
	Notes    string `json:"notes"`
}

func (rd *ReviewDistribution) Validate(validate *validator.Validate) error {
	rd.Decision = core.CleanString(rd.Decision, true /* lower */)
	rd.Notes = core.CleanString(rd.Notes)
	return validate.Struct(rd)
}

type ExtendDueDate struct {
	DueDate time.Time `json:"due_date" validate:"required"`
}

func (ed *ExtendDueDate) Validate(validate *validator.Validate) error {
	if !ed.DueDate.IsZero() {
		ed.DueDate = ed.DueDate.UTC()
	}
	return validate.Struct(ed)
}

type QueryFilter struct {
	Status     string `query:"status"`
	GymID      string `query:"gym_id"`
	TemplateID string `query:"template_id"`
	Overdue    *bool  `query:"overdue"`

	statuses []Status
}

// Clean normalizes the filter. Status accepts a comma separated list.
func (qf *QueryFilter) Clean() error {
	qf.GymID = core.CleanString(qf.GymID)
	qf.TemplateID = core.CleanString(qf.TemplateID)
	qf.statuses = nil
	for _, s := range splitList(qf.Status) {
		st, err := ParseStatus(s)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
		}
		qf.statuses = append(qf.statuses, st)
	}
	return nil
}

// Statuses returns the parsed status filter, empty for all statuses.
func (qf *QueryFilter) Statuses() []Status {
	return qf.statuses
}
