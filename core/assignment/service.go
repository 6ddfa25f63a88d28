package assignment

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("assignment not found")
	// ErrStatusChanged is returned by Repository.UpdateStatus when the stored status is no longer the expected one.
	ErrStatusChanged = errors.New("distribution status changed concurrently")

	errPastDueDate = "due date must be in the future"
)

type (
	Repository interface {
		// CreateAssignment inserts the template and all its distributions in one transaction.
		CreateAssignment(ctx context.Context, scope core.Scope, t Template, ds []Distribution) (Template, []Distribution, error)
		GetDistribution(ctx context.Context, scope core.Scope, id string) (Distribution, error)
		QueryDistributions(ctx context.Context, scope core.Scope, filter *QueryFilter, ordering []core.DBOrdering) ([]Distribution, error)
		// UpdateStatus writes d's status, timestamps and review notes if the stored status still is from.
		UpdateStatus(ctx context.Context, scope core.Scope, from Status, d Distribution) (Distribution, error)
		UpdateDueDate(ctx context.Context, scope core.Scope, id string, dueDate time.Time) (Distribution, error)
	}

	// GymFinder resolves distribution targets.
	GymFinder interface {
		Get(ctx context.Context, scope core.Scope, id string) (gym.Gym, error)
	}

	// FormatFinder resolves the format keys an assignment requires.
	FormatFinder interface {
		ByKeys(ctx context.Context, keys []string) ([]format.Format, []string, error)
	}

	Service interface {
		// Create validates na, then stores its template and one assigned distribution per gym, atomically.
		Create(ctx context.Context, scope core.Scope, na NewAssignment) (Template, []View, error)
		Get(ctx context.Context, scope core.Scope, id string) (View, error)
		Query(ctx context.Context, scope core.Scope, filter *QueryFilter, ordering []core.DBOrdering) ([]View, error)
		// Act applies a lifecycle event to the distribution.
		Act(ctx context.Context, scope core.Scope, id string, event Event) (View, error)
		Review(ctx context.Context, scope core.Scope, id string, rd ReviewDistribution) (View, error)
		ExtendDueDate(ctx context.Context, scope core.Scope, id string, ed ExtendDueDate) (View, error)
	}

	Deps struct {
		Repo       Repository
		Gyms       GymFinder
		Formats    FormatFinder
		Mailer     core.EmailService
		Logger     core.Logger
		Conf       *core.Config
		Validate   *validator.Validate
		Translator ut.Translator
	}

	service struct {
		Deps
		now func() time.Time
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(deps Deps) Service {
	return &service{
		Deps: deps,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (svc *service) Create(ctx context.Context, scope core.Scope, na NewAssignment) (Template, []View, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Template{}, nil, err
	}

	var fields []core.FieldError
	if err := na.Validate(svc.Validate); err != nil {
		var vErr *core.ValidationError
		if !errors.As(core.TranslateValidationErrors(err, svc.Translator), &vErr) {
			return Template{}, nil, errors.Wrap(err, "validating assignment")
		}
		fields = append(fields, vErr.Fields...)
	}
	hasField := func(name string) bool {
		for _, f := range fields {
			if f.Field == name {
				return true
			}
		}
		return false
	}

	if !hasField("due_date") && !na.DueDate.After(svc.now()) {
		fields = append(fields, core.FieldError{Field: "due_date", Error: errPastDueDate})
	}

	if !hasField("formats_required") {
		_, missing, err := svc.Formats.ByKeys(ctx, na.FormatsRequired)
		if err != nil {
			return Template{}, nil, errors.Wrap(err, "finding formats")
		}
		if len(missing) > 0 {
			fields = append(fields, core.FieldError{
				Field: "formats_required",
				Error: "unknown content formats: " + strings.Join(missing, ", "),
			})
		}
	}

	var gyms []gym.Gym
	if !hasField("gym_ids") {
		var unknown []string
		for _, id := range na.GymIDs {
			g, err := svc.Gyms.Get(ctx, scope, id)
			if err != nil && errors.Cause(err) != gym.ErrNotFound {
				return Template{}, nil, errors.Wrap(err, "finding gym")
			}
			if err != nil || !g.IsActive {
				unknown = append(unknown, id)
				continue
			}
			gyms = append(gyms, g)
		}
		if len(unknown) > 0 {
			fields = append(fields, core.FieldError{
				Field: "gym_ids",
				Error: "unknown or inactive gyms: " + strings.Join(unknown, ", "),
			})
		}
	}

	if len(fields) > 0 {
		return Template{}, nil, core.NewValidationError(nil, fields...)
	}

	now := svc.now()
	tmpl := Template{
		Title:           na.Title,
		Description:     na.Description,
		Priority:        na.Priority,
		FormatsRequired: na.FormatsRequired,
		ClipsRequired:   na.ClipsRequired,
		SetupPlanning:   na.SetupPlanning,
		ProductionTips:  na.ProductionTips,
		CreatedByID:     scope.GymID,
		CreatedAt:       now,
	}
	dists := make([]Distribution, 0, len(gyms))
	for _, g := range gyms {
		dists = append(dists, Distribution{
			GymID:     g.ID,
			GymName:   g.Name,
			DueDate:   na.DueDate,
			Status:    StatusAssigned,
			CreatedAt: now,
		})
	}

	tmpl, dists, err := svc.Repo.CreateAssignment(ctx, scope, tmpl, dists)
	if err != nil {
		return Template{}, nil, errors.Wrap(err, "creating assignment")
	}

	views := make([]View, 0, len(dists))
	for _, d := range dists {
		d.Template = tmpl
		views = append(views, NewView(d, now))
	}
	svc.notifyDistributed(tmpl, views, gyms)
	return tmpl, views, nil
}

// notifyDistributed emails every gym its new assignment. Delivery failures are logged by the mailer.
func (svc *service) notifyDistributed(tmpl Template, views []View, gyms []gym.Gym) {
	if svc.Mailer == nil {
		return
	}
	byID := make(map[string]gym.Gym, len(gyms))
	for _, g := range gyms {
		byID[g.ID] = g
	}

	msgs := make([]*core.EmailMessage, 0, len(views))
	for _, v := range views {
		g := byID[v.GymID]
		if g.Email == "" {
			if svc.Logger != nil {
				svc.Logger.Warn("gym has no email, skipping assignment notification", "gym_id", g.ID)
			}
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: g.Name, Address: g.Email}},
			Subject:      fmt.Sprintf("New assignment: %s", tmpl.Title),
			TemplateName: "assignment_distributed",
			TemplateData: map[string]interface{}{
				"GymName":        g.Name,
				"Title":          v.Title,
				"Priority":       v.Priority,
				"DueDate":        v.DueDate.Format("Mon, 02 Jan 2006"),
				"Formats":        strings.Join(tmpl.FormatsRequired, ", "),
				"DistributionID": v.ID,
			},
		})
	}
	if len(msgs) > 0 {
		svc.Mailer.SendMessages(msgs...)
	}
}

func (svc *service) Get(ctx context.Context, scope core.Scope, id string) (View, error) {
	if err := scope.Check(); err != nil {
		return View{}, err
	}
	d, err := svc.Repo.GetDistribution(ctx, scope, id)
	if err != nil {
		return View{}, errors.Wrap(err, "finding distribution")
	}
	return NewView(d, svc.now()), nil
}

func (svc *service) Query(ctx context.Context, scope core.Scope, filter *QueryFilter, ordering []core.DBOrdering) ([]View, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = new(QueryFilter)
	}
	if err := filter.Clean(); err != nil {
		return nil, err
	}
	dists, err := svc.Repo.QueryDistributions(ctx, scope, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying distributions")
	}

	now := svc.now()
	views := make([]View, 0, len(dists))
	for _, d := range dists {
		v := NewView(d, now)
		if filter.Overdue != nil && v.IsOverdue != *filter.Overdue {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

func (svc *service) Act(ctx context.Context, scope core.Scope, id string, event Event) (View, error) {
	return svc.apply(ctx, scope, id, event, "")
}

func (svc *service) Review(ctx context.Context, scope core.Scope, id string, rd ReviewDistribution) (View, error) {
	if err := scope.RequireAdmin(); err != nil {
		return View{}, err
	}
	event, ok := ReviewEvents[rd.Decision]
	if !ok {
		return View{}, core.NewValidationError(nil, core.FieldError{
			Field: "decision",
			Error: "must be one of [approve request_revision reject]",
		})
	}
	v, err := svc.apply(ctx, scope, id, event, rd.Notes)
	if err != nil {
		return View{}, err
	}
	svc.notifyReviewed(ctx, scope, v)
	return v, nil
}

// apply moves the distribution along event. The write is a compare-and-set on the current status.
func (svc *service) apply(ctx context.Context, scope core.Scope, id string, event Event, notes string) (View, error) {
	if err := scope.Check(); err != nil {
		return View{}, err
	}
	if IsAdminEvent(event) {
		if err := scope.RequireAdmin(); err != nil {
			return View{}, err
		}
	}

	d, err := svc.Repo.GetDistribution(ctx, scope, id)
	if err != nil {
		return View{}, errors.Wrap(err, "finding distribution")
	}
	if !IsAdminEvent(event) && d.GymID != scope.GymID {
		// gym events are performed by the owning gym only
		return View{}, core.NewAuthorizationError(fmt.Sprintf("only the assigned gym can %s this assignment", event))
	}

	from := d.Status
	to, err := Transition(from, event)
	if err != nil {
		return View{}, err
	}
	d.stamp(to, svc.now())
	// notes belong to the latest decision and stay visible until the next one
	if IsAdminEvent(event) && to != StatusUnderReview {
		d.ReviewNotes = notes
	}

	d, err = svc.Repo.UpdateStatus(ctx, scope, from, d)
	if err != nil {
		if errors.Cause(err) == ErrStatusChanged {
			return View{}, newInvalidTransitionError(from, to)
		}
		return View{}, errors.Wrap(err, "updating distribution status")
	}
	return NewView(d, svc.now()), nil
}

func (svc *service) notifyReviewed(ctx context.Context, scope core.Scope, v View) {
	if svc.Mailer == nil || svc.Gyms == nil {
		return
	}
	g, err := svc.Gyms.Get(ctx, scope, v.GymID)
	if err != nil || g.Email == "" {
		return
	}
	svc.Mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: g.Name, Address: g.Email}},
		Subject:      fmt.Sprintf("Assignment reviewed: %s", v.Title),
		TemplateName: "distribution_reviewed",
		TemplateData: map[string]interface{}{
			"GymName":        g.Name,
			"Title":          v.Title,
			"Status":         v.StatusDisplay.Label,
			"Notes":          v.ReviewNotes,
			"DistributionID": v.ID,
		},
	})
}

// ExtendDueDate overwrites the due date. Concurrent edits are last-write-wins.
func (svc *service) ExtendDueDate(ctx context.Context, scope core.Scope, id string, ed ExtendDueDate) (View, error) {
	if err := scope.RequireAdmin(); err != nil {
		return View{}, err
	}
	if ed.DueDate.IsZero() {
		return View{}, core.NewValidationError(nil, core.FieldError{Field: "due_date", Error: "this field is required"})
	}
	if !ed.DueDate.After(svc.now()) {
		return View{}, core.NewValidationError(nil, core.FieldError{Field: "due_date", Error: errPastDueDate})
	}
	d, err := svc.Repo.UpdateDueDate(ctx, scope, id, ed.DueDate.UTC())
	if err != nil {
		return View{}, errors.Wrap(err, "updating due date")
	}
	return NewView(d, svc.now()), nil
}
