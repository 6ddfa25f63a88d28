package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/storage/database/dummy"
	"github.com/gymhub/contentdesk/tests"
)

type fixture struct {
	svc    assignment.Service
	db     *dummydb.DB
	mailer *testutil.MailRecorder
	admin  gym.Gym
	gyms   []gym.Gym
}

func setup(t *testing.T) fixture {
	conf := core.NewTestConfig()
	db := dummydb.Open()
	gymRepo := dummydb.NewGymRepository(db)
	fmtRepo := dummydb.NewFormatRepository(db)
	validate, translator := testutil.NewValidator()
	mailer := new(testutil.MailRecorder)

	fx := fixture{db: db, mailer: mailer}
	fx.admin = testutil.CreateGym(t, gymRepo, "HQ", "9999", gym.RoleAdmin, true)
	for i, name := range []string{"Downtown", "Riverside", "Uptown"} {
		pin := []string{"1111", "2222", "3333"}[i]
		fx.gyms = append(fx.gyms, testutil.CreateGym(t, gymRepo, name, pin, gym.RoleMember, true, name+"@gyms.test"))
	}
	testutil.CreateGym(t, gymRepo, "Closed", "4444", gym.RoleMember, false)
	testutil.CreateFormat(t, fmtRepo, "facility_photo", format.TypePhoto, 12)
	testutil.CreateFormat(t, fmtRepo, "transformation_reel", format.TypeReel, 4)

	fx.svc = assignment.NewService(assignment.Deps{
		Repo:       dummydb.NewAssignmentRepository(db),
		Gyms:       gym.NewService(gymRepo, nil, conf),
		Formats:    format.NewService(fmtRepo),
		Mailer:     mailer,
		Logger:     testutil.NopLogger(),
		Conf:       conf,
		Validate:   validate,
		Translator: translator,
	})
	return fx
}

func (fx fixture) gymIDs() []string {
	ids := make([]string, 0, len(fx.gyms))
	for _, g := range fx.gyms {
		ids = append(ids, g.ID)
	}
	return ids
}

func (fx fixture) newAssignment() assignment.NewAssignment {
	return assignment.NewAssignment{
		Title:           "Spring challenge",
		Description:     "Show the spring challenge",
		Priority:        "high",
		FormatsRequired: []string{"facility_photo", "transformation_reel"},
		DueDate:         time.Now().UTC().AddDate(0, 0, 14),
		GymIDs:          fx.gymIDs(),
	}
}

func TestService_Create(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	adminScope := fx.admin.Scope()

	tmpl, views, err := fx.svc.Create(ctx, adminScope, fx.newAssignment())
	require.NoError(t, err)
	assert.NotEmpty(t, tmpl.ID)
	assert.Equal(t, fx.admin.ID, tmpl.CreatedByID)
	require.Len(t, views, 3)

	due := views[0].DueDate
	for _, v := range views {
		assert.Equal(t, tmpl.ID, v.TemplateID)
		assert.Equal(t, assignment.StatusAssigned, v.Status)
		assert.True(t, due.Equal(v.DueDate), "all distributions share the due date")
		assert.Equal(t, "Spring challenge", v.Title)
		assert.Equal(t, 0, v.LifecycleProgress)
		assert.False(t, v.IsOverdue)
	}
	_, dists, _ := fx.db.Counts()
	assert.Equal(t, 3, dists)
	assert.Len(t, fx.mailer.Messages(), 3)
	assert.Equal(t, "assignment_distributed", fx.mailer.Messages()[0].TemplateName)
}

func TestService_Create_validation(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		mutate     func(na *assignment.NewAssignment)
		wantFields []string
	}{
		{
			name: "everything missing",
			mutate: func(na *assignment.NewAssignment) {
				*na = assignment.NewAssignment{}
			},
			wantFields: []string{"title", "formats_required", "due_date", "gym_ids"},
		},
		{name: "blank title", mutate: func(na *assignment.NewAssignment) { na.Title = "   " }, wantFields: []string{"title"}},
		{name: "no formats", mutate: func(na *assignment.NewAssignment) { na.FormatsRequired = []string{} }, wantFields: []string{"formats_required"}},
		{name: "unknown format", mutate: func(na *assignment.NewAssignment) { na.FormatsRequired = []string{"hologram"} }, wantFields: []string{"formats_required"}},
		{name: "no due date", mutate: func(na *assignment.NewAssignment) { na.DueDate = time.Time{} }, wantFields: []string{"due_date"}},
		{name: "past due date", mutate: func(na *assignment.NewAssignment) { na.DueDate = time.Now().Add(-time.Hour) }, wantFields: []string{"due_date"}},
		{name: "no gyms", mutate: func(na *assignment.NewAssignment) { na.GymIDs = nil }, wantFields: []string{"gym_ids"}},
		{name: "unknown gym", mutate: func(na *assignment.NewAssignment) { na.GymIDs = append(na.GymIDs, "nope") }, wantFields: []string{"gym_ids"}},
		{name: "bad priority", mutate: func(na *assignment.NewAssignment) { na.Priority = "asap" }, wantFields: []string{"priority"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			na := fx.newAssignment()
			tt.mutate(&na)

			_, _, err := fx.svc.Create(ctx, fx.admin.Scope(), na)
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			for _, fld := range tt.wantFields {
				assert.True(t, vErr.HasField(fld), "missing field error %q in %v", fld, vErr)
			}
			assert.Len(t, vErr.Fields, len(tt.wantFields))

			tmpls, dists, _ := fx.db.Counts()
			assert.Zero(t, tmpls)
			assert.Zero(t, dists)
		})
	}
}

func TestService_Create_atomic(t *testing.T) {
	fx := setup(t)
	fx.db.FailWrites = errors.New("disk full")

	_, _, err := fx.svc.Create(context.Background(), fx.admin.Scope(), fx.newAssignment())
	assert.Error(t, err)

	tmpls, dists, _ := fx.db.Counts()
	assert.Zero(t, tmpls)
	assert.Zero(t, dists)
	assert.Empty(t, fx.mailer.Messages())
}

func TestService_Create_requiresAdmin(t *testing.T) {
	fx := setup(t)
	_, _, err := fx.svc.Create(context.Background(), fx.gyms[0].Scope(), fx.newAssignment())
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))
}

func TestService_lifecycle(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	_, views, err := fx.svc.Create(ctx, fx.admin.Scope(), fx.newAssignment())
	require.NoError(t, err)

	d := views[0]
	owner := core.MemberScope(d.GymID)

	// a gym cannot skip states
	_, err = fx.svc.Act(ctx, owner, d.ID, assignment.EventSubmit)
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	v, err := fx.svc.Act(ctx, owner, d.ID, assignment.EventAcknowledge)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusAcknowledged, v.Status)
	assert.NotNil(t, v.AcknowledgedAt)

	v, err = fx.svc.Act(ctx, owner, d.ID, assignment.EventStart)
	require.NoError(t, err)
	assert.NotNil(t, v.StartedAt)

	// gyms cannot review
	_, err = fx.svc.Act(ctx, owner, d.ID, assignment.EventBeginReview)
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))

	v, err = fx.svc.Act(ctx, owner, d.ID, assignment.EventSubmit)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusSubmitted, v.Status)
	assert.Equal(t, 80, v.LifecycleProgress)

	v, err = fx.svc.Review(ctx, fx.admin.Scope(), d.ID, assignment.ReviewDistribution{Decision: "request_revision", Notes: "More light"})
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusNeedsRevision, v.Status)
	assert.Equal(t, "More light", v.ReviewNotes)
	assert.NotNil(t, v.ReviewedAt)

	// the revision request stays readable while the gym reworks it
	v, err = fx.svc.Act(ctx, owner, d.ID, assignment.EventResume)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusInProgress, v.Status)
	assert.Equal(t, "More light", v.ReviewNotes)
	_, err = fx.svc.Act(ctx, owner, d.ID, assignment.EventSubmit)
	require.NoError(t, err)
	v, err = fx.svc.Review(ctx, fx.admin.Scope(), d.ID, assignment.ReviewDistribution{Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusApproved, v.Status)
	assert.Empty(t, v.ReviewNotes, "a new decision replaces the old notes")
	assert.Equal(t, 100, v.LifecycleProgress)

	// approved is terminal
	_, err = fx.svc.Review(ctx, fx.admin.Scope(), d.ID, assignment.ReviewDistribution{Decision: "reject"})
	assert.Equal(t, core.KindValidation, core.KindOf(err))
	got, err := fx.svc.Get(ctx, fx.admin.Scope(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusApproved, got.Status)
}

func TestService_tenantIsolation(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	_, views, err := fx.svc.Create(ctx, fx.admin.Scope(), fx.newAssignment())
	require.NoError(t, err)

	other := fx.gyms[1].Scope()
	var foreign assignment.View
	for _, v := range views {
		if v.GymID == fx.gyms[0].ID {
			foreign = v
		}
	}

	_, err = fx.svc.Get(ctx, other, foreign.ID)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
	_, err = fx.svc.Act(ctx, other, foreign.ID, assignment.EventAcknowledge)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	mine, err := fx.svc.Query(ctx, other, nil, nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, fx.gyms[1].ID, mine[0].GymID)

	all, err := fx.svc.Query(ctx, fx.admin.Scope(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = fx.svc.Query(ctx, core.Scope{}, nil, nil)
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))
}

func TestService_Query_filters(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	adminScope := fx.admin.Scope()

	_, views, err := fx.svc.Create(ctx, adminScope, fx.newAssignment())
	require.NoError(t, err)
	past := fx.newAssignment()
	past.Title = "Winter recap"
	past.GymIDs = []string{fx.gyms[0].ID}
	_, _, err = fx.svc.Create(ctx, adminScope, past)
	require.NoError(t, err)

	// only the store can move a due date into the past
	_, err = dummydb.NewAssignmentRepository(fx.db).UpdateDueDate(ctx, adminScope, views[0].ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	overdue := true
	got, err := fx.svc.Query(ctx, adminScope, &assignment.QueryFilter{Overdue: &overdue}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, views[0].ID, got[0].ID)
	assert.True(t, got[0].IsOverdue)

	got, err = fx.svc.Query(ctx, adminScope, &assignment.QueryFilter{GymID: fx.gyms[0].ID}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = fx.svc.Query(ctx, adminScope, &assignment.QueryFilter{Status: "completed"}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = fx.svc.Query(ctx, adminScope, &assignment.QueryFilter{Status: "lost"}, nil)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func TestService_ExtendDueDate(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	_, views, err := fx.svc.Create(ctx, fx.admin.Scope(), fx.newAssignment())
	require.NoError(t, err)

	newDue := time.Date(2030, 1, 31, 17, 0, 0, 0, time.UTC)
	_, err = fx.svc.ExtendDueDate(ctx, core.MemberScope(views[0].GymID), views[0].ID, assignment.ExtendDueDate{DueDate: newDue})
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))

	v, err := fx.svc.ExtendDueDate(ctx, fx.admin.Scope(), views[0].ID, assignment.ExtendDueDate{DueDate: newDue})
	require.NoError(t, err)
	assert.True(t, newDue.Equal(v.DueDate))

	_, err = fx.svc.ExtendDueDate(ctx, fx.admin.Scope(), "missing", assignment.ExtendDueDate{DueDate: newDue})
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	_, err = fx.svc.ExtendDueDate(ctx, fx.admin.Scope(), views[0].ID, assignment.ExtendDueDate{DueDate: time.Now().Add(-time.Hour)})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.True(t, vErr.HasField("due_date"))
	v, err = fx.svc.Get(ctx, fx.admin.Scope(), views[0].ID)
	require.NoError(t, err)
	assert.True(t, newDue.Equal(v.DueDate), "rejected edits leave the due date alone")
}
