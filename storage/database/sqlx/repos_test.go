package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/core/submission"
	"github.com/gymhub/contentdesk/storage/database/sqlx"
	"github.com/gymhub/contentdesk/tests"
)

type fixture struct {
	db      *sqlx.DB
	gyms    gym.Repository
	formats format.Repository
	dists   assignment.Repository
	subs    submission.Repository
	admin   gym.Gym
	members []gym.Gym
	photo   format.Format
}

func setup(t *testing.T) fixture {
	db := testutil.PrepareDB(t)
	fx := fixture{
		db:      db,
		gyms:    sqlxrepos.NewGymRepository(db),
		formats: sqlxrepos.NewFormatRepository(db),
		dists:   sqlxrepos.NewAssignmentRepository(db),
		subs:    sqlxrepos.NewSubmissionRepository(db),
	}
	fx.admin = testutil.CreateGym(t, fx.gyms, "HQ", "9999", gym.RoleAdmin, true)
	for i, name := range []string{"Downtown", "Riverside", "Uptown"} {
		pin := []string{"1111", "2222", "3333"}[i]
		fx.members = append(fx.members, testutil.CreateGym(t, fx.gyms, name, pin, gym.RoleMember, true))
	}
	fx.photo = testutil.CreateFormat(t, fx.formats, "facility_photo", format.TypePhoto, 12)
	return fx
}

func (fx fixture) count(t *testing.T, table string) int {
	var n int
	require.NoError(t, fx.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func (fx fixture) distribute(t *testing.T, gymIDs ...string) []assignment.Distribution {
	now := time.Now().UTC()
	clips := 3
	tmpl := assignment.Template{
		Title:           "Spring challenge",
		Priority:        assignment.PriorityHigh,
		FormatsRequired: []string{"facility_photo"},
		ClipsRequired:   &clips,
		CreatedByID:     fx.admin.ID,
		CreatedAt:       now,
	}
	ds := make([]assignment.Distribution, 0, len(gymIDs))
	for _, id := range gymIDs {
		ds = append(ds, assignment.Distribution{
			GymID:     id,
			DueDate:   now.AddDate(0, 0, 7).Truncate(time.Second),
			Status:    assignment.StatusAssigned,
			CreatedAt: now,
		})
	}
	_, out, err := fx.dists.CreateAssignment(context.Background(), fx.admin.Scope(), tmpl, ds)
	require.NoError(t, err)
	return out
}

func TestGymRepository(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	member := fx.members[0]

	g, err := fx.gyms.GetGymByPINLookup(ctx, gym.PINLookup("1111", core.NewTestConfig().SecretKey))
	require.NoError(t, err)
	assert.Equal(t, member.ID, g.ID)
	assert.NoError(t, g.CheckPIN("1111"))
	assert.Equal(t, "Downtown city", g.Location)

	dup := member
	dup.ID = ""
	_, err = fx.gyms.CreateGym(ctx, dup)
	assert.Equal(t, core.KindValidation, core.KindOf(err), "PIN lookups are unique")

	_, err = fx.gyms.GetGym(ctx, member.Scope(), fx.members[1].ID)
	assert.Equal(t, gym.ErrNotFound, errors.Cause(err))

	inactive := false
	member.IsActive = false
	_, err = fx.gyms.UpdateGym(ctx, fx.admin.Scope(), member)
	require.NoError(t, err)
	closed, err := fx.gyms.QueryGyms(ctx, fx.admin.Scope(), &gym.QueryFilter{IsActive: &inactive})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, member.ID, closed[0].ID)

	found, err := fx.gyms.QueryGyms(ctx, fx.admin.Scope(), &gym.QueryFilter{Search: "river"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Riverside", found[0].Name)

	mine, err := fx.gyms.QueryGyms(ctx, fx.members[2].Scope(), nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, fx.members[2].ID, mine[0].ID)
}

func TestFormatRepository(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, err := fx.formats.CreateFormat(ctx, format.Format{
		Key:           "coach_story",
		Title:         "Coach story",
		Type:          format.TypeStory,
		TotalRequired: 5,
		Examples:      []string{"Morning routine", "Favorite lift"},
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)

	got, err := fx.formats.GetFormat(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Morning routine", "Favorite lift"}, got.Examples)
	photo, err := fx.formats.GetFormat(ctx, fx.photo.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, photo.Examples)

	_, err = fx.formats.CreateFormat(ctx, format.Format{Key: "coach_story", Title: "x", Type: format.TypeStory, TotalRequired: 1})
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	byKeys, err := fx.formats.QueryFormats(ctx, &format.QueryFilter{Keys: []string{"coach_story", "facility_photo", "nope"}})
	require.NoError(t, err)
	require.Len(t, byKeys, 2)
	assert.Equal(t, "coach_story", byKeys[0].Key)

	_, err = fx.formats.GetFormatByKey(ctx, "nope")
	assert.Equal(t, format.ErrNotFound, errors.Cause(err))
}

func TestAssignmentRepository_fanOut(t *testing.T) {
	fx := setup(t)
	ds := fx.distribute(t, fx.members[0].ID, fx.members[1].ID, fx.members[2].ID)

	require.Len(t, ds, 3)
	assert.Equal(t, 1, fx.count(t, "templates"))
	assert.Equal(t, 3, fx.count(t, "distributions"))
	for i, d := range ds {
		assert.Equal(t, fx.members[i].ID, d.GymID)
		assert.Equal(t, fx.members[i].Name, d.GymName)
		assert.Equal(t, assignment.StatusAssigned, d.Status)
		assert.Equal(t, "Spring challenge", d.Title())
		assert.Equal(t, []string{"facility_photo"}, d.Template.FormatsRequired)
		require.NotNil(t, d.Template.ClipsRequired)
		assert.Equal(t, 3, *d.Template.ClipsRequired)
	}
}

func TestAssignmentRepository_atomic(t *testing.T) {
	fx := setup(t)
	now := time.Now().UTC()
	ds := []assignment.Distribution{
		{GymID: fx.members[0].ID, DueDate: now, Status: assignment.StatusAssigned, CreatedAt: now},
		{GymID: fx.members[1].ID, DueDate: now, Status: assignment.StatusAssigned, CreatedAt: now},
		{GymID: "no-such-gym", DueDate: now, Status: assignment.StatusAssigned, CreatedAt: now},
	}
	tmpl := assignment.Template{Title: "Broken", Priority: assignment.PriorityLow, FormatsRequired: []string{"x"}, CreatedAt: now}

	_, _, err := fx.dists.CreateAssignment(context.Background(), fx.admin.Scope(), tmpl, ds)
	require.Error(t, err)
	assert.Zero(t, fx.count(t, "templates"))
	assert.Zero(t, fx.count(t, "distributions"))
}

func TestAssignmentRepository_scopeAndStatus(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	ds := fx.distribute(t, fx.members[0].ID, fx.members[1].ID)
	mine, theirs := ds[0], ds[1]
	scope := fx.members[0].Scope()

	_, err := fx.dists.GetDistribution(ctx, scope, theirs.ID)
	assert.Equal(t, assignment.ErrNotFound, errors.Cause(err))

	visible, err := fx.dists.QueryDistributions(ctx, scope, nil, nil)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, mine.ID, visible[0].ID)

	_, err = fx.dists.QueryDistributions(ctx, core.Scope{}, nil, nil)
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))

	now := time.Now().UTC()
	next := mine
	next.Status = assignment.StatusAcknowledged
	next.AcknowledgedAt = &now
	updated, err := fx.dists.UpdateStatus(ctx, scope, assignment.StatusAssigned, next)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusAcknowledged, updated.Status)
	require.NotNil(t, updated.AcknowledgedAt)
	assert.WithinDuration(t, now, *updated.AcknowledgedAt, time.Millisecond)

	// a second writer still expecting "assigned" loses
	_, err = fx.dists.UpdateStatus(ctx, scope, assignment.StatusAssigned, next)
	assert.Equal(t, assignment.ErrStatusChanged, errors.Cause(err))

	filter := &assignment.QueryFilter{Status: "acknowledged"}
	require.NoError(t, filter.Clean())
	acked, err := fx.dists.QueryDistributions(ctx, fx.admin.Scope(), filter, nil)
	require.NoError(t, err)
	require.Len(t, acked, 1)
	assert.Equal(t, mine.ID, acked[0].ID)

	due := now.AddDate(0, 1, 0).Truncate(time.Second)
	_, err = fx.dists.UpdateDueDate(ctx, scope, mine.ID, due)
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))
	extended, err := fx.dists.UpdateDueDate(ctx, fx.admin.Scope(), mine.ID, due)
	require.NoError(t, err)
	assert.True(t, due.Equal(extended.DueDate))

	ordered, err := fx.dists.QueryDistributions(ctx, fx.admin.Scope(), nil, []core.DBOrdering{{Field: "due_date", Ascending: false}})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, mine.ID, ordered[0].ID)
}

func TestSubmissionRepository(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	owner := fx.members[0]
	now := time.Now().UTC()

	sub := submission.Submission{
		ID:          "sub-1",
		FormatID:    fx.photo.ID,
		GymID:       owner.ID,
		FileName:    "front.png",
		FilePath:    owner.ID + "/facility_photo/a.png",
		FileType:    "image/png",
		FileURL:     "http://test.local/uploads/a.png",
		Status:      submission.StatusPending,
		SubmittedAt: now,
	}
	_, err := fx.subs.CreateSubmissions(ctx, fx.members[1].Scope(), []submission.Submission{sub}, "")
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))

	created, err := fx.subs.CreateSubmissions(ctx, owner.Scope(), []submission.Submission{sub}, "")
	require.NoError(t, err)
	require.Len(t, created, 1)

	_, err = fx.subs.GetSubmission(ctx, fx.members[1].Scope(), sub.ID)
	assert.Equal(t, submission.ErrNotFound, errors.Cause(err))

	reviewed := created[0]
	reviewed.Status = submission.StatusNeedsRevision
	reviewed.FeedbackNotes = "too dark"
	reviewed.ReviewedAt = &now
	got, err := fx.subs.ReviewSubmission(ctx, fx.admin.Scope(), reviewed)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusNeedsRevision, got.Status)
	assert.Equal(t, "too dark", got.FeedbackNotes)
	require.NotNil(t, got.ReviewedAt)

	_, err = fx.subs.ReviewSubmission(ctx, fx.admin.Scope(), reviewed)
	assert.Equal(t, submission.ErrNotPending, errors.Cause(err))

	replacement := sub
	replacement.ID = "sub-2"
	replacement.ReplacesID = sub.ID
	_, err = fx.subs.CreateSubmissions(ctx, owner.Scope(), []submission.Submission{replacement}, sub.ID)
	require.NoError(t, err)

	old, err := fx.subs.GetSubmission(ctx, owner.Scope(), sub.ID)
	require.NoError(t, err)
	assert.True(t, old.Superseded)

	live, err := fx.subs.QuerySubmissions(ctx, owner.Scope(), &submission.QueryFilter{FormatID: fx.photo.ID})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "sub-2", live[0].ID)
	assert.Equal(t, sub.ID, live[0].ReplacesID)

	all, err := fx.subs.QuerySubmissions(ctx, fx.admin.Scope(), &submission.QueryFilter{IncludeSuperseded: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// a superseded submission cannot be replaced twice
	again := sub
	again.ID = "sub-3"
	_, err = fx.subs.CreateSubmissions(ctx, owner.Scope(), []submission.Submission{again}, sub.ID)
	assert.Equal(t, submission.ErrNotFound, errors.Cause(err))
	assert.Equal(t, 2, fx.count(t, "submissions"))
}

func TestRepositories_storeFailure(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	owner := fx.members[0]
	require.NoError(t, fx.db.Close())

	tests := []struct {
		name string
		call func() error
	}{
		{"get gym", func() error { _, err := fx.gyms.GetGym(ctx, fx.admin.Scope(), owner.ID); return err }},
		{"query gyms", func() error { _, err := fx.gyms.QueryGyms(ctx, fx.admin.Scope(), nil); return err }},
		{"get format", func() error { _, err := fx.formats.GetFormat(ctx, fx.photo.ID); return err }},
		{"query formats", func() error { _, err := fx.formats.QueryFormats(ctx, nil); return err }},
		{"query distributions", func() error {
			_, err := fx.dists.QueryDistributions(ctx, owner.Scope(), nil, nil)
			return err
		}},
		{"get distribution", func() error { _, err := fx.dists.GetDistribution(ctx, owner.Scope(), "d-1"); return err }},
		{"query submissions", func() error {
			_, err := fx.subs.QuerySubmissions(ctx, owner.Scope(), &submission.QueryFilter{})
			return err
		}},
		{"get submission", func() error { _, err := fx.subs.GetSubmission(ctx, owner.Scope(), "sub-1"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, core.KindUpstream, core.KindOf(err))
		})
	}
}
