package format_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/storage/database/dummy"
	"github.com/gymhub/contentdesk/tests"
)

var adminScope = core.AdminScope("hq")

func TestService_Seed(t *testing.T) {
	repo := dummydb.NewFormatRepository(dummydb.Open())
	svc := format.NewService(repo)
	ctx := context.Background()
	testutil.CreateFormat(t, repo, "facility_photo", format.TypePhoto, 20)

	n, err := svc.Seed(ctx, adminScope)
	require.NoError(t, err)
	assert.Equal(t, len(format.DefaultCatalog)-1, n)

	n, err = svc.Seed(ctx, adminScope)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding twice adds nothing")

	f, err := svc.GetByKey(ctx, " Facility_Photo ")
	require.NoError(t, err)
	assert.Equal(t, 20, f.TotalRequired, "existing entries are kept")

	_, err = svc.Seed(ctx, core.MemberScope("g1"))
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))
}

func TestService_ByKeys(t *testing.T) {
	repo := dummydb.NewFormatRepository(dummydb.Open())
	svc := format.NewService(repo)
	testutil.CreateFormat(t, repo, "facility_photo", format.TypePhoto, 12)
	testutil.CreateFormat(t, repo, "coach_story", format.TypeStory, 5)

	formats, missing, err := svc.ByKeys(context.Background(), []string{"coach_story", "nope", "FACILITY_PHOTO"})
	require.NoError(t, err)
	require.Len(t, formats, 2)
	assert.Equal(t, "coach_story", formats[0].Key)
	assert.Equal(t, "facility_photo", formats[1].Key)
	assert.Equal(t, []string{"nope"}, missing)
}

func TestService_CreateUpdate(t *testing.T) {
	svc := format.NewService(dummydb.NewFormatRepository(dummydb.Open()))
	ctx := context.Background()
	nf := format.NewFormat{Key: "gym_tour", Title: "Gym tour", Type: format.TypeVideo, TotalRequired: 2}

	_, err := svc.Create(ctx, core.MemberScope("g1"), nf)
	assert.Equal(t, core.KindAuthorization, core.KindOf(err))

	f, err := svc.Create(ctx, adminScope, nf)
	require.NoError(t, err)
	assert.True(t, f.AcceptsVideos())

	_, err = svc.Create(ctx, adminScope, nf)
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	total := 6
	f, err = svc.Update(ctx, adminScope, f.ID, format.UpdateFormat{Title: "Full gym tour", TotalRequired: &total})
	require.NoError(t, err)
	assert.Equal(t, "Full gym tour", f.Title)
	assert.Equal(t, 6, f.TotalRequired)

	_, err = svc.Update(ctx, adminScope, "missing", format.UpdateFormat{Title: "x"})
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}
