package recipeservice_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/contenox/pkgbot/apiframework"
	libdb "github.com/contenox/pkgbot/libdbexec"
	"github.com/contenox/pkgbot/recipeservice"
	"github.com/contenox/pkgbot/recipestore"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (context.Context, libdb.DBManager) {
	t.Helper()
	ctx := context.Background()
	dbm, err := libdb.NewSQLiteDBManager(ctx, filepath.Join(t.TempDir(), "svc.db"), recipestore.SchemaSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbm.Close() })
	return ctx, dbm
}

type recordingTracker struct {
	mu      sync.Mutex
	started []string
	errs    []error
	changes []string
}

func (r *recordingTracker) Start(_ context.Context, operation, subject string, _ ...any) (func(error), func(string, any), func()) {
	r.mu.Lock()
	r.started = append(r.started, operation+" "+subject)
	r.mu.Unlock()
	return func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		}, func(id string, _ any) {
			r.mu.Lock()
			r.changes = append(r.changes, id)
			r.mu.Unlock()
		}, func() {}
}

func TestUnit_Service_CreateDefaultsEnabled(t *testing.T) {
	ctx, dbm := setup(t)
	svc := recipeservice.New(dbm)

	r, err := svc.Create(ctx, recipeservice.RecipeUpdate{RecipeID: ptr("local.pkg.Firefox")})
	require.NoError(t, err)
	require.True(t, r.Enabled)
	require.NotZero(t, r.ID)

	r2, err := svc.Create(ctx, recipeservice.RecipeUpdate{RecipeID: ptr("local.pkg.Chrome"), Enabled: ptr(false)})
	require.NoError(t, err)
	require.False(t, r2.Enabled)
}

func TestUnit_Service_CreateValidation(t *testing.T) {
	ctx, dbm := setup(t)
	svc := recipeservice.New(dbm)

	_, err := svc.Create(ctx, recipeservice.RecipeUpdate{})
	require.ErrorIs(t, err, recipeservice.ErrInvalidRecipe)
	require.ErrorIs(t, err, apiframework.ErrUnprocessableEntity)

	_, err = svc.Create(ctx, recipeservice.RecipeUpdate{RecipeID: ptr("x"), Schedule: ptr(-1)})
	require.ErrorIs(t, err, recipeservice.ErrInvalidRecipe)

	_, err = svc.Create(ctx, recipeservice.RecipeUpdate{RecipeID: ptr("dup")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, recipeservice.RecipeUpdate{RecipeID: ptr("dup")})
	require.ErrorIs(t, err, libdb.ErrUniqueViolation)
}

func TestUnit_Service_PartialUpdate(t *testing.T) {
	ctx, dbm := setup(t)
	svc := recipeservice.New(dbm)

	created, err := svc.Create(ctx, recipeservice.RecipeUpdate{
		RecipeID: ptr("local.pkg.Zoom"),
		Schedule: ptr(3),
		Notes:    ptr("video"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, recipeservice.RecipeUpdate{Enabled: ptr(false)})
	require.NoError(t, err)
	require.False(t, updated.Enabled)
	require.Equal(t, 3, updated.Schedule)
	require.Equal(t, "video", updated.Notes)

	updated, err = svc.UpdateByRecipeID(ctx, "local.pkg.Zoom", recipeservice.RecipeUpdate{PkgOnly: ptr(true)})
	require.NoError(t, err)
	require.True(t, updated.PkgOnly)
	require.False(t, updated.Enabled)

	_, err = svc.UpdateByRecipeID(ctx, "missing", recipeservice.RecipeUpdate{PkgOnly: ptr(true)})
	require.ErrorIs(t, err, libdb.ErrNotFound)

	_, err = svc.Update(ctx, created.ID, recipeservice.RecipeUpdate{RecipeID: ptr("")})
	require.ErrorIs(t, err, recipeservice.ErrInvalidRecipe)
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "local.pkg.Zoom", got.RecipeID)
}

func TestUnit_Service_UpdateKeepsWorkflowDisable(t *testing.T) {
	ctx, dbm := setup(t)
	svc := recipeservice.New(dbm)

	created, err := svc.Create(ctx, recipeservice.RecipeUpdate{RecipeID: ptr("local.pkg.Slack")})
	require.NoError(t, err)
	require.True(t, created.Enabled)

	require.NoError(t, recipestore.New(dbm.WithoutTransaction()).SetRecipeEnabled(ctx, "local.pkg.Slack", false))

	updated, err := svc.UpdateByRecipeID(ctx, "local.pkg.Slack", recipeservice.RecipeUpdate{Notes: ptr("pinned")})
	require.NoError(t, err)
	require.False(t, updated.Enabled)
	require.Equal(t, "pinned", updated.Notes)
}

func TestUnit_Service_Delete(t *testing.T) {
	ctx, dbm := setup(t)
	svc := recipeservice.New(dbm)

	a, err := svc.Create(ctx, recipeservice.RecipeUpdate{RecipeID: ptr("a")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, recipeservice.RecipeUpdate{RecipeID: ptr("b")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))
	require.ErrorIs(t, svc.Delete(ctx, a.ID), libdb.ErrNotFound)
	require.NoError(t, svc.DeleteByRecipeID(ctx, "b"))
	require.ErrorIs(t, svc.DeleteByRecipeID(ctx, "b"), libdb.ErrNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUnit_Service_ErrorMessages(t *testing.T) {
	ctx, dbm := setup(t)
	svc := recipeservice.New(dbm)
	store := recipestore.New(dbm.WithoutTransaction())

	require.NoError(t, store.CreateErrorMessage(ctx, &recipestore.ErrorMessage{RecipeID: "a"}))
	b := &recipestore.ErrorMessage{RecipeID: "b"}
	require.NoError(t, store.CreateErrorMessage(ctx, b))

	all, err := svc.ListErrorMessages(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	onlyB, err := svc.ListErrorMessages(ctx, "b")
	require.NoError(t, err)
	require.Len(t, onlyB, 1)

	got, err := svc.GetErrorMessage(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "b", got.RecipeID)

	require.NoError(t, svc.DeleteErrorMessage(ctx, b.ID))
	_, err = svc.GetErrorMessage(ctx, b.ID)
	require.ErrorIs(t, err, libdb.ErrNotFound)
}

func TestUnit_Service_ActivityTracker(t *testing.T) {
	ctx, dbm := setup(t)
	tracker := &recordingTracker{}
	svc := recipeservice.WithActivityTracker(recipeservice.New(dbm), tracker)

	r, err := svc.Create(ctx, recipeservice.RecipeUpdate{RecipeID: ptr("tracked")})
	require.NoError(t, err)
	_, err = svc.Get(ctx, r.ID+100)
	require.Error(t, err)

	require.Equal(t, []string{"create recipe", "read recipe"}, tracker.started)
	require.Len(t, tracker.changes, 1)
	require.Len(t, tracker.errs, 1)
	require.ErrorIs(t, tracker.errs[0], libdb.ErrNotFound)
}
