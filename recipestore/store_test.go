package recipestore_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	libdb "github.com/contenox/pkgbot/libdbexec"
	"github.com/contenox/pkgbot/recipestore"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (context.Context, recipestore.Store) {
	t.Helper()
	ctx := context.Background()
	dbm, err := libdb.NewSQLiteDBManager(ctx, filepath.Join(t.TempDir(), "pkgbot.db"), recipestore.SchemaSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbm.Close() })
	return ctx, recipestore.New(dbm.WithoutTransaction())
}

func TestUnit_Recipe_CRUD(t *testing.T) {
	ctx, s := setupStore(t)

	r := &recipestore.Recipe{RecipeID: "local.pkg.Firefox", Enabled: true, Schedule: 7, Notes: "browser"}
	require.NoError(t, s.CreateRecipe(ctx, r))
	require.NotZero(t, r.ID)
	require.False(t, r.CreatedAt.IsZero())

	got, err := s.GetRecipe(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, "local.pkg.Firefox", got.RecipeID)
	require.True(t, got.Enabled)
	require.Equal(t, 7, got.Schedule)
	require.Nil(t, got.LastRan)

	byRecipeID, err := s.GetRecipeByRecipeID(ctx, "local.pkg.Firefox")
	require.NoError(t, err)
	require.Equal(t, r.ID, byRecipeID.ID)

	ran := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	manual, fails := true, 2
	require.NoError(t, s.PatchRecipe(ctx, r.ID, recipestore.RecipePatch{
		LastRan:            &ran,
		ManualOnly:         &manual,
		RecurringFailCount: &fails,
	}))

	updated, err := s.GetRecipe(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, updated.ManualOnly)
	require.Equal(t, 2, updated.RecurringFailCount)
	require.NotNil(t, updated.LastRan)
	require.True(t, ran.Equal(*updated.LastRan))
	require.Equal(t, 7, updated.Schedule)
	require.True(t, updated.Enabled)
	require.False(t, updated.UpdatedAt.Before(got.UpdatedAt))

	require.NoError(t, s.SetRecipeEnabled(ctx, "local.pkg.Firefox", false))
	disabled, err := s.GetRecipeByRecipeID(ctx, "local.pkg.Firefox")
	require.NoError(t, err)
	require.False(t, disabled.Enabled)

	require.NoError(t, s.DeleteRecipe(ctx, r.ID))
	_, err = s.GetRecipe(ctx, r.ID)
	require.ErrorIs(t, err, libdb.ErrNotFound)
}

func TestUnit_Recipe_PatchLeavesOtherColumns(t *testing.T) {
	ctx, s := setupStore(t)

	r := &recipestore.Recipe{RecipeID: "local.pkg.Zoom", Enabled: true, Schedule: 2}
	require.NoError(t, s.CreateRecipe(ctx, r))
	require.NoError(t, s.SetRecipeEnabled(ctx, "local.pkg.Zoom", false))

	notes := "moved to manual review"
	require.NoError(t, s.PatchRecipe(ctx, r.ID, recipestore.RecipePatch{Notes: &notes}))

	got, err := s.GetRecipe(ctx, r.ID)
	require.NoError(t, err)
	require.False(t, got.Enabled)
	require.Equal(t, 2, got.Schedule)
	require.Equal(t, notes, got.Notes)
}

func TestUnit_Recipe_NotFound(t *testing.T) {
	ctx, s := setupStore(t)

	_, err := s.GetRecipeByRecipeID(ctx, "missing")
	require.ErrorIs(t, err, libdb.ErrNotFound)
	require.ErrorIs(t, s.DeleteRecipe(ctx, 42), libdb.ErrNotFound)
	require.ErrorIs(t, s.DeleteRecipeByRecipeID(ctx, "missing"), libdb.ErrNotFound)
	require.ErrorIs(t, s.SetRecipeEnabled(ctx, "missing", true), libdb.ErrNotFound)
	require.ErrorIs(t, s.PatchRecipe(ctx, 42, recipestore.RecipePatch{}), libdb.ErrNotFound)
}

func TestUnit_Recipe_DuplicateRecipeID(t *testing.T) {
	ctx, s := setupStore(t)

	require.NoError(t, s.CreateRecipe(ctx, &recipestore.Recipe{RecipeID: "dup"}))
	err := s.CreateRecipe(ctx, &recipestore.Recipe{RecipeID: "dup"})
	require.ErrorIs(t, err, libdb.ErrUniqueViolation)
}

func TestUnit_Recipe_List(t *testing.T) {
	ctx, s := setupStore(t)

	list, err := s.ListRecipes(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	for _, id := range []string{"b.recipe", "a.recipe"} {
		require.NoError(t, s.CreateRecipe(ctx, &recipestore.Recipe{RecipeID: id, Enabled: true}))
	}
	list, err = s.ListRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a.recipe", list[0].RecipeID)

	require.NoError(t, s.DeleteRecipeByRecipeID(ctx, "a.recipe"))
	list, err = s.ListRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestUnit_ErrorMessage_Lifecycle(t *testing.T) {
	ctx, s := setupStore(t)

	first := &recipestore.ErrorMessage{
		RecipeID: "local.pkg.Zoom",
		Payload:  json.RawMessage(`{"local.pkg.Zoom":"download failed"}`),
		State:    "ErrorReported",
	}
	require.NoError(t, s.CreateErrorMessage(ctx, first))
	require.NotZero(t, first.ID)

	got, err := s.GetErrorMessage(ctx, first.ID)
	require.NoError(t, err)
	require.JSONEq(t, `{"local.pkg.Zoom":"download failed"}`, string(got.Payload))
	require.Empty(t, got.SlackTS)
	require.Empty(t, got.SlackChannel)

	require.NoError(t, s.UpdateErrorMessageHandles(ctx, first.ID, "1700000000.000100", "C123"))
	require.NoError(t, s.SetErrorMessageState(ctx, first.ID, "TrustUpdateRequested"))
	got, err = s.GetErrorMessage(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "1700000000.000100", got.SlackTS)
	require.Equal(t, "C123", got.SlackChannel)
	require.Equal(t, "TrustUpdateRequested", got.State)

	second := &recipestore.ErrorMessage{RecipeID: "local.pkg.Zoom"}
	require.NoError(t, s.CreateErrorMessage(ctx, second))
	require.NoError(t, s.CreateErrorMessage(ctx, &recipestore.ErrorMessage{RecipeID: "other"}))

	latest, err := s.GetLatestErrorMessageForRecipe(ctx, "local.pkg.Zoom")
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.JSONEq(t, `{}`, string(latest.Payload))

	forRecipe, err := s.ListErrorMessagesForRecipe(ctx, "local.pkg.Zoom")
	require.NoError(t, err)
	require.Len(t, forRecipe, 2)

	all, err := s.ListErrorMessages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	require.NoError(t, s.DeleteErrorMessage(ctx, first.ID))
	_, err = s.GetErrorMessage(ctx, first.ID)
	require.ErrorIs(t, err, libdb.ErrNotFound)
	require.ErrorIs(t, s.DeleteErrorMessage(ctx, first.ID), libdb.ErrNotFound)
}

func TestUnit_ErrorMessage_NotFound(t *testing.T) {
	ctx, s := setupStore(t)

	_, err := s.GetLatestErrorMessageForRecipe(ctx, "none")
	require.ErrorIs(t, err, libdb.ErrNotFound)
	require.ErrorIs(t, s.UpdateErrorMessageHandles(ctx, 9, "ts", "ch"), libdb.ErrNotFound)
	require.ErrorIs(t, s.SetErrorMessageState(ctx, 9, "x"), libdb.ErrNotFound)
}

func TestUnit_Store_Transaction(t *testing.T) {
	ctx := context.Background()
	dbm, err := libdb.NewSQLiteDBManager(ctx, filepath.Join(t.TempDir(), "tx.db"), recipestore.SchemaSQLite)
	require.NoError(t, err)
	defer dbm.Close()
	plain := recipestore.New(dbm.WithoutTransaction())

	exec, _, release, err := dbm.WithTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, recipestore.New(exec).CreateRecipe(ctx, &recipestore.Recipe{RecipeID: "rolled.back"}))
	require.NoError(t, release())
	_, err = plain.GetRecipeByRecipeID(ctx, "rolled.back")
	require.ErrorIs(t, err, libdb.ErrNotFound)

	exec, commit, release, err := dbm.WithTransaction(ctx)
	require.NoError(t, err)
	defer release()
	require.NoError(t, recipestore.New(exec).CreateRecipe(ctx, &recipestore.Recipe{RecipeID: "committed"}))
	require.NoError(t, commit(ctx))
	_, err = plain.GetRecipeByRecipeID(ctx, "committed")
	require.NoError(t, err)
}
