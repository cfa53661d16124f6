package recipeservice

import (
	"context"
	"strconv"

	"github.com/contenox/pkgbot/libtracker"
	"github.com/contenox/pkgbot/recipestore"
)

type activityTrackerDecorator struct {
	service Service
	tracker libtracker.ActivityTracker
}

func (d *activityTrackerDecorator) Create(ctx context.Context, in RecipeUpdate) (*recipestore.Recipe, error) {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "create", "recipe")
	defer endFn()

	recipe, err := d.service.Create(ctx, in)
	if err != nil {
		reportErrFn(err)
	} else {
		reportChangeFn(strconv.FormatInt(recipe.ID, 10), map[string]any{
			"recipe_id": recipe.RecipeID,
			"enabled":   recipe.Enabled,
		})
	}
	return recipe, err
}

func (d *activityTrackerDecorator) Get(ctx context.Context, id int64) (*recipestore.Recipe, error) {
	reportErrFn, _, endFn := d.tracker.Start(ctx, "read", "recipe", "id", id)
	defer endFn()

	recipe, err := d.service.Get(ctx, id)
	if err != nil {
		reportErrFn(err)
	}
	return recipe, err
}

func (d *activityTrackerDecorator) GetByRecipeID(ctx context.Context, recipeID string) (*recipestore.Recipe, error) {
	reportErrFn, _, endFn := d.tracker.Start(ctx, "read", "recipe", "recipe_id", recipeID)
	defer endFn()

	recipe, err := d.service.GetByRecipeID(ctx, recipeID)
	if err != nil {
		reportErrFn(err)
	}
	return recipe, err
}

func (d *activityTrackerDecorator) Update(ctx context.Context, id int64, in RecipeUpdate) (*recipestore.Recipe, error) {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "update", "recipe", "id", id)
	defer endFn()

	recipe, err := d.service.Update(ctx, id, in)
	if err != nil {
		reportErrFn(err)
	} else {
		reportChangeFn(strconv.FormatInt(recipe.ID, 10), recipe)
	}
	return recipe, err
}

func (d *activityTrackerDecorator) UpdateByRecipeID(ctx context.Context, recipeID string, in RecipeUpdate) (*recipestore.Recipe, error) {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "update", "recipe", "recipe_id", recipeID)
	defer endFn()

	recipe, err := d.service.UpdateByRecipeID(ctx, recipeID, in)
	if err != nil {
		reportErrFn(err)
	} else {
		reportChangeFn(strconv.FormatInt(recipe.ID, 10), recipe)
	}
	return recipe, err
}

func (d *activityTrackerDecorator) Delete(ctx context.Context, id int64) error {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "delete", "recipe", "id", id)
	defer endFn()

	err := d.service.Delete(ctx, id)
	if err != nil {
		reportErrFn(err)
	} else {
		reportChangeFn(strconv.FormatInt(id, 10), nil)
	}
	return err
}

func (d *activityTrackerDecorator) DeleteByRecipeID(ctx context.Context, recipeID string) error {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "delete", "recipe", "recipe_id", recipeID)
	defer endFn()

	err := d.service.DeleteByRecipeID(ctx, recipeID)
	if err != nil {
		reportErrFn(err)
	} else {
		reportChangeFn(recipeID, nil)
	}
	return err
}

func (d *activityTrackerDecorator) List(ctx context.Context) ([]*recipestore.Recipe, error) {
	reportErrFn, _, endFn := d.tracker.Start(ctx, "list", "recipes")
	defer endFn()

	recipes, err := d.service.List(ctx)
	if err != nil {
		reportErrFn(err)
	}
	return recipes, err
}

func (d *activityTrackerDecorator) GetErrorMessage(ctx context.Context, id int64) (*recipestore.ErrorMessage, error) {
	reportErrFn, _, endFn := d.tracker.Start(ctx, "read", "error_message", "id", id)
	defer endFn()

	msg, err := d.service.GetErrorMessage(ctx, id)
	if err != nil {
		reportErrFn(err)
	}
	return msg, err
}

func (d *activityTrackerDecorator) ListErrorMessages(ctx context.Context, recipeID string) ([]*recipestore.ErrorMessage, error) {
	reportErrFn, _, endFn := d.tracker.Start(ctx, "list", "error_messages", "recipe_id", recipeID)
	defer endFn()

	msgs, err := d.service.ListErrorMessages(ctx, recipeID)
	if err != nil {
		reportErrFn(err)
	}
	return msgs, err
}

func (d *activityTrackerDecorator) DeleteErrorMessage(ctx context.Context, id int64) error {
	reportErrFn, reportChangeFn, endFn := d.tracker.Start(ctx, "delete", "error_message", "id", id)
	defer endFn()

	err := d.service.DeleteErrorMessage(ctx, id)
	if err != nil {
		reportErrFn(err)
	} else {
		reportChangeFn(strconv.FormatInt(id, 10), nil)
	}
	return err
}

func WithActivityTracker(service Service, tracker libtracker.ActivityTracker) Service {
	return &activityTrackerDecorator{
		service: service,
		tracker: tracker,
	}
}
