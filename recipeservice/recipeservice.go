package recipeservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contenox/pkgbot/apiframework"
	libdb "github.com/contenox/pkgbot/libdbexec"
	"github.com/contenox/pkgbot/recipestore"
)

var ErrInvalidRecipe = fmt.Errorf("invalid recipe data: %w", apiframework.ErrUnprocessableEntity)

// RecipeUpdate carries a partial recipe. Nil fields are left untouched.
type RecipeUpdate struct {
	RecipeID           *string    `json:"recipe_id,omitempty"`
	Enabled            *bool      `json:"enabled,omitempty"`
	ManualOnly         *bool      `json:"manual_only,omitempty"`
	PkgOnly            *bool      `json:"pkg_only,omitempty"`
	Schedule           *int       `json:"schedule,omitempty"`
	LastRan            *time.Time `json:"last_ran,omitempty"`
	RecurringFailCount *int       `json:"recurring_fail_count,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
}

// Apply copies every set field onto r.
func (u RecipeUpdate) Apply(r *recipestore.Recipe) {
	if u.RecipeID != nil {
		r.RecipeID = *u.RecipeID
	}
	if u.Enabled != nil {
		r.Enabled = *u.Enabled
	}
	if u.ManualOnly != nil {
		r.ManualOnly = *u.ManualOnly
	}
	if u.PkgOnly != nil {
		r.PkgOnly = *u.PkgOnly
	}
	if u.Schedule != nil {
		r.Schedule = *u.Schedule
	}
	if u.LastRan != nil {
		t := *u.LastRan
		r.LastRan = &t
	}
	if u.RecurringFailCount != nil {
		r.RecurringFailCount = *u.RecurringFailCount
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
}

type Service interface {
	Create(ctx context.Context, in RecipeUpdate) (*recipestore.Recipe, error)
	Get(ctx context.Context, id int64) (*recipestore.Recipe, error)
	GetByRecipeID(ctx context.Context, recipeID string) (*recipestore.Recipe, error)
	Update(ctx context.Context, id int64, in RecipeUpdate) (*recipestore.Recipe, error)
	UpdateByRecipeID(ctx context.Context, recipeID string, in RecipeUpdate) (*recipestore.Recipe, error)
	Delete(ctx context.Context, id int64) error
	DeleteByRecipeID(ctx context.Context, recipeID string) error
	List(ctx context.Context) ([]*recipestore.Recipe, error)

	GetErrorMessage(ctx context.Context, id int64) (*recipestore.ErrorMessage, error)
	ListErrorMessages(ctx context.Context, recipeID string) ([]*recipestore.ErrorMessage, error)
	DeleteErrorMessage(ctx context.Context, id int64) error
}

type service struct {
	dbInstance libdb.DBManager
}

func New(db libdb.DBManager) Service {
	return &service{dbInstance: db}
}

func (s *service) Create(ctx context.Context, in RecipeUpdate) (*recipestore.Recipe, error) {
	recipe := &recipestore.Recipe{Enabled: true}
	in.Apply(recipe)
	if err := validate(recipe); err != nil {
		return nil, err
	}
	tx := s.dbInstance.WithoutTransaction()
	if err := recipestore.New(tx).CreateRecipe(ctx, recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

func (s *service) Get(ctx context.Context, id int64) (*recipestore.Recipe, error) {
	tx := s.dbInstance.WithoutTransaction()
	return recipestore.New(tx).GetRecipe(ctx, id)
}

func (s *service) GetByRecipeID(ctx context.Context, recipeID string) (*recipestore.Recipe, error) {
	tx := s.dbInstance.WithoutTransaction()
	return recipestore.New(tx).GetRecipeByRecipeID(ctx, recipeID)
}

func (s *service) Update(ctx context.Context, id int64, in RecipeUpdate) (*recipestore.Recipe, error) {
	return s.update(ctx, in, func(store recipestore.Store) (*recipestore.Recipe, error) {
		return store.GetRecipe(ctx, id)
	})
}

func (s *service) UpdateByRecipeID(ctx context.Context, recipeID string, in RecipeUpdate) (*recipestore.Recipe, error) {
	return s.update(ctx, in, func(store recipestore.Store) (*recipestore.Recipe, error) {
		return store.GetRecipeByRecipeID(ctx, recipeID)
	})
}

// update validates the patched recipe and writes only the fields set in in,
// inside one transaction.
func (s *service) update(ctx context.Context, in RecipeUpdate, load func(recipestore.Store) (*recipestore.Recipe, error)) (*recipestore.Recipe, error) {
	tx, commit, release, err := s.dbInstance.WithTransaction(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	store := recipestore.New(tx)
	recipe, err := load(store)
	if err != nil {
		return nil, err
	}
	in.Apply(recipe)
	if err := validate(recipe); err != nil {
		return nil, err
	}
	if err := store.PatchRecipe(ctx, recipe.ID, recipestore.RecipePatch(in)); err != nil {
		return nil, err
	}
	updated, err := store.GetRecipe(ctx, recipe.ID)
	if err != nil {
		return nil, err
	}
	if err := commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	tx := s.dbInstance.WithoutTransaction()
	return recipestore.New(tx).DeleteRecipe(ctx, id)
}

func (s *service) DeleteByRecipeID(ctx context.Context, recipeID string) error {
	tx := s.dbInstance.WithoutTransaction()
	return recipestore.New(tx).DeleteRecipeByRecipeID(ctx, recipeID)
}

func (s *service) List(ctx context.Context) ([]*recipestore.Recipe, error) {
	tx := s.dbInstance.WithoutTransaction()
	return recipestore.New(tx).ListRecipes(ctx)
}

func (s *service) GetErrorMessage(ctx context.Context, id int64) (*recipestore.ErrorMessage, error) {
	tx := s.dbInstance.WithoutTransaction()
	return recipestore.New(tx).GetErrorMessage(ctx, id)
}

// ListErrorMessages lists every error message, or only those for recipeID
// when it is set.
func (s *service) ListErrorMessages(ctx context.Context, recipeID string) ([]*recipestore.ErrorMessage, error) {
	store := recipestore.New(s.dbInstance.WithoutTransaction())
	if recipeID == "" {
		return store.ListErrorMessages(ctx)
	}
	return store.ListErrorMessagesForRecipe(ctx, recipeID)
}

func (s *service) DeleteErrorMessage(ctx context.Context, id int64) error {
	tx := s.dbInstance.WithoutTransaction()
	return recipestore.New(tx).DeleteErrorMessage(ctx, id)
}

func validate(recipe *recipestore.Recipe) error {
	if strings.TrimSpace(recipe.RecipeID) == "" {
		return fmt.Errorf("%w: recipe_id is required", ErrInvalidRecipe)
	}
	if recipe.Schedule < 0 {
		return fmt.Errorf("%w: schedule must not be negative", ErrInvalidRecipe)
	}
	if recipe.RecurringFailCount < 0 {
		return fmt.Errorf("%w: recurring_fail_count must not be negative", ErrInvalidRecipe)
	}
	return nil
}
