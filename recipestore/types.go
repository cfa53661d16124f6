package recipestore

import (
	"context"
	"encoding/json"
	"time"
)

// Recipe maps to the recipes table.
type Recipe struct {
	ID                 int64      `json:"id"`
	RecipeID           string     `json:"recipe_id"`
	Enabled            bool       `json:"enabled"`
	ManualOnly         bool       `json:"manual_only"`
	PkgOnly            bool       `json:"pkg_only"`
	Schedule           int        `json:"schedule"`
	LastRan            *time.Time `json:"last_ran,omitempty"`
	RecurringFailCount int        `json:"recurring_fail_count"`
	Notes              string     `json:"notes"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// RecipePatch lists recipe columns to overwrite. Nil fields are left as
// stored.
type RecipePatch struct {
	RecipeID           *string
	Enabled            *bool
	ManualOnly         *bool
	PkgOnly            *bool
	Schedule           *int
	LastRan            *time.Time
	RecurringFailCount *int
	Notes              *string
}

// ErrorMessage maps to the error_messages table. SlackTS and SlackChannel
// are empty until a notification for the record has been posted.
type ErrorMessage struct {
	ID           int64           `json:"id"`
	RecipeID     string          `json:"recipe_id"`
	Payload      json.RawMessage `json:"payload"`
	SlackTS      string          `json:"slack_ts,omitempty"`
	SlackChannel string          `json:"slack_channel,omitempty"`
	State        string          `json:"state"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Store defines the data access interface for recipes and error messages.
// Lookups of absent rows return libdbexec.ErrNotFound.
type Store interface {
	CreateRecipe(ctx context.Context, recipe *Recipe) error
	GetRecipe(ctx context.Context, id int64) (*Recipe, error)
	GetRecipeByRecipeID(ctx context.Context, recipeID string) (*Recipe, error)
	PatchRecipe(ctx context.Context, id int64, p RecipePatch) error
	SetRecipeEnabled(ctx context.Context, recipeID string, enabled bool) error
	DeleteRecipe(ctx context.Context, id int64) error
	DeleteRecipeByRecipeID(ctx context.Context, recipeID string) error
	ListRecipes(ctx context.Context) ([]*Recipe, error)

	CreateErrorMessage(ctx context.Context, msg *ErrorMessage) error
	GetErrorMessage(ctx context.Context, id int64) (*ErrorMessage, error)
	GetLatestErrorMessageForRecipe(ctx context.Context, recipeID string) (*ErrorMessage, error)
	ListErrorMessages(ctx context.Context) ([]*ErrorMessage, error)
	ListErrorMessagesForRecipe(ctx context.Context, recipeID string) ([]*ErrorMessage, error)
	UpdateErrorMessageHandles(ctx context.Context, id int64, ts, channel string) error
	SetErrorMessageState(ctx context.Context, id int64, state string) error
	DeleteErrorMessage(ctx context.Context, id int64) error
}
