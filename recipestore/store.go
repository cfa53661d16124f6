package recipestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	libdb "github.com/contenox/pkgbot/libdbexec"
)

type store struct {
	Exec libdb.Exec
}

// New creates a new recipe store over exec.
func New(exec libdb.Exec) Store {
	return &store{Exec: exec}
}

const recipeColumns = `id, recipe_id, enabled, manual_only, pkg_only, schedule, last_ran,
		recurring_fail_count, notes, created_at, updated_at`

const errorMessageColumns = `id, recipe_id, payload, slack_ts, slack_channel, state, created_at, updated_at`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func checkAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, libdb.ErrNotFound)
	}
	return nil
}

func (s *store) CreateRecipe(ctx context.Context, recipe *Recipe) error {
	now := time.Now().UTC()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	err := s.Exec.QueryRowContext(ctx, `
		INSERT INTO recipes (recipe_id, enabled, manual_only, pkg_only, schedule, last_ran,
			recurring_fail_count, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		recipe.RecipeID,
		recipe.Enabled,
		recipe.ManualOnly,
		recipe.PkgOnly,
		recipe.Schedule,
		nullTime(recipe.LastRan),
		recipe.RecurringFailCount,
		recipe.Notes,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	).Scan(&recipe.ID)
	if err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	return nil
}

func (s *store) GetRecipe(ctx context.Context, id int64) (*Recipe, error) {
	return s.getRecipeByCondition(ctx, "id = $1", id)
}

func (s *store) GetRecipeByRecipeID(ctx context.Context, recipeID string) (*Recipe, error) {
	return s.getRecipeByCondition(ctx, "recipe_id = $1", recipeID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row scanner) (*Recipe, error) {
	var r Recipe
	var lastRan sql.NullTime
	if err := row.Scan(
		&r.ID,
		&r.RecipeID,
		&r.Enabled,
		&r.ManualOnly,
		&r.PkgOnly,
		&r.Schedule,
		&lastRan,
		&r.RecurringFailCount,
		&r.Notes,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastRan.Valid {
		t := lastRan.Time
		r.LastRan = &t
	}
	return &r, nil
}

func (s *store) getRecipeByCondition(ctx context.Context, condition string, arg any) (*Recipe, error) {
	query := fmt.Sprintf(`SELECT %s FROM recipes WHERE %s`, recipeColumns, condition)
	r, err := scanRecipe(s.Exec.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return r, nil
}

func (p RecipePatch) assignments() ([]string, []any) {
	var (
		cols []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		cols = append(cols, fmt.Sprintf("%s = $%d", col, len(args)+1))
	}
	if p.RecipeID != nil {
		set("recipe_id", *p.RecipeID)
	}
	if p.Enabled != nil {
		set("enabled", *p.Enabled)
	}
	if p.ManualOnly != nil {
		set("manual_only", *p.ManualOnly)
	}
	if p.PkgOnly != nil {
		set("pkg_only", *p.PkgOnly)
	}
	if p.Schedule != nil {
		set("schedule", *p.Schedule)
	}
	if p.LastRan != nil {
		set("last_ran", nullTime(p.LastRan))
	}
	if p.RecurringFailCount != nil {
		set("recurring_fail_count", *p.RecurringFailCount)
	}
	if p.Notes != nil {
		set("notes", *p.Notes)
	}
	set("updated_at", time.Now().UTC())
	return cols, args
}

// PatchRecipe writes only the columns set in p, so concurrent changes to
// other columns survive.
func (s *store) PatchRecipe(ctx context.Context, id int64, p RecipePatch) error {
	cols, args := p.assignments()
	query := fmt.Sprintf(`UPDATE recipes SET %s WHERE id = $1`, strings.Join(cols, ", "))
	res, err := s.Exec.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	return checkAffected(res, "update recipe")
}

func (s *store) SetRecipeEnabled(ctx context.Context, recipeID string, enabled bool) error {
	res, err := s.Exec.ExecContext(ctx, `
		UPDATE recipes SET enabled = $2, updated_at = $3 WHERE recipe_id = $1`,
		recipeID, enabled, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set recipe enabled: %w", err)
	}
	return checkAffected(res, "set recipe enabled")
}

func (s *store) DeleteRecipe(ctx context.Context, id int64) error {
	res, err := s.Exec.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return checkAffected(res, "delete recipe")
}

func (s *store) DeleteRecipeByRecipeID(ctx context.Context, recipeID string) error {
	res, err := s.Exec.ExecContext(ctx, `DELETE FROM recipes WHERE recipe_id = $1`, recipeID)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return checkAffected(res, "delete recipe")
}

func (s *store) ListRecipes(ctx context.Context) ([]*Recipe, error) {
	rows, err := s.Exec.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM recipes ORDER BY recipe_id ASC`, recipeColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	recipes := []*Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return recipes, nil
}

func (s *store) CreateErrorMessage(ctx context.Context, msg *ErrorMessage) error {
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if len(msg.Payload) == 0 {
		msg.Payload = json.RawMessage(`{}`)
	}

	err := s.Exec.QueryRowContext(ctx, `
		INSERT INTO error_messages (recipe_id, payload, slack_ts, slack_channel, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		msg.RecipeID,
		string(msg.Payload),
		nullString(msg.SlackTS),
		nullString(msg.SlackChannel),
		msg.State,
		msg.CreatedAt,
		msg.UpdatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to create error message: %w", err)
	}
	return nil
}

func scanErrorMessage(row scanner) (*ErrorMessage, error) {
	var m ErrorMessage
	var payload string
	var ts, channel sql.NullString
	if err := row.Scan(
		&m.ID,
		&m.RecipeID,
		&payload,
		&ts,
		&channel,
		&m.State,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Payload = json.RawMessage(payload)
	m.SlackTS = ts.String
	m.SlackChannel = channel.String
	return &m, nil
}

func (s *store) GetErrorMessage(ctx context.Context, id int64) (*ErrorMessage, error) {
	query := fmt.Sprintf(`SELECT %s FROM error_messages WHERE id = $1`, errorMessageColumns)
	m, err := scanErrorMessage(s.Exec.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get error message: %w", err)
	}
	return m, nil
}

func (s *store) GetLatestErrorMessageForRecipe(ctx context.Context, recipeID string) (*ErrorMessage, error) {
	query := fmt.Sprintf(`SELECT %s FROM error_messages WHERE recipe_id = $1 ORDER BY id DESC LIMIT 1`, errorMessageColumns)
	m, err := scanErrorMessage(s.Exec.QueryRowContext(ctx, query, recipeID))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest error message: %w", err)
	}
	return m, nil
}

func (s *store) listErrorMessages(ctx context.Context, query string, args ...any) ([]*ErrorMessage, error) {
	rows, err := s.Exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query error messages: %w", err)
	}
	defer rows.Close()

	msgs := []*ErrorMessage{}
	for rows.Next() {
		m, err := scanErrorMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan error message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return msgs, nil
}

func (s *store) ListErrorMessages(ctx context.Context) ([]*ErrorMessage, error) {
	return s.listErrorMessages(ctx, fmt.Sprintf(`SELECT %s FROM error_messages ORDER BY id ASC`, errorMessageColumns))
}

func (s *store) ListErrorMessagesForRecipe(ctx context.Context, recipeID string) ([]*ErrorMessage, error) {
	return s.listErrorMessages(ctx,
		fmt.Sprintf(`SELECT %s FROM error_messages WHERE recipe_id = $1 ORDER BY id ASC`, errorMessageColumns),
		recipeID,
	)
}

func (s *store) UpdateErrorMessageHandles(ctx context.Context, id int64, ts, channel string) error {
	res, err := s.Exec.ExecContext(ctx, `
		UPDATE error_messages SET slack_ts = $2, slack_channel = $3, updated_at = $4 WHERE id = $1`,
		id, nullString(ts), nullString(channel), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update error message handles: %w", err)
	}
	return checkAffected(res, "update error message handles")
}

func (s *store) SetErrorMessageState(ctx context.Context, id int64, state string) error {
	res, err := s.Exec.ExecContext(ctx, `
		UPDATE error_messages SET state = $2, updated_at = $3 WHERE id = $1`,
		id, state, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set error message state: %w", err)
	}
	return checkAffected(res, "set error message state")
}

func (s *store) DeleteErrorMessage(ctx context.Context, id int64) error {
	res, err := s.Exec.ExecContext(ctx, `DELETE FROM error_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete error message: %w", err)
	}
	return checkAffected(res, "delete error message")
}
