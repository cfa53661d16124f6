package recipeapi

import (
	"fmt"
	"net/http"

	"github.com/contenox/pkgbot/apiframework"
	"github.com/contenox/pkgbot/libauth"
	"github.com/contenox/pkgbot/recipeservice"
	"github.com/contenox/pkgbot/recipestore"
)

func AddRecipeRoutes(mux *http.ServeMux, recipes recipeservice.Service, auth *libauth.Config) {
	h := &recipeHandler{service: recipes}

	mux.HandleFunc("GET /recipes", apiframework.RequireRole(auth, libauth.RoleUser, h.list))
	mux.HandleFunc("GET /recipe/id/{id}", apiframework.RequireRole(auth, libauth.RoleUser, h.getByID))
	mux.HandleFunc("GET /recipe/recipe_id/{recipe_id}", apiframework.RequireRole(auth, libauth.RoleUser, h.getByRecipeID))
	mux.HandleFunc("POST /recipe", apiframework.RequireRole(auth, libauth.RoleAdmin, h.create))
	mux.HandleFunc("PUT /recipe/id/{id}", apiframework.RequireRole(auth, libauth.RoleAdmin, h.updateByID))
	mux.HandleFunc("PUT /recipe/recipe_id/{recipe_id}", apiframework.RequireRole(auth, libauth.RoleAdmin, h.updateByRecipeID))
	mux.HandleFunc("DELETE /recipe/id/{id}", apiframework.RequireRole(auth, libauth.RoleAdmin, h.deleteByID))
	mux.HandleFunc("DELETE /recipe/recipe_id/{recipe_id}", apiframework.RequireRole(auth, libauth.RoleAdmin, h.deleteByRecipeID))

	// Error messages
	mux.HandleFunc("GET /errors", apiframework.RequireRole(auth, libauth.RoleUser, h.listErrors))
	mux.HandleFunc("GET /error/id/{id}", apiframework.RequireRole(auth, libauth.RoleUser, h.getError))
	mux.HandleFunc("GET /errors/recipe_id/{recipe_id}", apiframework.RequireRole(auth, libauth.RoleUser, h.listErrorsForRecipe))
	mux.HandleFunc("DELETE /error/id/{id}", apiframework.RequireRole(auth, libauth.RoleAdmin, h.deleteError))
}

type recipeHandler struct {
	service recipeservice.Service
}

type recipeList struct {
	Total   int                   `json:"total"`
	Recipes []*recipestore.Recipe `json:"recipes"`
}

// Result is the plain acknowledgement body of state-changing routes.
type Result struct {
	Result string `json:"result"`
}

func pathID(r *http.Request) (int64, error) {
	raw := apiframework.GetPathParam(r, "id", "The internal numeric id.")
	if raw == "" {
		return 0, fmt.Errorf("id required: %w", apiframework.ErrBadPathValue)
	}
	return apiframework.ParseInt64("id", raw)
}

// Lists all recipes.
func (h *recipeHandler) list(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.service.List(r.Context())
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ListOperation)
		return
	}
	if recipes == nil {
		recipes = []*recipestore.Recipe{}
	}
	_ = apiframework.Encode(w, r, http.StatusOK, recipeList{Total: len(recipes), Recipes: recipes}) // @response recipeapi.recipeList
}

func (h *recipeHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.GetOperation)
		return
	}
	recipe, err := h.service.Get(r.Context(), id)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.GetOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, recipe) // @response recipestore.Recipe
}

// Retrieves a recipe by the identifier the packaging tool uses for it.
func (h *recipeHandler) getByRecipeID(w http.ResponseWriter, r *http.Request) {
	recipeID := apiframework.GetPathParam(r, "recipe_id", "The recipe identifier.")
	recipe, err := h.service.GetByRecipeID(r.Context(), recipeID)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.GetOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, recipe) // @response recipestore.Recipe
}

// Creates a recipe. recipe_id must be unique; enabled defaults to true.
func (h *recipeHandler) create(w http.ResponseWriter, r *http.Request) {
	in, err := apiframework.Decode[recipeservice.RecipeUpdate](r) // @request recipeservice.RecipeUpdate
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.CreateOperation)
		return
	}
	recipe, err := h.service.Create(r.Context(), in)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.CreateOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusCreated, recipe) // @response recipestore.Recipe
}

// Updates the fields present in the body and leaves the rest untouched.
func (h *recipeHandler) updateByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.UpdateOperation)
		return
	}
	in, err := apiframework.Decode[recipeservice.RecipeUpdate](r) // @request recipeservice.RecipeUpdate
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.UpdateOperation)
		return
	}
	recipe, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.UpdateOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, recipe) // @response recipestore.Recipe
}

func (h *recipeHandler) updateByRecipeID(w http.ResponseWriter, r *http.Request) {
	recipeID := apiframework.GetPathParam(r, "recipe_id", "The recipe identifier.")
	in, err := apiframework.Decode[recipeservice.RecipeUpdate](r) // @request recipeservice.RecipeUpdate
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.UpdateOperation)
		return
	}
	recipe, err := h.service.UpdateByRecipeID(r.Context(), recipeID, in)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.UpdateOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, recipe) // @response recipestore.Recipe
}

func (h *recipeHandler) deleteByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.DeleteOperation)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		_ = apiframework.Error(w, r, err, apiframework.DeleteOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, Result{Result: fmt.Sprintf("Successfully deleted recipe id:  %d", id)}) // @response recipeapi.Result
}

func (h *recipeHandler) deleteByRecipeID(w http.ResponseWriter, r *http.Request) {
	recipeID := apiframework.GetPathParam(r, "recipe_id", "The recipe identifier.")
	if err := h.service.DeleteByRecipeID(r.Context(), recipeID); err != nil {
		_ = apiframework.Error(w, r, err, apiframework.DeleteOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, Result{Result: fmt.Sprintf("Successfully deleted recipe id:  %s", recipeID)}) // @response recipeapi.Result
}

func (h *recipeHandler) listErrors(w http.ResponseWriter, r *http.Request) {
	h.writeErrors(w, r, "")
}

func (h *recipeHandler) listErrorsForRecipe(w http.ResponseWriter, r *http.Request) {
	h.writeErrors(w, r, apiframework.GetPathParam(r, "recipe_id", "The recipe identifier."))
}

func (h *recipeHandler) writeErrors(w http.ResponseWriter, r *http.Request, recipeID string) {
	msgs, err := h.service.ListErrorMessages(r.Context(), recipeID)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ListOperation)
		return
	}
	if msgs == nil {
		msgs = []*recipestore.ErrorMessage{}
	}
	_ = apiframework.Encode(w, r, http.StatusOK, msgs) // @response []recipestore.ErrorMessage
}

func (h *recipeHandler) getError(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.GetOperation)
		return
	}
	msg, err := h.service.GetErrorMessage(r.Context(), id)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.GetOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, msg) // @response recipestore.ErrorMessage
}

func (h *recipeHandler) deleteError(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.DeleteOperation)
		return
	}
	if err := h.service.DeleteErrorMessage(r.Context(), id); err != nil {
		_ = apiframework.Error(w, r, err, apiframework.DeleteOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, Result{Result: fmt.Sprintf("Successfully deleted error id:  %d", id)}) // @response recipeapi.Result
}
