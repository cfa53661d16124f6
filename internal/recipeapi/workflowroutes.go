package recipeapi

import (
	"net/http"

	"github.com/contenox/pkgbot/apiframework"
	"github.com/contenox/pkgbot/libauth"
	"github.com/contenox/pkgbot/trustworkflow"
)

const (
	resultSuccess = "Success"
	resultQueued  = "Queued background task..."
	resultMissing = "Recipe no longer exists; the requester was notified."
)

// AddWorkflowRoutes registers the callbacks the packaging tool and operators
// use to drive the trust workflow. All of them require the admin role.
func AddWorkflowRoutes(mux *http.ServeMux, workflow trustworkflow.Service, auth *libauth.Config) {
	h := &workflowHandler{workflow: workflow}

	mux.HandleFunc("POST /recipe/error", apiframework.RequireRole(auth, libauth.RoleAdmin, h.reportError))
	mux.HandleFunc("POST /recipe/trust/update", apiframework.RequireRole(auth, libauth.RoleAdmin, h.requestTrustUpdate))
	mux.HandleFunc("POST /recipe/trust/deny", apiframework.RequireRole(auth, libauth.RoleAdmin, h.denyTrustUpdate))
	mux.HandleFunc("POST /recipe/trust/update/success", apiframework.RequireRole(auth, libauth.RoleAdmin, h.trustUpdateSucceeded))
	mux.HandleFunc("POST /recipe/trust/update/failed", apiframework.RequireRole(auth, libauth.RoleAdmin, h.trustUpdateFailed))
	mux.HandleFunc("POST /recipe/trust/verify/failed", apiframework.RequireRole(auth, libauth.RoleAdmin, h.trustVerifyFailed))
}

type workflowHandler struct {
	workflow trustworkflow.Service
}

// VerifyFailure is the body of POST /recipe/trust/verify/failed.
type VerifyFailure struct {
	RecipeID string `json:"recipe_id"`
	Msg      string `json:"msg"`
}

func queryID(r *http.Request, name string) (int64, error) {
	raw, err := apiframework.RequiredQuery(r, name)
	if err != nil {
		return 0, err
	}
	return apiframework.ParseInt64(name, raw)
}

// Called when a recipe run fails. Records the error, disables the recipe and
// posts a notification.
func (h *workflowHandler) reportError(w http.ResponseWriter, r *http.Request) {
	recipeID, err := apiframework.RequiredQuery(r, "recipe_id")
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	rawError := apiframework.GetQueryParam(r, "error", "", "The error text reported by the packaging tool.")
	if _, err := h.workflow.ReportError(r.Context(), recipeID, rawError); err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, Result{Result: resultSuccess}) // @response recipeapi.Result
}

// Queues a trust update for the recipe behind error id and re-enables the
// recipe. Returns without waiting for the tool.
func (h *workflowHandler) requestTrustUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "id")
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	userID := apiframework.GetQueryParam(r, "user_id", "", "Slack user that approved the update.")
	channel := apiframework.GetQueryParam(r, "channel", "", "Slack channel the approval came from.")

	queued, err := h.workflow.RequestTrustUpdate(r.Context(), id, userID, channel)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	result := resultQueued
	if !queued {
		result = resultMissing
	}
	_ = apiframework.Encode(w, r, http.StatusOK, Result{Result: result}) // @response recipeapi.Result
}

func (h *workflowHandler) denyTrustUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "id")
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	if err := h.workflow.DenyTrustUpdate(r.Context(), id); err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, Result{Result: resultSuccess}) // @response recipeapi.Result
}

func (h *workflowHandler) trustUpdateSucceeded(w http.ResponseWriter, r *http.Request) {
	errorID, err := queryID(r, "error_id")
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	recipeID := apiframework.GetQueryParam(r, "recipe_id", "", "The recipe identifier.")
	msg := apiframework.GetQueryParam(r, "msg", "", "Output of the trust update.")
	if err := h.workflow.TrustUpdateSucceeded(r.Context(), recipeID, msg, errorID); err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, Result{Result: resultSuccess}) // @response recipeapi.Result
}

// error_id is optional; without it the latest error for recipe_id is used.
func (h *workflowHandler) trustUpdateFailed(w http.ResponseWriter, r *http.Request) {
	recipeID, err := apiframework.RequiredQuery(r, "recipe_id")
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	var errorID int64
	if raw := apiframework.GetQueryParam(r, "error_id", "", "The error message id."); raw != "" {
		if errorID, err = apiframework.ParseInt64("error_id", raw); err != nil {
			_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
			return
		}
	}
	msg := apiframework.GetQueryParam(r, "msg", "", "Why the trust update failed.")
	if err := h.workflow.TrustUpdateFailed(r.Context(), recipeID, msg, errorID); err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, Result{Result: resultSuccess}) // @response recipeapi.Result
}

// Called when parent recipe trust info changed. Posts the diff with
// Approve and Deny buttons.
func (h *workflowHandler) trustVerifyFailed(w http.ResponseWriter, r *http.Request) {
	in, err := apiframework.Decode[VerifyFailure](r) // @request recipeapi.VerifyFailure
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	if in.RecipeID == "" {
		_ = apiframework.Error(w, r, apiframework.MissingParameter("recipe_id"), apiframework.ExecuteOperation)
		return
	}
	if _, err := h.workflow.TrustVerifyFailed(r.Context(), in.RecipeID, in.Msg); err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, Result{Result: resultSuccess}) // @response recipeapi.Result
}
