package authapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/contenox/pkgbot/apiframework"
	"github.com/contenox/pkgbot/libauth"
)

// Credentials of the single operator account.
type Credentials struct {
	User         string
	PasswordHash string
}

func AddAuthRoutes(mux *http.ServeMux, auth *libauth.Config, admin Credentials) {
	h := &authHandler{auth: auth, admin: admin}

	mux.HandleFunc("POST /auth/token", h.token)
}

type authHandler struct {
	auth  *libauth.Config
	admin Credentials
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Exchanges form username and password for a bearer token.
func (h *authHandler) token(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Enabled() {
		_ = apiframework.Error(w, r, apiframework.NotFound("authentication is disabled"), apiframework.GetOperation)
		return
	}
	if err := r.ParseForm(); err != nil {
		_ = apiframework.Error(w, r, apiframework.BadRequest(err.Error()), apiframework.CreateOperation)
		return
	}
	username := r.PostForm.Get("username")
	if username == "" {
		_ = apiframework.Error(w, r, apiframework.MissingParameter("username"), apiframework.CreateOperation)
		return
	}
	password := r.PostForm.Get("password")

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.admin.User)) == 1
	passErr := libauth.CheckPassword(h.admin.PasswordHash, password)
	if !userOK || passErr != nil {
		_ = apiframework.Error(w, r, libauth.ErrNotAuthorized, apiframework.AuthorizeOperation)
		return
	}

	token, expiresAt, err := libauth.CreateToken(h.auth, username, libauth.RoleAdmin)
	if err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ServerOperation)
		return
	}
	_ = apiframework.Encode(w, r, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}) // @response authapi.tokenResponse
}
