package authapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/contenox/pkgbot/internal/authapi"
	"github.com/contenox/pkgbot/libauth"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, mux *http.ServeMux, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestUnit_AuthToken(t *testing.T) {
	hash, err := libauth.HashPassword("correct horse")
	require.NoError(t, err)
	cfg := &libauth.Config{SigningKey: "k", TokenTTL: time.Hour}
	mux := http.NewServeMux()
	authapi.AddAuthRoutes(mux, cfg, authapi.Credentials{User: "pkgbot", PasswordHash: hash})

	rec := login(t, mux, url.Values{"username": {"pkgbot"}, "password": {"correct horse"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp.TokenType)

	claims, err := libauth.ValidateToken(cfg, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "pkgbot", claims.Identity)
	require.Equal(t, libauth.RoleAdmin, claims.Role)

	rec = login(t, mux, url.Values{"username": {"pkgbot"}, "password": {"wrong"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = login(t, mux, url.Values{"username": {"someone"}, "password": {"correct horse"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = login(t, mux, url.Values{"password": {"correct horse"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnit_AuthToken_Disabled(t *testing.T) {
	mux := http.NewServeMux()
	authapi.AddAuthRoutes(mux, &libauth.Config{}, authapi.Credentials{})

	rec := login(t, mux, url.Values{"username": {"a"}, "password": {"b"}})
	require.Equal(t, http.StatusNotFound, rec.Code)
}
