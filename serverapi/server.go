package serverapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/contenox/pkgbot/apiframework"
	"github.com/contenox/pkgbot/internal/authapi"
	"github.com/contenox/pkgbot/internal/recipeapi"
	"github.com/contenox/pkgbot/internal/slackapi"
	"github.com/contenox/pkgbot/libauth"
	"github.com/contenox/pkgbot/libbus"
	libdb "github.com/contenox/pkgbot/libdbexec"
	libkv "github.com/contenox/pkgbot/libkvstore"
	"github.com/contenox/pkgbot/libtracker"
	"github.com/contenox/pkgbot/recipeservice"
	"github.com/contenox/pkgbot/trustworkflow"
)

// AuthConfig derives the token settings from config.
func AuthConfig(config *Config) (*libauth.Config, error) {
	ttl, err := config.GetTokenTTL()
	if err != nil {
		return nil, err
	}
	return &libauth.Config{SigningKey: config.JWTSigningKey, TokenTTL: ttl, Issuer: "pkgbot"}, nil
}

// NewWorkflow builds the trust workflow with activity tracking.
func NewWorkflow(config *Config, dbInstance libdb.DBManager, pubsub libbus.Messenger, kvManager libkv.KVManager, notifier trustworkflow.Notifier) (trustworkflow.Service, error) {
	leaseTTL, err := config.GetTrustLeaseTTL()
	if err != nil {
		return nil, err
	}
	workflow := trustworkflow.New(dbInstance, notifier, trustworkflow.NewBusDispatcher(pubsub), trustworkflow.NewLeaseStore(kvManager, leaseTTL))
	return trustworkflow.WithActivityTracker(workflow, tracker()), nil
}

func tracker() libtracker.ActivityTracker {
	return libtracker.ChainedTracker{
		libtracker.NewLogActivityTracker(slog.Default()),
	}
}

// New registers every route on mux.
func New(
	ctx context.Context,
	mux *http.ServeMux,
	nodeInstanceID string,
	config *Config,
	dbInstance libdb.DBManager,
	workflow trustworkflow.Service,
) error {
	auth, err := AuthConfig(config)
	if err != nil {
		return err
	}
	if !auth.Enabled() {
		slog.WarnContext(ctx, "jwt_signing_key not set, API authentication is disabled")
	}

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		_ = apiframework.Error(w, r, apiframework.ErrNotFound, apiframework.ListOperation)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		// OK
	})
	version := apiframework.GetVersion()
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		_ = apiframework.Encode(w, r, http.StatusOK, apiframework.AboutServer{Version: version, NodeInstanceID: nodeInstanceID})
	})
	doc, err := OpenAPIDocument(ctx, version)
	if err != nil {
		return fmt.Errorf("failed to build openapi document: %w", err)
	}
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, r *http.Request) {
		_ = apiframework.Encode(w, r, http.StatusOK, doc)
	})

	recipeService := recipeservice.New(dbInstance)
	recipeService = recipeservice.WithActivityTracker(recipeService, tracker())
	recipeapi.AddRecipeRoutes(mux, recipeService, auth)
	recipeapi.AddWorkflowRoutes(mux, workflow, auth)

	if config.SlackSigningSecret != "" {
		slackapi.AddSlackRoutes(mux, workflow, config.SlackSigningSecret)
	} else {
		slog.WarnContext(ctx, "slack_signing_secret not set, /slack/receive is disabled")
	}
	authapi.AddAuthRoutes(mux, auth, authapi.Credentials{
		User:         config.AdminUser,
		PasswordHash: config.AdminPasswordHash,
	})
	return nil
}

// Handler wraps mux with the request id and tracing middleware.
func Handler(mux *http.ServeMux) http.Handler {
	var apiHandler http.Handler = mux
	apiHandler = apiframework.RequestIDMiddleware(apiHandler)
	apiHandler = apiframework.TracingMiddleware(apiHandler)
	return apiHandler
}
