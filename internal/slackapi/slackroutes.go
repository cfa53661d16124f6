// Package slackapi receives Slack interactivity callbacks and turns button
// presses into trust workflow transitions.
package slackapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/contenox/pkgbot/apiframework"
	"github.com/contenox/pkgbot/libcipher"
	"github.com/contenox/pkgbot/slacknotify"
	"github.com/contenox/pkgbot/trustworkflow"
	"github.com/slack-go/slack"
)

const (
	maxBody         = 1 << 20
	signatureScheme = "v0"
)

var (
	ErrBadSignature = fmt.Errorf("invalid slack signature: %w", apiframework.ErrUnauthorized)
	ErrStaleRequest = fmt.Errorf("slack request timestamp out of range: %w", apiframework.ErrUnauthorized)
	ErrNoSecret     = fmt.Errorf("slack signing secret not configured: %w", apiframework.ErrUnauthorized)
)

func AddSlackRoutes(mux *http.ServeMux, workflow trustworkflow.Service, signingSecret string) {
	h := &slackHandler{workflow: workflow, secret: signingSecret}

	mux.HandleFunc("POST /slack/receive", h.receive)
}

type slackHandler struct {
	workflow trustworkflow.Service
	secret   string
}

// Sign returns the signature Slack sends for body at timestamp ts.
func Sign(secret, ts string, body []byte) string {
	base := signatureScheme + ":" + ts + ":" + string(body)
	return signatureScheme + "=" + libcipher.ComputeHexDigest([]byte(secret), []byte(base))
}

// Verify checks the request signature headers against body. Requests more
// than five minutes old or ahead are rejected as stale.
func Verify(secret string, header http.Header, body []byte) error {
	if secret == "" {
		return ErrNoSecret
	}
	sv, err := slack.NewSecretsVerifier(header, secret)
	if errors.Is(err, slack.ErrExpiredTimestamp) {
		return ErrStaleRequest
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if err := sv.Ensure(); err != nil {
		return ErrBadSignature
	}
	return nil
}

// Handles Approve and Deny presses on trust diff messages. Other
// interaction types are acknowledged and ignored.
func (h *slackHandler) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		_ = apiframework.Error(w, r, fmt.Errorf("%w: %w", apiframework.ErrBadRequest, err), apiframework.ExecuteOperation)
		return
	}
	if err := Verify(h.secret, r.Header, body); err != nil {
		_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		_ = apiframework.Error(w, r, fmt.Errorf("%w: %w", apiframework.ErrBadRequest, err), apiframework.ExecuteOperation)
		return
	}
	raw := form.Get("payload")
	if raw == "" {
		_ = apiframework.Error(w, r, apiframework.MissingParameter("payload"), apiframework.ExecuteOperation)
		return
	}
	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(raw), &callback); err != nil {
		_ = apiframework.Error(w, r, fmt.Errorf("%w: decode payload: %w", apiframework.ErrBadRequest, err), apiframework.ExecuteOperation)
		return
	}

	if callback.Type != slack.InteractionTypeBlockActions {
		slog.DebugContext(ctx, "ignoring slack interaction", "type", callback.Type)
		w.WriteHeader(http.StatusOK)
		return
	}
	channel := callback.Channel.ID
	if channel == "" {
		channel = callback.Container.ChannelID
	}

	for _, action := range callback.ActionCallback.BlockActions {
		if action.ActionID != slacknotify.ActionApprove && action.ActionID != slacknotify.ActionDeny {
			continue
		}
		errorID, err := apiframework.ParseInt64("value", action.Value)
		if err != nil {
			_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
			return
		}
		slog.InfoContext(ctx, "slack trust decision", "action", action.ActionID, "error_id", errorID, "user_id", callback.User.ID)

		if action.ActionID == slacknotify.ActionApprove {
			_, err = h.workflow.RequestTrustUpdate(ctx, errorID, callback.User.ID, channel)
		} else {
			err = h.workflow.DenyTrustUpdate(ctx, errorID)
		}
		if err != nil {
			_ = apiframework.Error(w, r, err, apiframework.ExecuteOperation)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
