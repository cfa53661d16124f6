package slackapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/contenox/pkgbot/apiframework"
	"github.com/contenox/pkgbot/internal/slackapi"
	"github.com/contenox/pkgbot/trustworkflow"
	"github.com/stretchr/testify/require"
)

const secret = "8f742231b10e8888abcd99yyyzzz85a5"

type decision struct {
	action  string
	errorID int64
	userID  string
	channel string
}

type fakeWorkflow struct {
	trustworkflow.Service

	mu        sync.Mutex
	decisions []decision
}

func (f *fakeWorkflow) RequestTrustUpdate(_ context.Context, errorID int64, userID, channel string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, decision{"approve", errorID, userID, channel})
	return true, nil
}

func (f *fakeWorkflow) DenyTrustUpdate(_ context.Context, errorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, decision{action: "deny", errorID: errorID})
	return nil
}

func payload(actionID, value string) string {
	return `{"type":"block_actions","user":{"id":"U42"},"channel":{"id":"C7"},` +
		`"actions":[{"type":"button","block_id":"trust_decision","action_id":"` + actionID + `","value":"` + value + `"}]}`
}

func post(t *testing.T, mux *http.ServeMux, body string, ts time.Time, signature string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/receive", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	stamp := strconv.FormatInt(ts.Unix(), 10)
	req.Header.Set("X-Slack-Request-Timestamp", stamp)
	if signature == "" {
		signature = slackapi.Sign(secret, stamp, []byte(body))
	}
	req.Header.Set("X-Slack-Signature", signature)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec.Code
}

func setup() (*http.ServeMux, *fakeWorkflow) {
	wf := &fakeWorkflow{}
	mux := http.NewServeMux()
	slackapi.AddSlackRoutes(mux, wf, secret)
	return mux, wf
}

func TestUnit_Sign_KnownVector(t *testing.T) {
	// Example request from the Slack request signing documentation.
	body := "token=xyzz0WbapA4vBCDEFasx0q6G&team_id=T1DC2JH3J&team_domain=testteamnow&channel_id=G8PSS9T3V&channel_name=foobar&user_id=U2CERLKJA&user_name=roadrunner&command=%2Fwebhook-collect&text=&response_url=https%3A%2F%2Fhooks.slack.com%2Fcommands%2FT1DC2JH3J%2F397700885554%2F96rGlfmibIGlgcZRskXaIFfN&trigger_id=398738663015.47445629121.803a0bc887a14d10d2c447fce8b6703c"
	require.Equal(t,
		"v0=a2114d57b48eac39b9ad189dd8316235a7b4a8d21a10bd27519666489c69b503",
		slackapi.Sign(secret, "1531420618", []byte(body)),
	)
}

func TestUnit_Receive_ApproveAndDeny(t *testing.T) {
	mux, wf := setup()
	now := time.Now()

	body := url.Values{"payload": {payload("trust_approve", "12")}}.Encode()
	require.Equal(t, http.StatusOK, post(t, mux, body, now, ""))

	body = url.Values{"payload": {payload("trust_deny", "13")}}.Encode()
	require.Equal(t, http.StatusOK, post(t, mux, body, now, ""))

	require.Equal(t, []decision{
		{"approve", 12, "U42", "C7"},
		{action: "deny", errorID: 13},
	}, wf.decisions)
}

func TestUnit_Receive_RejectsTamperedBody(t *testing.T) {
	mux, wf := setup()
	now := time.Now()
	stamp := strconv.FormatInt(now.Unix(), 10)

	signed := url.Values{"payload": {payload("trust_approve", "12")}}.Encode()
	tampered := url.Values{"payload": {payload("trust_approve", "99")}}.Encode()
	require.Equal(t, http.StatusUnauthorized, post(t, mux, tampered, now, slackapi.Sign(secret, stamp, []byte(signed))))
	require.Empty(t, wf.decisions)
}

func TestUnit_Receive_RejectsStaleTimestamp(t *testing.T) {
	mux, wf := setup()
	body := url.Values{"payload": {payload("trust_approve", "12")}}.Encode()

	require.Equal(t, http.StatusUnauthorized, post(t, mux, body, time.Now().Add(-6*time.Minute), ""))
	require.Equal(t, http.StatusUnauthorized, post(t, mux, body, time.Now().Add(6*time.Minute), ""))
	require.Empty(t, wf.decisions)
}

func TestUnit_Receive_IgnoresOtherInteractions(t *testing.T) {
	mux, wf := setup()
	now := time.Now()

	body := url.Values{"payload": {`{"type":"view_submission","user":{"id":"U1"}}`}}.Encode()
	require.Equal(t, http.StatusOK, post(t, mux, body, now, ""))

	body = url.Values{"payload": {payload("something_else", "1")}}.Encode()
	require.Equal(t, http.StatusOK, post(t, mux, body, now, ""))
	require.Empty(t, wf.decisions)

	body = url.Values{"payload": {payload("trust_approve", "abc")}}.Encode()
	require.Equal(t, http.StatusBadRequest, post(t, mux, body, now, ""))

	require.Equal(t, http.StatusBadRequest, post(t, mux, "nothing=here", now, ""))
}

func TestUnit_Verify_NoSecret(t *testing.T) {
	require.ErrorIs(t, slackapi.Verify("", http.Header{}, nil), slackapi.ErrNoSecret)
}

func TestUnit_Verify(t *testing.T) {
	body := []byte("payload=%7B%7D")
	headers := func(ts time.Time, signature string) http.Header {
		stamp := strconv.FormatInt(ts.Unix(), 10)
		if signature == "" {
			signature = slackapi.Sign(secret, stamp, body)
		}
		h := http.Header{}
		h.Set("X-Slack-Request-Timestamp", stamp)
		h.Set("X-Slack-Signature", signature)
		return h
	}

	require.NoError(t, slackapi.Verify(secret, headers(time.Now(), ""), body))

	err := slackapi.Verify(secret, headers(time.Now().Add(-10*time.Minute), ""), body)
	require.ErrorIs(t, err, slackapi.ErrStaleRequest)
	require.ErrorIs(t, err, apiframework.ErrUnauthorized)

	err = slackapi.Verify(secret, headers(time.Now(), ""), []byte("payload=other"))
	require.ErrorIs(t, err, slackapi.ErrBadSignature)

	err = slackapi.Verify("another-secret", headers(time.Now(), ""), body)
	require.ErrorIs(t, err, slackapi.ErrBadSignature)

	err = slackapi.Verify(secret, headers(time.Now(), "v0=not-hex"), body)
	require.ErrorIs(t, err, slackapi.ErrBadSignature)

	err = slackapi.Verify(secret, http.Header{}, body)
	require.ErrorIs(t, err, slackapi.ErrBadSignature)
	require.ErrorIs(t, err, apiframework.ErrUnauthorized)
}
