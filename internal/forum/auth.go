package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bird-board/internal/utils"
)

// expirySlack refreshes slightly early so a token never dies mid-call.
const expirySlack = 30 * time.Second

type token struct {
	access string
	expiry time.Time
}

func (t *token) valid() bool {
	return t != nil && t.access != "" && time.Until(t.expiry) > expirySlack
}

// TokenSource refreshes an OAuth password-grant access token lazily and
// exactly once under contention. A caller that observes a stale token either
// wins the refresh or fails fast with the token-race-lost condition and must
// retry its whole call; nobody ever blocks on somebody else's refresh.
type TokenSource struct {
	current    atomic.Pointer[token]
	refreshing atomic.Bool

	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	username     string
	password     string
	userAgent    string
	deviceID     string
	log          *slog.Logger
}

func NewTokenSource(tokenURL, clientID, clientSecret, username, password, userAgent string, log *slog.Logger) *TokenSource {
	return &TokenSource{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		username:     username,
		password:     password,
		userAgent:    userAgent,
		deviceID:     uuid.NewString(),
		log:          log,
	}
}

// Token returns a valid access token, refreshing if needed. Losing a
// concurrent refresh returns the TOKEN_RACE_LOST condition, which is not an
// HTTP failure and must not be reported as one.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	if t := ts.current.Load(); t.valid() {
		return t.access, nil
	}

	if !ts.refreshing.CompareAndSwap(false, true) {
		return "", utils.NewTokenRaceLostError()
	}
	defer ts.refreshing.Store(false)

	// Re-check after winning; the previous winner may have just finished.
	if t := ts.current.Load(); t.valid() {
		return t.access, nil
	}

	t, err := ts.exchange(ctx)
	if err != nil {
		return "", err
	}
	ts.current.Store(t)
	ts.log.Debug("forum token refreshed", "expiresAt", t.expiry)
	return t.access, nil
}

// Invalidate drops the cached token if it is still the one that just got
// rejected, forcing the next caller to refresh.
func (ts *TokenSource) Invalidate(access string) {
	if t := ts.current.Load(); t != nil && t.access == access {
		ts.current.CompareAndSwap(t, nil)
	}
}

func (ts *TokenSource) exchange(ctx context.Context) (*token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", ts.username)
	form.Set("password", ts.password)
	form.Set("device_id", ts.deviceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrUnauthorized, "build token request", err)
	}
	req.SetBasicAuth(ts.clientID, ts.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", ts.userAgent)

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewForumUnreachableError("token refresh", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewAppError(utils.ErrUnauthorized,
			fmt.Sprintf("token endpoint returned status %d", resp.StatusCode), nil)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, utils.NewAppError(utils.ErrUnauthorized, "decode token response", err)
	}
	if payload.AccessToken == "" {
		return nil, utils.NewAppError(utils.ErrUnauthorized, "token response missing access_token", nil)
	}
	return &token{
		access: payload.AccessToken,
		expiry: time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}
