package forum

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bird-board/internal/config"
	"bird-board/internal/models"
	"bird-board/internal/utils"
)

// maxAttempts bounds retries on authorized forum calls. Retries are
// immediate; backoff policy lives with the callers' timers.
const maxAttempts = 3

// Client talks to the forum API. Reads pass through a client-side limiter;
// write spacing is the publish pipeline's job, not the client's.
type Client struct {
	base       string
	httpClient *http.Client
	auth       *TokenSource
	readLimit  *rate.Limiter
	userAgent  string
	username   string
	log        *slog.Logger
}

var _ Reader = (*Client)(nil)
var _ Writer = (*Client)(nil)

func NewClient(cfg *config.ForumConfig, log *slog.Logger) *Client {
	return &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		auth: NewTokenSource(cfg.BaseURL+"/api/v1/access_token",
			cfg.ClientID, cfg.ClientSecret, cfg.Username, cfg.Password, cfg.UserAgent, log),
		readLimit: rate.NewLimiter(rate.Limit(cfg.ReadRPS), 1),
		userAgent: cfg.UserAgent,
		username:  cfg.Username,
		log:       log,
	}
}

// Username is the bot's publishing identity, used to recognize its own
// comments in the fetch stream.
func (c *Client) Username() string { return c.username }

func (c *Client) SubmissionsBefore(ctx context.Context, before string, limit int) ([]models.Submission, error) {
	return c.listSubmissions(ctx, "before", before, limit)
}

func (c *Client) SubmissionsAfter(ctx context.Context, after string, limit int) ([]models.Submission, error) {
	return c.listSubmissions(ctx, "after", after, limit)
}

func (c *Client) CommentsBefore(ctx context.Context, before string, limit int) ([]models.Comment, error) {
	return c.listComments(ctx, "before", before, limit)
}

func (c *Client) CommentsAfter(ctx context.Context, after string, limit int) ([]models.Comment, error) {
	return c.listComments(ctx, "after", after, limit)
}

func (c *Client) SubmissionsByID(ctx context.Context, ids []string) ([]models.Submission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	var listing submissionListing
	if err := c.do(ctx, http.MethodGet, "/submissions", q, nil, &listing, true); err != nil {
		return nil, err
	}
	out := make([]models.Submission, 0, len(listing.Items))
	for _, w := range listing.Items {
		out = append(out, w.model())
	}
	return out, nil
}

func (c *Client) CreateComment(ctx context.Context, submissionID, body string) (string, error) {
	var resp createCommentResponse
	err := c.do(ctx, http.MethodPost, "/comments", nil,
		createCommentRequest{SubmissionID: submissionID, Body: body}, &resp, false)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) EditComment(ctx context.Context, commentID, body string) error {
	return c.do(ctx, http.MethodPatch, "/comments/"+url.PathEscape(commentID), nil,
		editCommentRequest{Body: body}, nil, false)
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, nil, nil, false)
}

func (c *Client) listSubmissions(ctx context.Context, cursorKey, cursor string, limit int) ([]models.Submission, error) {
	var listing submissionListing
	if err := c.do(ctx, http.MethodGet, "/submissions/newest", cursorQuery(cursorKey, cursor, limit), nil, &listing, true); err != nil {
		return nil, err
	}
	out := make([]models.Submission, 0, len(listing.Items))
	for _, w := range listing.Items {
		out = append(out, w.model())
	}
	return out, nil
}

func (c *Client) listComments(ctx context.Context, cursorKey, cursor string, limit int) ([]models.Comment, error) {
	var listing commentListing
	if err := c.do(ctx, http.MethodGet, "/comments/newest", cursorQuery(cursorKey, cursor, limit), nil, &listing, true); err != nil {
		return nil, err
	}
	out := make([]models.Comment, 0, len(listing.Items))
	for _, w := range listing.Items {
		out = append(out, w.model())
	}
	return out, nil
}

func cursorQuery(key, cursor string, limit int) url.Values {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		q.Set(key, cursor)
	}
	return q
}

// do runs one authorized call with bounded immediate retries. Network errors
// and lost token races consume attempts; a 401/403 triggers exactly one
// refresh-and-retry; other non-2xx statuses surface to the call site.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any, isRead bool) error {
	op := method + " " + path
	refreshed := false
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if isRead {
			if err := c.readLimit.Wait(ctx); err != nil {
				return err
			}
		}

		access, err := c.auth.Token(ctx)
		if err != nil {
			if utils.IsErrorCode(err, utils.ErrTokenRaceLost) {
				// Someone else is refreshing; retry the whole call.
				lastErr = err
				continue
			}
			return err
		}

		resp, err := c.send(ctx, method, path, q, body, access)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			if refreshed {
				return utils.NewForumStatusError(op, resp.StatusCode)
			}
			refreshed = true
			c.auth.Invalidate(access)
			attempt-- // the refresh retry is not one of the bounded attempts
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return utils.NewForumStatusError(op, resp.StatusCode)
		}

		if out == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return utils.NewAppError(utils.ErrForumStatus, "decode response for "+op, err)
		}
		return nil
	}

	return utils.NewForumUnreachableError(op, lastErr)
}

func (c *Client) send(ctx context.Context, method, path string, q url.Values, body any, access string) (*http.Response, error) {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}
