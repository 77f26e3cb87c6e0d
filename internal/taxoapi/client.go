// Package taxoapi is the taxonomy-provider lookup client: category-scoped
// and unscoped fuzzy name search over HTTP. Lookups get one retry and are
// never allowed to be fatal to the pipeline.
package taxoapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bird-board/internal/taxonomy"
	"bird-board/internal/utils"
)

const maxAttempts = 2 // first try plus one retry

type Client struct {
	base       string
	key        string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(base, key string, log *slog.Logger) *Client {
	return &Client{
		base:       strings.TrimRight(base, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		log:        log,
	}
}

// SearchScoped searches within one taxonomy category.
func (c *Client) SearchScoped(ctx context.Context, cat taxonomy.Category, query string) (string, error) {
	q := url.Values{"q": {query}, "cat": {string(cat)}}
	return c.search(ctx, q)
}

// SearchAny searches across all categories; vague hints land here.
func (c *Client) SearchAny(ctx context.Context, query string) (string, error) {
	q := url.Values{"q": {query}}
	return c.search(ctx, q)
}

// search returns the provider's best match code, or "" when the provider has
// no match for the query. "" with a nil error is a definitive miss.
func (c *Client) search(ctx context.Context, q url.Values) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := c.searchOnce(ctx, q)
		if err == nil {
			return code, nil
		}
		lastErr = err
	}
	return "", utils.NewAppError(utils.ErrTaxonomyUnreachable, "taxon search failed", lastErr)
}

func (c *Client) searchOnce(ctx context.Context, q url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/ref/taxon/find?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", utils.NewAppError(utils.ErrTaxonomyUnreachable,
			"taxon search returned status "+resp.Status, nil)
	}

	var matches []struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	return strings.ToLower(matches[0].Code), nil
}
