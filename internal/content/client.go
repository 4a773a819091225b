// Package content fetches and normalizes lexicon entries from the blog
// content API.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/config"
	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
)

// FetchError is returned for non-2xx responses and transport failures.
// Callers fetching details catch it per item and skip rather than abort.
type FetchError struct {
	StatusCode int
	Slug       string
	URL        string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("content: fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("content: fetch %s: status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client reads the lexicon list and per-slug details from the content API,
// consulting the on-disk cache before any network call.
type Client struct {
	http    *http.Client
	cfg     config.ContentConfig
	cache   *Cache
	limiter *rate.Limiter
}

// listResponse is the wire shape of the list endpoint.
type listResponse struct {
	BlogPosts []model.RawListEntry `json:"blogPosts"`
	Count     int                  `json:"count"`
}

// detailResponse is the wire shape of the detail endpoint.
type detailResponse struct {
	BlogPost model.RawDetail `json:"blogPost"`
}

// NewClient creates a content API client backed by the given cache.
func NewClient(cfg config.ContentConfig, cache *Cache) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 4
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		cfg:     cfg,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// FetchList retrieves every list entry, paging until the reported count is
// exhausted. Each page is cached independently.
func (c *Client) FetchList(ctx context.Context) ([]model.RawListEntry, error) {
	var entries []model.RawListEntry
	offset := 0

	for {
		page, count, err := c.fetchListPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page...)

		offset += c.cfg.PageSize
		if len(page) == 0 || len(entries) >= count {
			break
		}
	}

	zap.L().Info("content: fetched list", zap.Int("entries", len(entries)))
	return entries, nil
}

func (c *Client) fetchListPage(ctx context.Context, offset int) ([]model.RawListEntry, int, error) {
	key := listPageKey(c.cfg.BlogID, offset)

	body, ok := c.cache.Get(key)
	if !ok {
		u := fmt.Sprintf("%s/blogs/posts/all?locationId=%s&blogId=%s&limit=%d&offset=%d",
			c.cfg.BaseURL,
			url.QueryEscape(c.cfg.LocationID),
			url.QueryEscape(c.cfg.BlogID),
			c.cfg.PageSize, offset,
		)
		var err error
		body, err = c.get(ctx, u, "")
		if err != nil {
			return nil, 0, err
		}
		if cacheErr := c.cache.Put(key, body); cacheErr != nil {
			zap.L().Warn("content: cache write failed", zap.Error(cacheErr))
		}
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, eris.Wrapf(err, "content: decode list page offset %d", offset)
	}
	return resp.BlogPosts, resp.Count, nil
}

// FetchDetail retrieves the detail payload for one slug, from cache when
// available.
func (c *Client) FetchDetail(ctx context.Context, slug string) (*model.RawDetail, error) {
	key := detailKey(slug)

	body, ok := c.cache.Get(key)
	if !ok {
		u := fmt.Sprintf("%s/blogs/posts/url-slug-details?locationId=%s&urlSlug=%s",
			c.cfg.BaseURL,
			url.QueryEscape(c.cfg.LocationID),
			url.QueryEscape(slug),
		)
		var err error
		body, err = c.get(ctx, u, slug)
		if err != nil {
			return nil, err
		}
		if cacheErr := c.cache.Put(key, body); cacheErr != nil {
			zap.L().Warn("content: cache write failed", zap.Error(cacheErr))
		}
	}

	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrapf(err, "content: decode detail %s", slug)
	}
	return &resp.BlogPost, nil
}

// get issues one rate-limited GET and returns the response body.
func (c *Client) get(ctx context.Context, rawURL, slug string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "content: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "content: build request %s", rawURL)
	}
	if c.cfg.Key != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Key)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Slug: slug, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{StatusCode: resp.StatusCode, Slug: slug, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Slug: slug, URL: rawURL, Err: err}
	}
	return body, nil
}
