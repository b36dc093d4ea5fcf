package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Fetch failure classes. A StatusError for any status other than 401 unwraps
// to ErrFetchFailed.
var (
	ErrUnauthorized = errors.New("analytics: backend session is not authorized")
	ErrFetchFailed  = errors.New("analytics: fetch search analytics")
)

// StatusError reports an unexpected HTTP status from the backend.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analytics: backend returned %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error {
	return ErrFetchFailed
}

const (
	searchAnalyticsPath = "/search-analytics"
	authPath            = "/auth"

	// maxBodyBytes bounds how much of a backend response is read.
	maxBodyBytes = 8 << 20
)

// Client talks to the analytics backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the backend rooted at baseURL. A nil
// httpClient gets a client with the given timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("analytics: parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("analytics: backend url %q must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("analytics: backend url %q has no host", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}, nil
}

// AuthURL is where the browser is sent to start the backend login flow.
func (c *Client) AuthURL() string {
	return c.baseURL + authPath
}

// Fetch performs one credentialed GET of the search analytics endpoint,
// forwarding cookies as the browser's credentials. It never retries.
//
// If ctx is cancelled the returned error wraps ctx.Err() and not
// ErrFetchFailed, so callers can tell a stale request from a failed one.
func (c *Client) Fetch(ctx context.Context, cookies []*http.Cookie) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchAnalyticsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("analytics: fetch abandoned: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("analytics: fetch abandoned: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrFetchFailed, maxBodyBytes)
	}
	return ParseRows(body), nil
}

// ParseRows extracts the rows array from a search analytics response body.
// A body that is not JSON, or whose rows field is absent, null or not an
// array, yields an empty slice.
func ParseRows(body []byte) []Row {
	if !gjson.ValidBytes(body) {
		return []Row{}
	}
	result := gjson.GetBytes(body, "rows")
	if !result.IsArray() {
		return []Row{}
	}
	items := result.Array()
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, parseRow(item))
	}
	return rows
}

func parseRow(item gjson.Result) Row {
	var row Row
	if keys := item.Get("keys"); keys.IsArray() {
		for _, k := range keys.Array() {
			row.Keys = append(row.Keys, k.String())
		}
	}
	if row.Keys == nil {
		row.Keys = []string{}
	}
	row.Clicks = item.Get("clicks").Int()
	row.Impressions = item.Get("impressions").Int()
	return row
}
