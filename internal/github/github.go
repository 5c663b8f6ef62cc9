package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	perPage   = 100
	maxPages  = 400
	pageDelay = 350 * time.Millisecond
)

// Client is a thin wrapper around the GitHub REST API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	pageDelay  time.Duration
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Client{
		token:      token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageDelay:  pageDelay,
	}
}

// StarRecord is one raw element of the starred list. Depending on the media
// type it is either {"starred_at": ..., "repo": {...}} or a bare repository.
type StarRecord = json.RawMessage

// APIError is a non-200 response from the GitHub API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API returned %d: %s", e.Status, e.Body)
}

func (e *APIError) HTTPStatus() int  { return e.Status }
func (e *APIError) HTTPBody() string { return e.Body }

// FetchStarred pages through /user/starred until a short page, an empty
// page or the page cap, pausing between pages. Any failed page fails the
// whole fetch.
func (c *Client) FetchStarred(ctx context.Context) ([]StarRecord, error) {
	var all []StarRecord

	for page := 1; ; page++ {
		records, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetching starred page %d: %w", page, err)
		}
		if len(records) == 0 {
			break
		}

		all = append(all, records...)
		slog.Info("fetched starred page", "page", page, "total", len(all))

		if len(records) < perPage || page >= maxPages {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, page int) ([]StarRecord, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/starred?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.star+json, application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var records []StarRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return records, nil
}
