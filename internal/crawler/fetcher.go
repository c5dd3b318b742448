package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"partsync/internal/model"
)

// Fetcher returns the scraped records of one category.
type Fetcher interface {
	FetchCategory(ctx context.Context, category string) ([]model.ScrapedRecord, error)
}

// HTTPFetcher calls GET {baseURL}/api/scrape/{category} on the scrape service.
// It never retries; failures are returned as *FetchError.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher builds a fetcher; a nil client gets a 60s timeout.
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

func (f *HTTPFetcher) FetchCategory(ctx context.Context, category string) ([]model.ScrapedRecord, error) {
	endpoint := f.baseURL + "/api/scrape/" + escapeCategory(category)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindRequest, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to scrape category: %s%s", resp.Status, errorDetail(resp.Body)),
		}
	}

	var records []model.ScrapedRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &FetchError{Kind: KindDecode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if records == nil {
		records = []model.ScrapedRecord{}
	}
	return records, nil
}

func escapeCategory(category string) string {
	segments := strings.Split(strings.Trim(category, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// errorDetail extracts the {"error": "..."} message the scrape service sends with failures.
func errorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 1024))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return ": " + payload.Error
	}
	return ""
}
