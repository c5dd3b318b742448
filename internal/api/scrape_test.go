package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsync/internal/crawler"
	"partsync/internal/logging"
	"partsync/internal/model"
)

type stubScraper struct {
	categories map[string][]model.ScrapedRecord
	seen       []string
}

func (s *stubScraper) ScrapeCategory(_ context.Context, category string) ([]model.ScrapedRecord, error) {
	s.seen = append(s.seen, category)
	recs, ok := s.categories[category]
	if !ok {
		return nil, errors.New("browser crashed")
	}
	return recs, nil
}

func newScrapeServer(t *testing.T, s *stubScraper, output string) *httptest.Server {
	t.Helper()
	h := NewScrape(s, []string{"motion/motors", "hardware/screws", "broken"}, 0, output, logging.Discard())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeCategoryFeedsFetcher(t *testing.T) {
	s := &stubScraper{categories: map[string][]model.ScrapedRecord{
		"motion/motors": {{SKU: "M1", Name: "Motor"}},
	}}
	srv := newScrapeServer(t, s, filepath.Join(t.TempDir(), "parts.json"))
	f := crawler.NewHTTPFetcher(srv.URL, srv.Client())

	recs, err := f.FetchCategory(context.Background(), "motion/motors")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "M1", recs[0].SKU)
	assert.Equal(t, []string{"motion/motors"}, s.seen)

	_, err = f.FetchCategory(context.Background(), "electronics")
	require.Error(t, err)
	assert.Equal(t, crawler.KindStatus, crawler.ErrorKind(err))
	assert.Contains(t, err.Error(), "browser crashed")
}

func TestScrapeAllWritesOutputFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "parts.json")
	s := &stubScraper{categories: map[string][]model.ScrapedRecord{
		"motion/motors":   {{SKU: "M1"}},
		"hardware/screws": {{SKU: "S1"}, {SKU: "S2"}},
	}}
	srv := newScrapeServer(t, s, output)

	resp, err := srv.Client().Get(srv.URL + "/api/parts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/api/scrape-all")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[scrapeAllResponse](t, resp)
	resp.Body.Close()
	assert.True(t, all.Success)
	assert.Equal(t, 3, all.Count)
	assert.Contains(t, all.Errors, "broken")

	saved, err := crawler.ReadRecordsFile(output)
	require.NoError(t, err)
	assert.Len(t, saved, 3)

	resp, err = srv.Client().Get(srv.URL + "/api/parts")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.ScrapedRecord](t, resp), 3)
	resp.Body.Close()
}

func TestScrapeHealth(t *testing.T) {
	srv := newScrapeServer(t, &stubScraper{}, filepath.Join(t.TempDir(), "parts.json"))

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", decode[map[string]string](t, resp)["status"])
}
