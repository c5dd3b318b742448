package crawler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsync/internal/model"
)

const scraperURL = "http://scraper.test"

func newMockFetcher() (*HTTPFetcher, *httpmock.MockTransport) {
	transport := httpmock.NewMockTransport()
	return NewHTTPFetcher(scraperURL+"/", &http.Client{Transport: transport}), transport
}

func TestFetchCategoryDecodesRecords(t *testing.T) {
	f, transport := newMockFetcher()
	transport.RegisterResponder(http.MethodGet, scraperURL+"/api/scrape/motion/motors-servos",
		httpmock.NewStringResponder(http.StatusOK, `[
			{"sku":"5202-0002-0012","name":"Yellow Jacket Motor","category":"Motion",
			 "specifications":[{"attribute":"Voltage","values":["12V DC"]}],
			 "imageUrl":"https://example.test/m.jpeg","price":39.99,"availability":true}
		]`))

	recs, err := f.FetchCategory(context.Background(), "motion/motors-servos")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, "5202-0002-0012", recs[0].SKU)
	assert.Equal(t, []model.Specification{{Attribute: "Voltage", Values: []string{"12V DC"}}}, recs[0].Specifications)
	require.NotNil(t, recs[0].Price)
	assert.InDelta(t, 39.99, *recs[0].Price, 0.001)
	require.NotNil(t, recs[0].Availability)
	assert.True(t, *recs[0].Availability)
}

func TestFetchCategoryNullBodyIsEmpty(t *testing.T) {
	f, transport := newMockFetcher()
	transport.RegisterResponder(http.MethodGet, scraperURL+"/api/scrape/hardware/fasteners",
		httpmock.NewStringResponder(http.StatusOK, `null`))

	recs, err := f.FetchCategory(context.Background(), "hardware/fasteners")
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)
}

func TestFetchCategoryFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		kind      string
		status    int
		message   string
	}{
		{
			name:      "server error with detail",
			responder: httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":"browser crashed"}`),
			kind:      KindStatus,
			status:    http.StatusInternalServerError,
			message:   "failed to scrape category: 500: browser crashed",
		},
		{
			name:      "not found",
			responder: httpmock.NewStringResponder(http.StatusNotFound, ``),
			kind:      KindStatus,
			status:    http.StatusNotFound,
		},
		{
			name:      "malformed payload",
			responder: httpmock.NewStringResponder(http.StatusOK, `{"items":`),
			kind:      KindDecode,
		},
		{
			name:      "connection refused",
			responder: httpmock.NewErrorResponder(errors.New("connection refused")),
			kind:      KindConnection,
		},
		{
			name:      "deadline",
			responder: httpmock.NewErrorResponder(context.DeadlineExceeded),
			kind:      KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, transport := newMockFetcher()
			transport.RegisterResponder(http.MethodGet, scraperURL+"/api/scrape/motion/wheels-hubs", tt.responder)

			_, err := f.FetchCategory(context.Background(), "motion/wheels-hubs")
			require.Error(t, err)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.kind, ErrorKind(err))
			if tt.status != 0 {
				assert.Equal(t, tt.status, fe.StatusCode)
			}
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}
