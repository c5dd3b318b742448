package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsync/internal/model"
)

func newDocument(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestParseListing(t *testing.T) {
	doc := newDocument(t, `
	<div class="product-item">
	  <a href="/yellow-jacket-motor"><img data-src="/img/5901.jpeg"></a>
	  <h3 class="product-name"> Yellow Jacket Motor (5.2:1) </h3>
	  <span class="sku">SKU: 5202-0002-0012</span>
	  <span class="price">$39.99</span>
	</div>`)

	l, ok := ParseListing(doc.Find(".product-item"))
	require.True(t, ok)

	assert.Equal(t, "5202-0002-0012", l.SKU)
	assert.Equal(t, "Yellow Jacket Motor (5.2:1)", l.Name)
	assert.Equal(t, "/img/5901.jpeg", l.ImageURL)
	assert.Equal(t, "/yellow-jacket-motor", l.ProductURL)
	require.NotNil(t, l.Price)
	assert.InDelta(t, 39.99, *l.Price, 0.001)
}

func TestParseListingSKUFromAttribute(t *testing.T) {
	doc := newDocument(t, `<div class="product-card" data-sku="1120-0016-0500"><h4>U-Channel</h4></div>`)

	l, ok := ParseListing(doc.Find(".product-card"))
	require.True(t, ok)
	assert.Equal(t, "1120-0016-0500", l.SKU)
}

func TestParseListingPrefersNestedSKUAttribute(t *testing.T) {
	doc := newDocument(t, `
	<div class="product-item">
	  <h3>Hub Mount</h3>
	  <span class="product-sku" data-sku="1310-0016-4012">Part number</span>
	</div>`)

	l, ok := ParseListing(doc.Find(".product-item"))
	require.True(t, ok)
	assert.Equal(t, "1310-0016-4012", l.SKU)
}

func TestParseListingRequiresNameAndSKU(t *testing.T) {
	doc := newDocument(t, `<div class="product-card"><h4>No SKU here</h4></div>`)

	_, ok := ParseListing(doc.Find(".product-card"))
	assert.False(t, ok)
}

func TestParseProductDetails(t *testing.T) {
	doc := newDocument(t, `
	<div class="product-description">12V DC motor with planetary gearbox.</div>
	<table class="specifications">
	  <tr><td>Voltage</td><td>12V DC</td></tr>
	  <tr><td>Gear Ratio</td><td>5.2:1</td></tr>
	  <tr><td>lonely cell</td></tr>
	</table>`)

	rec := ParseProductDetails(doc, model.ScrapedRecord{SKU: "5202-0002-0012", Name: "Motor"})

	assert.Equal(t, "12V DC motor with planetary gearbox.", rec.Description)
	assert.Equal(t, []model.Specification{
		{Attribute: "Voltage", Values: []string{"12V DC"}},
		{Attribute: "Gear Ratio", Values: []string{"5.2:1"}},
	}, rec.Specifications)
}

func TestParseProductDetailsDefaults(t *testing.T) {
	doc := newDocument(t, `<html><body><p>nothing useful</p></body></html>`)

	rec := ParseProductDetails(doc, model.ScrapedRecord{SKU: "2302-0004-0001", Name: "Nyloc Nut"})

	assert.Equal(t, "Nyloc Nut", rec.Description)
	assert.Equal(t, []model.Specification{{Attribute: "SKU", Values: []string{"2302-0004-0001"}}}, rec.Specifications)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{in: "$12.99", want: ptr(12.99)},
		{in: "USD 1,299.50", want: ptr(1299.50)},
		{in: "Call for price", want: nil},
		{in: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParsePrice(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 0.001)
		})
	}
}

func ptr(v float64) *float64 { return &v }
