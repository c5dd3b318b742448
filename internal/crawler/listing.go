package crawler

import (
	"net/url"
	"strings"

	"partsync/internal/model"
)

// listing is a product as shown on a category page, before its detail page is read.
type listing struct {
	SKU        string
	Name       string
	Price      *float64
	ImageURL   string
	ProductURL string
}

func (l listing) record(category string) model.ScrapedRecord {
	return model.ScrapedRecord{
		SKU:        l.SKU,
		Name:       l.Name,
		Category:   category,
		ImageURL:   l.ImageURL,
		ProductURL: l.ProductURL,
		Price:      l.Price,
	}
}

// categoryLabel derives the part category from the first segment of a category path,
// e.g. "motion/motors" becomes "Motion".
func categoryLabel(pageURL *url.URL) string {
	segment := strings.Split(strings.Trim(pageURL.Path, "/"), "/")[0]
	if segment == "" {
		return "Unknown"
	}
	return strings.ToUpper(segment[:1]) + segment[1:]
}
