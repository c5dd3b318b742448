package crawler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"partsync/internal/model"
)

const (
	productSelector     = ".product-item, [data-product], .product-card"
	nameSelector        = ".product-name, .title, h3, h4"
	skuSelector         = ".sku, .product-sku, [data-sku]"
	priceSelector       = ".price, .product-price"
	nextPageSelector    = "li.next a, a[rel=next]"
	descriptionSelector = ".product-description, .description, .product-details"
	specTableSelector   = ".specifications, .product-specs, .specs-table"
	specRowSelector     = "tr, .spec-row"
	specCellSelector    = "th, td, .spec-label, .spec-value"
)

var (
	skuPrefix  = regexp.MustCompile(`(?i)^\s*SKU:?\s*`)
	priceDigit = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)*`)
)

// ParseListing extracts the basic product data from one product card.
// ok is false when the card carries no name or no SKU.
func ParseListing(card *goquery.Selection) (listing, bool) {
	name := firstText(card, nameSelector)

	skuEl := card.Find(skuSelector).First()
	if card.Is("[data-sku]") {
		skuEl = card
	}
	sku, ok := skuEl.Attr("data-sku")
	if !ok || strings.TrimSpace(sku) == "" {
		sku = skuEl.Text()
	}
	sku = strings.TrimSpace(skuPrefix.ReplaceAllString(sku, ""))

	if name == "" || sku == "" {
		return listing{}, false
	}

	img := card.Find("img").First()
	src, _ := img.Attr("src")
	if src == "" {
		src, _ = img.Attr("data-src")
	}
	href, _ := card.Find("a").First().Attr("href")

	return listing{
		SKU:        sku,
		Name:       name,
		Price:      ParsePrice(firstText(card, priceSelector)),
		ImageURL:   src,
		ProductURL: href,
	}, true
}

// ParseProductDetails enriches basic with the description and specification table of a
// product page. Without a description the name is used; without a specification table the
// SKU becomes the only specification.
func ParseProductDetails(doc *goquery.Document, basic model.ScrapedRecord) model.ScrapedRecord {
	rec := basic

	if desc := firstText(doc.Selection, descriptionSelector); desc != "" {
		rec.Description = desc
	}

	var specs []model.Specification
	doc.Find(specTableSelector).First().Find(specRowSelector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find(specCellSelector)
		if cells.Length() < 2 {
			return
		}
		specs = append(specs, model.Specification{
			Attribute: strings.TrimSpace(cells.Eq(0).Text()),
			Values:    []string{strings.TrimSpace(cells.Eq(1).Text())},
		})
	})
	if len(specs) > 0 {
		rec.Specifications = specs
	}

	return withDefaults(rec)
}

// ParsePrice reads the first number of a price label such as "$12.99"; nil when there is none.
func ParsePrice(text string) *float64 {
	match := priceDigit.FindString(text)
	if match == "" {
		return nil
	}
	match = strings.ReplaceAll(match, ",", "")
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

func withDefaults(rec model.ScrapedRecord) model.ScrapedRecord {
	if rec.Description == "" {
		rec.Description = rec.Name
	}
	if len(rec.Specifications) == 0 {
		rec.Specifications = []model.Specification{{Attribute: "SKU", Values: []string{rec.SKU}}}
	}
	return rec
}

func firstText(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}
