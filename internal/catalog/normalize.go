// Package catalog reconciles scraped product records against the persisted parts catalog.
package catalog

import (
	"slices"

	"github.com/google/uuid"

	"partsync/internal/model"
)

// NewID generates identities for parts seen for the first time.
var NewID = func() string {
	return uuid.NewString()
}

// Normalize converts a scraped record into a Part. A non-empty existingID is reused,
// otherwise a fresh identity is generated. Every other field is copied from the record.
func Normalize(rec model.ScrapedRecord, existingID string) model.Part {
	id := existingID
	if id == "" {
		id = NewID()
	}

	return model.Part{
		ID:             id,
		SKU:            rec.SKU,
		Name:           rec.Name,
		Category:       rec.Category,
		Description:    rec.Description,
		Specifications: cloneSpecifications(rec.Specifications),
		ImageURL:       rec.ImageURL,
	}
}

func cloneSpecifications(specs []model.Specification) []model.Specification {
	if specs == nil {
		return []model.Specification{}
	}
	out := make([]model.Specification, len(specs))
	for i, s := range specs {
		out[i] = model.Specification{
			Attribute: s.Attribute,
			Values:    slices.Clone(s.Values),
		}
		if out[i].Values == nil {
			out[i].Values = []string{}
		}
	}
	return out
}
