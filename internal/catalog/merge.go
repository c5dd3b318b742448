package catalog

import (
	"strings"

	"partsync/internal/model"
)

// MergeResult is the outcome of reconciling one scraped batch.
type MergeResult struct {
	Catalog []model.Part
	Added   int
	Updated int
	Skipped int
}

// Merge reconciles batch against existing by SKU.
//
// A record whose SKU is already known replaces the first part with that SKU in place and keeps
// its ID. Unknown SKUs are appended with a fresh ID. Untouched parts keep their relative order.
// A SKU repeated inside the batch updates the part added by its first occurrence, so the result
// never holds two parts with the same SKU. Records with a blank SKU are skipped.
// The input slice is not modified.
func Merge(existing []model.Part, batch []model.ScrapedRecord) MergeResult {
	merged := make([]model.Part, len(existing), len(existing)+len(batch))
	copy(merged, existing)

	positions := make(map[string]int, len(existing)+len(batch))
	for i, p := range merged {
		if _, ok := positions[p.SKU]; !ok {
			positions[p.SKU] = i
		}
	}

	res := MergeResult{}
	for _, rec := range batch {
		if strings.TrimSpace(rec.SKU) == "" {
			res.Skipped++
			continue
		}

		if i, ok := positions[rec.SKU]; ok {
			merged[i] = Normalize(rec, merged[i].ID)
			res.Updated++
			continue
		}

		merged = append(merged, Normalize(rec, ""))
		positions[rec.SKU] = len(merged) - 1
		res.Added++
	}

	res.Catalog = merged
	return res
}
