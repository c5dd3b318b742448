package catalog

import (
	"strings"

	"partsync/internal/model"
)

// Search returns parts whose name, SKU, description, category or any specification value
// contains query, case-insensitively. An empty query matches everything.
func Search(parts []model.Part, query string) []model.Part {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Part, 0, len(parts))
	for _, p := range parts {
		if q == "" || matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p model.Part, q string) bool {
	for _, field := range []string{p.Name, p.SKU, p.Description, p.Category} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	for _, spec := range p.Specifications {
		for _, v := range spec.Values {
			if strings.Contains(strings.ToLower(v), q) {
				return true
			}
		}
	}
	return false
}

// FindBySKU returns the first part with the given SKU.
func FindBySKU(parts []model.Part, sku string) (model.Part, bool) {
	for _, p := range parts {
		if p.SKU == sku {
			return p, true
		}
	}
	return model.Part{}, false
}

// ByCategory returns the parts of one category.
func ByCategory(parts []model.Part, category string) []model.Part {
	out := make([]model.Part, 0)
	for _, p := range parts {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories lists distinct categories in first-seen order.
func Categories(parts []model.Part) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range parts {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
