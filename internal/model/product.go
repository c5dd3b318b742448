package model

import "time"

// Specification is one attribute of a part with its listed values.
type Specification struct {
	Attribute string   `json:"attribute"`
	Values    []string `json:"values"`
}

// Part is a catalog entry. ID is assigned once and never changes; SKU is the natural key.
type Part struct {
	ID             string          `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Specifications []Specification `json:"specifications"`
	ImageURL       string          `json:"imageUrl"`
}

// ScrapedRecord is a product as returned by the scrape endpoint.
// Price and Availability are carried but never persisted into Part.
type ScrapedRecord struct {
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Specifications []Specification `json:"specifications"`
	ImageURL       string          `json:"imageUrl"`
	ProductURL     string          `json:"productUrl,omitempty"`
	Price          *float64        `json:"price,omitempty"`
	Availability   *bool           `json:"availability,omitempty"`
}

// UpdateResult summarizes one orchestrator run. Errors holds one entry per failed category.
type UpdateResult struct {
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// HasErrors reports whether any category failed.
func (r UpdateResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Notification is a recorded outcome of a scheduled run.
type Notification struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	HasErrors bool      `json:"hasErrors"`
	Errors    []string  `json:"errors"`
}

// ScheduleInfo describes the scheduler state. NextUpdate is a projection, nil before the first sync.
type ScheduleInfo struct {
	IsRunning  bool          `json:"isRunning"`
	Interval   time.Duration `json:"-"`
	NextUpdate *time.Time    `json:"nextUpdate"`
}

// UpdateStatus describes the persisted sync state.
type UpdateStatus struct {
	LastUpdate    *time.Time `json:"lastUpdate"`
	TotalParts    int        `json:"totalParts"`
	NextUpdateDue time.Time  `json:"nextUpdateDue"`
}
