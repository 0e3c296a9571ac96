package domain

// CatalogRecord is one structured car entry.
type CatalogRecord struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Price         float64           `json:"price"`
	Rating        float64           `json:"rating"`
	Specs         map[string]string `json:"specs,omitempty"`
	Images        []string          `json:"images,omitempty"`
	GroundingText string            `json:"grounding_text,omitempty"`
}

// CatalogRefreshReport describes one catalog refresh. Imported is zero when
// the serving store reads its source directly.
type CatalogRefreshReport struct {
	Imported    int  `json:"imported"`
	Invalidated bool `json:"invalidated"`
}
