package models

// Summary is the result of one successful enrichment run for an
// article URL. Immutable after creation.
type Summary struct {
	Text    string   `json:"text"`
	Tickers []string `json:"tickers,omitempty"` // uppercase, source order, at most 3
}
