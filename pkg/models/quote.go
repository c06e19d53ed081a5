package models

import "time"

// Quote represents a near-real-time stock quote.
//
// A LastPrice of zero means the upstream feed had no data for the
// symbol; callers must treat it as unavailable, not as a real price.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	LastPrice float64   `json:"last_price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	PrevClose float64   `json:"prev_close"`
	Timestamp time.Time `json:"timestamp"`
}

// HasPrice reports whether the quote carries a usable current price.
func (q *Quote) HasPrice() bool {
	return q != nil && q.LastPrice != 0
}
