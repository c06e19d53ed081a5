package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/seenimoa/finbrief/pkg/models"
	"github.com/seenimoa/finbrief/pkg/utils"
)

// yahooBaseURL is the Yahoo Finance quote endpoint root.
const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooQuote fetches near-real-time quotes from the Yahoo Finance API.
type YahooQuote struct {
	baseURL string
	cache   *Cache
	limiter *RateLimiter
}

// YahooQuoteOption configures the quote source.
type YahooQuoteOption func(*YahooQuote)

// WithYahooBaseURL sets a custom base URL (used in tests).
func WithYahooBaseURL(url string) YahooQuoteOption {
	return func(y *YahooQuote) { y.baseURL = strings.TrimRight(url, "/") }
}

// NewYahooQuote creates a Yahoo Finance quote source.
func NewYahooQuote(opts ...YahooQuoteOption) *YahooQuote {
	y := &YahooQuote{
		baseURL: yahooBaseURL,
		cache:   NewCache(2 * time.Minute),
		limiter: NewRateLimiter(5, time.Second), // 5 req/s
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Name returns the data source name.
func (y *YahooQuote) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 chart API types ---

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *yahooError        `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta yahooChartMeta `json:"meta"`
}

type yahooChartMeta struct {
	Symbol                     string  `json:"symbol"`
	LongName                   string  `json:"longName"`
	ShortName                  string  `json:"shortName"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketOpen          float64 `json:"regularMarketOpen"`
	RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
	RegularMarketPreviousClose float64 `json:"previousClose"`
	RegularMarketTime          int64   `json:"regularMarketTime"`
	ChartPreviousClose         float64 `json:"chartPreviousClose"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// GetQuote returns a quote for the given symbol. A response without a
// usable current price (the feed reports zero for unknown or halted
// symbols) yields ErrQuoteUnavailable.
func (y *YahooQuote) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = utils.NormalizeSymbol(symbol)

	cacheKey := "quote:" + symbol
	if cached, ok := y.cache.Get(cacheKey); ok {
		return cached.(*models.Quote), nil
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", y.baseURL, symbol)
	body, _, err := doGet(ctx, url, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yahoo quote: %w", err)
	}

	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("yahoo API error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	meta := resp.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		// Zero is the feed's "no data" sentinel, not a real price.
		return nil, fmt.Errorf("%w: %s", ErrQuoteUnavailable, symbol)
	}

	prevClose := meta.RegularMarketPreviousClose
	if prevClose == 0 {
		prevClose = meta.ChartPreviousClose
	}

	quote := &models.Quote{
		Symbol:    meta.Symbol,
		Name:      coalesce(meta.LongName, meta.ShortName),
		LastPrice: meta.RegularMarketPrice,
		Open:      meta.RegularMarketOpen,
		High:      meta.RegularMarketDayHigh,
		Low:       meta.RegularMarketDayLow,
		PrevClose: prevClose,
		Timestamp: time.Unix(meta.RegularMarketTime, 0),
	}
	if prevClose != 0 {
		quote.Change = quote.LastPrice - prevClose
		quote.ChangePct = quote.Change / prevClose * 100
	}

	y.cache.Set(cacheKey, quote)
	return quote, nil
}
