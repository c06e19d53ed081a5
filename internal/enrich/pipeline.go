// Package enrich implements the article enrichment pipeline:
// fetch the document, extract readable text, summarize it, and detect
// ticker symbols. Each stage is an independent failure domain; any
// stage failure short-circuits the run and is reported as a
// StageError naming the stage that broke.
package enrich

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/seenimoa/finbrief/internal/llm"
	"github.com/seenimoa/finbrief/pkg/models"
)

// Stage identifies a pipeline step for failure reporting.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageExtract   Stage = "extract"
	StageSummarize Stage = "summarize"
)

// StageError is a failure scoped to a single pipeline stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("enrich: stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// stageFail wraps err as a StageError for the given stage.
func stageFail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Defaults for stage bounds.
const (
	defaultFetchTimeout = 10 * time.Second
	defaultMinExtract   = 500  // below this, the page has no real article text
	defaultMaxExtract   = 6000 // cap what we hand to the summarizer
)

// Pipeline orchestrates the enrichment stages for one article URL.
type Pipeline struct {
	provider     llm.Provider
	client       *http.Client
	fetchTimeout time.Duration
	minExtract   int
	maxExtract   int
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithHTTPClient sets a custom HTTP client for document fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) { p.client = client }
}

// WithFetchTimeout bounds the document fetch stage.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.fetchTimeout = d }
}

// WithExtractBounds overrides the minimum and maximum extracted text
// lengths in bytes.
func WithExtractBounds(min, max int) Option {
	return func(p *Pipeline) {
		p.minExtract = min
		p.maxExtract = max
	}
}

// NewPipeline creates an enrichment pipeline backed by the given
// text-generation provider.
func NewPipeline(provider llm.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider:     provider,
		client:       &http.Client{Timeout: defaultFetchTimeout},
		fetchTimeout: defaultFetchTimeout,
		minExtract:   defaultMinExtract,
		maxExtract:   defaultMaxExtract,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enrich runs the full pipeline for url. On success the returned
// Summary carries the summary text and at most three ticker symbols in
// source order. On failure the error is a *StageError naming the stage.
func (p *Pipeline) Enrich(ctx context.Context, url string) (*models.Summary, error) {
	doc, err := p.fetchDocument(ctx, url)
	if err != nil {
		return nil, stageFail(StageFetch, err)
	}

	text := extractText(doc)
	if len(text) < p.minExtract {
		return nil, stageFail(StageExtract, fmt.Errorf("extracted %d chars, need at least %d", len(text), p.minExtract))
	}
	if len(text) > p.maxExtract {
		text = truncateUTF8(text, p.maxExtract)
	}

	raw, err := p.summarize(ctx, text)
	if err != nil {
		return nil, stageFail(StageSummarize, err)
	}

	summary, tickers := parseSummaryResponse(raw)
	return &models.Summary{Text: summary, Tickers: tickers}, nil
}
