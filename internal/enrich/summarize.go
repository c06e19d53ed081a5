package enrich

import (
	"context"
	"strings"

	"github.com/seenimoa/finbrief/pkg/utils"
)

// maxTickers caps how many ticker buttons a summary may spawn.
const maxTickers = 3

// companiesLabel separates the summary body from the ticker list in
// the model's response.
const companiesLabel = "COMPANIES:"

const summarySystemPrompt = `You are a news editor. Summarize the article text you are given.

Respond in exactly this format:

SUMMARY:
- bullet 1
- bullet 2
- bullet 3
- bullet 4
- bullet 5

COMPANIES:
TICKER1
TICKER2

Rules:
- The SUMMARY section contains exactly 5 bullet points, one sentence each.
- The COMPANIES section lists the stock ticker symbols of publicly
  traded companies central to the article, one bare uppercase symbol
  per line, most relevant first.
- If no publicly traded company is central to the article, leave the
  COMPANIES section empty.
- Output nothing outside these two sections.`

// summarize asks the text-generation provider for a fixed-format
// summary of the extracted article text.
func (p *Pipeline) summarize(ctx context.Context, text string) (string, error) {
	return p.provider.Complete(ctx, summarySystemPrompt, text)
}

// parseSummaryResponse splits a model response into summary text and
// ticker symbols. A missing COMPANIES label is lenient degradation:
// the whole output becomes the summary and no tickers are returned.
// At most maxTickers symbols are kept, in source order; blank lines
// and anything that does not look like a symbol are discarded.
func parseSummaryResponse(raw string) (string, []string) {
	raw = strings.TrimSpace(raw)

	idx := strings.Index(raw, companiesLabel)
	if idx < 0 {
		return strings.TrimSpace(strings.TrimPrefix(raw, "SUMMARY:")), nil
	}

	summary := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw[:idx]), "SUMMARY:"))

	var tickers []string
	for _, line := range strings.Split(raw[idx+len(companiesLabel):], "\n") {
		symbol := utils.NormalizeSymbol(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if symbol == "" || !utils.ValidSymbol(symbol) {
			continue
		}
		tickers = append(tickers, symbol)
		if len(tickers) == maxTickers {
			break
		}
	}
	return summary, tickers
}
