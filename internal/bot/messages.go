package bot

import (
	"fmt"
	"strings"

	"github.com/seenimoa/finbrief/pkg/models"
)

// Fixed reply texts. Every user-visible failure is one of these; raw
// transport or parse errors never reach the chat.
const (
	msgStart = "Hi! I'm FinBrief.\n\n" +
		"/news - latest headlines with summarize buttons\n" +
		"/refresh - fetch a fresh batch\n" +
		"/stock SYMBOL - current market quote\n\n" +
		"Press Summarize under any headline to get a 5-point brief."

	msgFallback = "Use /news to get headlines or /stock SYMBOL for a quote."

	msgNoArticles = "No articles found. Try again later."

	msgStockUsage = "Usage: /stock SYMBOL (for example /stock AAPL)"

	msgArticleNotFound = "That article is no longer available. Send /news for a fresh list."

	msgAlreadySummarized = "Already summarized that one. Pick another article."

	msgNotUnderstood = "Sorry, I didn't understand that button. Send /news to start over."

	msgTryAgain = "Something went wrong. Please try again."

	msgNewsUnavailable = "Couldn't fetch headlines right now. Try again in a minute."

	msgFetchFailed = "Couldn't download that article. The site may be blocking access."

	msgExtractFailed = "Couldn't extract readable text from that article."

	msgSummarizerDown = "The summarizer is temporarily unavailable. Try again shortly."

	msgSummarizerQuota = "Summarization quota exceeded. Try again later."

	msgSummarizerMissing = "Summarization is not configured on this bot."

	msgQuoteUnavailable = "Stock data unavailable."
)

// renderArticle formats one headline for the article list.
func renderArticle(a models.NewsArticle) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(escapeHTML(a.Title))
	b.WriteString("</b>")
	if a.Source != "" {
		b.WriteString("\n<i>")
		b.WriteString(escapeHTML(a.Source))
		b.WriteString("</i>")
	}
	if a.URL != "" {
		b.WriteString("\n")
		b.WriteString(a.URL)
	}
	return b.String()
}

// renderSummary formats the enrichment result sent under an article.
func renderSummary(title string, sum *models.Summary) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(escapeHTML(title))
	b.WriteString("</b>\n\n")
	b.WriteString(escapeHTML(sum.Text))
	return b.String()
}

// renderQuote formats a market quote as a fixed multi-line card.
func renderQuote(q *models.Quote) string {
	name := q.Name
	if name == "" {
		name = q.Symbol
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> (%s)\n\n", escapeHTML(name), q.Symbol)
	fmt.Fprintf(&b, "Price: %.2f (%+.2f, %+.2f%%)\n", q.LastPrice, q.Change, q.ChangePct)
	if q.Open > 0 {
		fmt.Fprintf(&b, "Open: %.2f\n", q.Open)
	}
	fmt.Fprintf(&b, "High: %.2f\n", q.High)
	fmt.Fprintf(&b, "Low: %.2f\n", q.Low)
	fmt.Fprintf(&b, "Prev Close: %.2f", q.PrevClose)
	return b.String()
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
