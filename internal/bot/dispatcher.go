package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/seenimoa/finbrief/internal/enrich"
	"github.com/seenimoa/finbrief/internal/llm"
	"github.com/seenimoa/finbrief/internal/telegram"
	"github.com/seenimoa/finbrief/pkg/models"
	"github.com/seenimoa/finbrief/pkg/utils"
)

// --- Collaborator contracts ---

// Gateway is the outbound messaging surface the dispatcher renders
// through.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.SendOptions) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// HeadlineSource supplies the article list for /news and /refresh.
type HeadlineSource interface {
	Headlines(ctx context.Context, limit int) ([]models.NewsArticle, error)
}

// QuoteSource supplies market quotes for /stock and ticker buttons.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// Enricher runs the fetch-extract-summarize pipeline for one URL.
type Enricher interface {
	Enrich(ctx context.Context, url string) (*models.Summary, error)
}

// --- Dispatcher ---

const (
	defaultHeadlineLimit = 5

	// Minimum gap between consecutive per-article sends. Telegram
	// throttles bursts to the same chat, so pacing is required, not
	// an optimization.
	defaultSendDelay = 550 * time.Millisecond
)

// Dispatcher classifies inbound updates, correlates button presses
// with previously shown articles, and drives the enrichment pipeline
// and quote lookups. It is safe for concurrent use: the webhook
// adapter invokes it once per HTTP request, the poller invokes it
// sequentially, and behavior is identical either way.
type Dispatcher struct {
	gateway   Gateway
	headlines HeadlineSource
	quotes    QuoteSource
	enricher  Enricher

	registry *Registry
	ledger   *Ledger

	headlineLimit int
	sendDelay     time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHeadlineLimit sets how many articles /news renders.
func WithHeadlineLimit(n int) DispatcherOption {
	return func(d *Dispatcher) { d.headlineLimit = n }
}

// WithSendDelay sets the pacing gap between per-article sends.
func WithSendDelay(delay time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.sendDelay = delay }
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(gateway Gateway, headlines HeadlineSource, quotes QuoteSource, enricher Enricher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		gateway:       gateway,
		headlines:     headlines,
		quotes:        quotes,
		enricher:      enricher,
		registry:      NewRegistry(),
		ledger:        NewLedger(),
		headlineLimit: defaultHeadlineLimit,
		sendDelay:     defaultSendDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleUpdate processes one inbound update. It never panics out:
// under at-least-once delivery a dropped update is silent message
// loss, so any fault degrades to a generic notice instead.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatcher: recovered from panic: %v", r)
			if chatID, ok := updateChatID(upd); ok {
				d.reply(ctx, chatID, msgTryAgain)
			}
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		d.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		d.handleMessage(ctx, upd.Message)
	}
}

func updateChatID(upd telegram.Update) (int64, bool) {
	if upd.Message != nil {
		return upd.Message.Chat.ID, true
	}
	if upd.CallbackQuery != nil {
		if id := upd.CallbackQuery.ChatID(); id != 0 {
			return id, true
		}
	}
	return 0, false
}

// --- Command path ---

func (d *Dispatcher) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		d.reply(ctx, chatID, msgFallback)
		return
	}

	switch fields[0] {
	case "/start":
		d.reply(ctx, chatID, msgStart)
	case "/news", "/refresh":
		d.handleNews(ctx, chatID)
	case "/stock":
		if len(fields) != 2 {
			d.reply(ctx, chatID, msgStockUsage)
			return
		}
		d.handleQuote(ctx, chatID, fields[1])
	default:
		d.reply(ctx, chatID, msgFallback)
	}
}

// handleNews fetches a fresh batch and swaps the chat's registry
// generation. Ids from the previous list become stale the moment the
// swap happens; a late button press on them renders "not found".
func (d *Dispatcher) handleNews(ctx context.Context, chatID int64) {
	articles, err := d.headlines.Headlines(ctx, d.headlineLimit)
	if err != nil {
		log.Printf("dispatcher: headlines: %v", err)
		d.reply(ctx, chatID, msgNewsUnavailable)
		return
	}

	refs := d.registry.Replace(chatID, articles)
	if len(refs) == 0 {
		d.reply(ctx, chatID, msgNoArticles)
		return
	}

	for i, a := range articles {
		if i > 0 {
			select {
			case <-time.After(d.sendDelay):
			case <-ctx.Done():
				return
			}
		}

		markup := summarizeKeyboard(refs[i].ID)
		d.send(ctx, chatID, renderArticle(a), &telegram.SendOptions{
			ParseMode:      "HTML",
			DisablePreview: true,
			ReplyMarkup:    markup,
		})
	}
}

func (d *Dispatcher) handleQuote(ctx context.Context, chatID int64, rawSymbol string) {
	symbol := utils.NormalizeSymbol(rawSymbol)
	if !utils.ValidSymbol(symbol) {
		d.reply(ctx, chatID, msgStockUsage)
		return
	}

	quote, err := d.quotes.GetQuote(ctx, symbol)
	if err != nil {
		log.Printf("dispatcher: quote %s: %v", symbol, err)
		d.reply(ctx, chatID, msgQuoteUnavailable)
		return
	}

	d.send(ctx, chatID, renderQuote(quote), &telegram.SendOptions{ParseMode: "HTML"})
}

// --- Callback path ---

// handleCallback acknowledges the press first, unconditionally. The
// ack clears the client-side loading spinner; skipping it on failure
// leaves the button stuck, which is a correctness bug, not cosmetics.
func (d *Dispatcher) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) {
	if err := d.gateway.AnswerCallback(ctx, cq.ID); err != nil {
		log.Printf("dispatcher: answer callback: %v", err)
	}

	chatID := cq.ChatID()
	if chatID == 0 {
		log.Printf("dispatcher: callback %s has no originating chat", cq.ID)
		return
	}

	payload, err := DecodePayload(cq.Data)
	switch {
	case errors.Is(err, ErrUnknownPayloadKind):
		// Defensive default: echo rather than drop silently.
		d.reply(ctx, chatID, fmt.Sprintf("Unhandled action: %s", cq.Data))
		return
	case err != nil:
		d.reply(ctx, chatID, msgNotUnderstood)
		return
	}

	switch payload.Kind {
	case KindSummarize:
		d.handleSummarize(ctx, chatID, payload.ArticleID)
	case KindStock:
		d.handleQuote(ctx, chatID, payload.Symbol)
	}
}

// handleSummarize resolves the article id against the current
// registry generation and runs the pipeline at most once per URL.
func (d *Dispatcher) handleSummarize(ctx context.Context, chatID int64, articleID int) {
	ref, ok := d.registry.Get(chatID, articleID)
	if !ok {
		d.reply(ctx, chatID, msgArticleNotFound)
		return
	}

	// Claim the URL before the pipeline runs so racing presses for
	// the same article cannot both reach the billable summarize call.
	// The claim is released on failure so a later press can retry.
	if !d.ledger.TryMark(ref.URL) {
		d.reply(ctx, chatID, msgAlreadySummarized)
		return
	}

	summary, err := d.enricher.Enrich(ctx, ref.URL)
	if err != nil {
		d.ledger.Unmark(ref.URL)
		log.Printf("dispatcher: enrich %s: %v", ref.URL, err)
		d.reply(ctx, chatID, enrichFailureText(err))
		return
	}

	d.send(ctx, chatID, renderSummary(ref.Title, summary), &telegram.SendOptions{
		ParseMode:      "HTML",
		DisablePreview: true,
		ReplyMarkup:    tickerKeyboard(summary.Tickers),
	})
}

// enrichFailureText maps a pipeline failure to its user-visible
// notice. Quota and missing-key failures get distinct text so a
// billing problem never masquerades as an outage.
func enrichFailureText(err error) string {
	switch {
	case errors.Is(err, llm.ErrRateLimit):
		return msgSummarizerQuota
	case errors.Is(err, llm.ErrNoAPIKey), errors.Is(err, llm.ErrNoProviders):
		return msgSummarizerMissing
	}

	var stageErr *enrich.StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case enrich.StageFetch:
			return msgFetchFailed
		case enrich.StageExtract:
			return msgExtractFailed
		case enrich.StageSummarize:
			return msgSummarizerDown
		}
	}
	return msgTryAgain
}

// --- Rendering helpers ---

func summarizeKeyboard(articleID int) *telegram.InlineKeyboardMarkup {
	data, err := SummarizePayload(articleID).Encode()
	if err != nil {
		log.Printf("dispatcher: encode summarize payload %d: %v", articleID, err)
		return nil
	}
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "Summarize", CallbackData: data},
		}},
	}
}

// tickerKeyboard builds one quote button per extracted ticker, in
// extraction order. Returns nil when there are no tickers so the
// message carries no empty keyboard.
func tickerKeyboard(tickers []string) *telegram.InlineKeyboardMarkup {
	if len(tickers) == 0 {
		return nil
	}
	row := make([]telegram.InlineKeyboardButton, 0, len(tickers))
	for _, t := range tickers {
		data, err := StockPayload(t).Encode()
		if err != nil {
			log.Printf("dispatcher: encode stock payload %s: %v", t, err)
			continue
		}
		row = append(row, telegram.InlineKeyboardButton{Text: t, CallbackData: data})
	}
	if len(row) == 0 {
		return nil
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{row}}
}

// reply sends plain text. Delivery failures are logged only: there is
// no fallback channel to surface them on.
func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	d.send(ctx, chatID, text, nil)
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, opts *telegram.SendOptions) {
	if err := d.gateway.SendMessage(ctx, chatID, text, opts); err != nil {
		log.Printf("dispatcher: send to %d: %v", chatID, err)
	}
}
