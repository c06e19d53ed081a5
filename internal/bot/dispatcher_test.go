package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/seenimoa/finbrief/internal/enrich"
	"github.com/seenimoa/finbrief/internal/llm"
	"github.com/seenimoa/finbrief/internal/telegram"
	"github.com/seenimoa/finbrief/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Fakes
// ════════════════════════════════════════════════════════════════════

type sentMessage struct {
	chatID int64
	text   string
	opts   *telegram.SendOptions
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []sentMessage
	acks []string
}

func (g *fakeGateway) SendMessage(_ context.Context, chatID int64, text string, opts *telegram.SendOptions) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	return nil
}

func (g *fakeGateway) AnswerCallback(_ context.Context, callbackID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acks = append(g.acks, callbackID)
	return nil
}

func (g *fakeGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

type fakeHeadlines struct {
	articles []models.NewsArticle
	err      error
	calls    int
}

func (f *fakeHeadlines) Headlines(_ context.Context, _ int) ([]models.NewsArticle, error) {
	f.calls++
	return f.articles, f.err
}

type fakeQuotes struct {
	quote      *models.Quote
	err        error
	calls      int
	lastSymbol string
}

func (f *fakeQuotes) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	f.calls++
	f.lastSymbol = symbol
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

type fakeEnricher struct {
	mu      sync.Mutex
	summary *models.Summary
	err     error
	calls   int
}

func (f *fakeEnricher) Enrich(_ context.Context, _ string) (*models.Summary, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func (f *fakeEnricher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	dispatcher *Dispatcher
	gateway    *fakeGateway
	headlines  *fakeHeadlines
	quotes     *fakeQuotes
	enricher   *fakeEnricher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		gateway:   &fakeGateway{},
		headlines: &fakeHeadlines{articles: fakeArticles(3)},
		quotes: &fakeQuotes{quote: &models.Quote{
			Symbol: "TSLA", LastPrice: 251.3, High: 255.0, Low: 248.1, PrevClose: 249.9,
		}},
		enricher: &fakeEnricher{summary: &models.Summary{
			Text:    "- point one\n- point two",
			Tickers: []string{"TSLA", "NVDA"},
		}},
	}
	env.dispatcher = NewDispatcher(env.gateway, env.headlines, env.quotes, env.enricher,
		WithSendDelay(0))
	return env
}

func messageUpdate(chatID int64, text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		Chat: telegram.Chat{ID: chatID},
		Text: text,
	}}
}

func callbackUpdate(chatID int64, callbackID, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      callbackID,
		Data:    data,
		Message: &telegram.Message{Chat: telegram.Chat{ID: chatID}},
	}}
}

// ════════════════════════════════════════════════════════════════════
// Command handling
// ════════════════════════════════════════════════════════════════════

func TestStartCommand(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.HandleUpdate(context.Background(), messageUpdate(1, "/start"))

	msgs := env.gateway.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].text, "/news") {
		t.Errorf("start message should announce /news, got %q", msgs[0].text)
	}
}

func TestUnrecognizedTextFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.HandleUpdate(context.Background(), messageUpdate(1, "hello there"))

	msgs := env.gateway.messages()
	if len(msgs) != 1 || msgs[0].text != msgFallback {
		t.Errorf("got %+v, want single fallback message", msgs)
	}
}

func TestNewsRendersArticlesWithButtons(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.HandleUpdate(context.Background(), messageUpdate(1, "/news"))

	msgs := env.gateway.messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, m := range msgs {
		if m.opts == nil || m.opts.ReplyMarkup == nil {
			t.Fatalf("message %d has no keyboard", i)
		}
		data := m.opts.ReplyMarkup.InlineKeyboard[0][0].CallbackData
		payload, err := DecodePayload(data)
		if err != nil {
			t.Fatalf("message %d button payload %q: %v", i, data, err)
		}
		if payload.Kind != KindSummarize || payload.ArticleID != i {
			t.Errorf("message %d payload = %+v, want Summarize(%d)", i, payload, i)
		}
	}
	if env.dispatcher.registry.Len(1) != 3 {
		t.Errorf("registry Len = %d, want 3", env.dispatcher.registry.Len(1))
	}
}

func TestNewsEmptyFeed(t *testing.T) {
	env := newTestEnv(t)
	env.headlines.articles = nil

	env.dispatcher.HandleUpdate(context.Background(), messageUpdate(1, "/news"))

	msgs := env.gateway.messages()
	if len(msgs) != 1 || msgs[0].text != msgNoArticles {
		t.Errorf("got %+v, want single no-articles message", msgs)
	}
	if env.dispatcher.registry.Len(1) != 0 {
		t.Error("registry should stay empty on empty feed")
	}
}

func TestRefreshSupersedesGeneration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.dispatcher.HandleUpdate(ctx, messageUpdate(1, "/news"))

	// The refreshed feed has fewer items; old id 2 must go stale.
	env.headlines.articles = fakeArticles(1)
	env.dispatcher.HandleUpdate(ctx, messageUpdate(1, "/refresh"))

	env.dispatcher.HandleUpdate(ctx, callbackUpdate(1, "cb1", "summary|2"))

	msgs := env.gateway.messages()
	last := msgs[len(msgs)-1]
	if last.text != msgArticleNotFound {
		t.Errorf("stale id reply = %q, want %q", last.text, msgArticleNotFound)
	}
	if env.enricher.callCount() != 0 {
		t.Error("stale id must not reach the enricher")
	}
}

func TestStockCommandUppercases(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.HandleUpdate(context.Background(), messageUpdate(1, "/stock tsla"))

	if env.quotes.lastSymbol != "TSLA" {
		t.Errorf("quote symbol = %q, want TSLA", env.quotes.lastSymbol)
	}
	msgs := env.gateway.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].text, "251.30") {
		t.Errorf("got %+v, want rendered quote", msgs)
	}
}

func TestStockCommandNoArgument(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.HandleUpdate(context.Background(), messageUpdate(1, "/stock"))

	msgs := env.gateway.messages()
	if len(msgs) != 1 || msgs[0].text != msgStockUsage {
		t.Errorf("got %+v, want single usage hint", msgs)
	}
	if env.quotes.calls != 0 {
		t.Error("missing argument must not trigger an external call")
	}
}

func TestStockQuoteUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.quotes.err = errors.New("no market data")

	env.dispatcher.HandleUpdate(context.Background(), messageUpdate(1, "/stock TSLA"))

	msgs := env.gateway.messages()
	if len(msgs) != 1 || msgs[0].text != msgQuoteUnavailable {
		t.Errorf("got %+v, want unavailable notice", msgs)
	}
}

// ════════════════════════════════════════════════════════════════════
// Callback handling
// ════════════════════════════════════════════════════════════════════

func TestCallbackSummarizeSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.dispatcher.HandleUpdate(ctx, messageUpdate(1, "/news"))
	env.gateway.sent = nil

	env.dispatcher.HandleUpdate(ctx, callbackUpdate(1, "cb1", "summary|0"))

	if len(env.gateway.acks) != 1 || env.gateway.acks[0] != "cb1" {
		t.Fatalf("acks = %v, want [cb1]", env.gateway.acks)
	}

	msgs := env.gateway.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].text, "point one") {
		t.Errorf("summary text missing, got %q", msgs[0].text)
	}

	// One quote button per extracted ticker, in order.
	markup := msgs[0].opts.ReplyMarkup
	if markup == nil || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("expected 2 ticker buttons, got %+v", markup)
	}
	if markup.InlineKeyboard[0][0].CallbackData != "stock|TSLA" {
		t.Errorf("first button = %q, want stock|TSLA", markup.InlineKeyboard[0][0].CallbackData)
	}
}

func TestCallbackRepeatPress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.dispatcher.HandleUpdate(ctx, messageUpdate(1, "/news"))
	env.dispatcher.HandleUpdate(ctx, callbackUpdate(1, "cb1", "summary|0"))
	env.dispatcher.HandleUpdate(ctx, callbackUpdate(1, "cb2", "summary|0"))

	if env.enricher.callCount() != 1 {
		t.Errorf("enricher called %d times, want 1", env.enricher.callCount())
	}

	msgs := env.gateway.messages()
	last := msgs[len(msgs)-1]
	if last.text != msgAlreadySummarized {
		t.Errorf("repeat press reply = %q, want %q", last.text, msgAlreadySummarized)
	}
	// Both presses still acknowledged.
	if len(env.gateway.acks) != 2 {
		t.Errorf("acks = %v, want both callbacks acknowledged", env.gateway.acks)
	}
}

func TestCallbackEnrichFailureAllowsRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.dispatcher.HandleUpdate(ctx, messageUpdate(1, "/news"))

	env.enricher.err = &enrich.StageError{Stage: enrich.StageFetch, Err: errors.New("403 Forbidden")}
	env.dispatcher.HandleUpdate(ctx, callbackUpdate(1, "cb1", "summary|0"))

	msgs := env.gateway.messages()
	last := msgs[len(msgs)-1]
	if last.text != msgFetchFailed {
		t.Errorf("fetch failure reply = %q, want %q", last.text, msgFetchFailed)
	}
	if len(env.gateway.acks) != 1 {
		t.Error("failed enrichment must still acknowledge the press")
	}

	// The failed run released its claim, so retrying works.
	env.enricher.err = nil
	env.dispatcher.HandleUpdate(ctx, callbackUpdate(1, "cb2", "summary|0"))

	if env.enricher.callCount() != 2 {
		t.Errorf("enricher called %d times, want 2 (retry after failure)", env.enricher.callCount())
	}
	msgs = env.gateway.messages()
	if !strings.Contains(msgs[len(msgs)-1].text, "point one") {
		t.Error("retry should produce the summary")
	}
}

func TestCallbackFailureTexts(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "extract too short",
			err:  &enrich.StageError{Stage: enrich.StageExtract, Err: errors.New("text too short")},
			want: msgExtractFailed,
		},
		{
			name: "summarizer outage",
			err:  &enrich.StageError{Stage: enrich.StageSummarize, Err: llm.ErrProviderDown},
			want: msgSummarizerDown,
		},
		{
			name: "quota exceeded",
			err:  &enrich.StageError{Stage: enrich.StageSummarize, Err: llm.ErrRateLimit},
			want: msgSummarizerQuota,
		},
		{
			name: "not configured",
			err:  &enrich.StageError{Stage: enrich.StageSummarize, Err: llm.ErrNoAPIKey},
			want: msgSummarizerMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			env.dispatcher.HandleUpdate(ctx, messageUpdate(1, "/news"))
			env.enricher.err = tt.err

			env.dispatcher.HandleUpdate(ctx, callbackUpdate(1, "cb1", "summary|0"))

			msgs := env.gateway.messages()
			if got := msgs[len(msgs)-1].text; got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCallbackNoTickersNoKeyboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.dispatcher.HandleUpdate(ctx, messageUpdate(1, "/news"))
	env.gateway.sent = nil

	env.enricher.summary = &models.Summary{Text: "plain summary, no companies"}
	env.dispatcher.HandleUpdate(ctx, callbackUpdate(1, "cb1", "summary|0"))

	msgs := env.gateway.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].opts.ReplyMarkup != nil {
		t.Error("summary without tickers should carry no keyboard")
	}
}

func TestCallbackStock(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.HandleUpdate(context.Background(), callbackUpdate(1, "cb1", "stock|TSLA"))

	if env.quotes.lastSymbol != "TSLA" {
		t.Errorf("quote symbol = %q, want TSLA", env.quotes.lastSymbol)
	}
	if len(env.gateway.acks) != 1 {
		t.Error("stock callback must be acknowledged")
	}
}

func TestCallbackMalformedPayload(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.HandleUpdate(context.Background(), callbackUpdate(1, "cb1", "summary|not-a-number"))

	if len(env.gateway.acks) != 1 {
		t.Fatal("malformed payload must still be acknowledged")
	}
	msgs := env.gateway.messages()
	if len(msgs) != 1 || msgs[0].text != msgNotUnderstood {
		t.Errorf("got %+v, want not-understood reply", msgs)
	}
}

func TestCallbackUnknownKindEchoes(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.HandleUpdate(context.Background(), callbackUpdate(1, "cb1", "archive|3"))

	msgs := env.gateway.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].text, "archive|3") {
		t.Errorf("got %+v, want echo of raw payload", msgs)
	}
}

func TestConcurrentDoublePress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.dispatcher.HandleUpdate(ctx, messageUpdate(1, "/news"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.dispatcher.HandleUpdate(ctx, callbackUpdate(1, "cb", "summary|0"))
		}()
	}
	wg.Wait()

	if env.enricher.callCount() != 1 {
		t.Errorf("enricher called %d times under racing presses, want 1", env.enricher.callCount())
	}
}
