// FinBrief — Telegram news-brief bot with AI summaries and stock quotes.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/finbrief/internal/bot"
	"github.com/seenimoa/finbrief/internal/config"
	"github.com/seenimoa/finbrief/internal/datasource"
	"github.com/seenimoa/finbrief/internal/enrich"
	"github.com/seenimoa/finbrief/internal/llm"
	"github.com/seenimoa/finbrief/internal/telegram"
	"github.com/seenimoa/finbrief/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "finbrief",
	Short: "FinBrief — Telegram news bot with AI summaries and stock quotes",
	Long: `FinBrief is a Telegram bot that fetches technology headlines,
summarizes articles into 5-point briefs with an LLM, extracts the
companies mentioned, and serves market quotes for them on demand.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Wiring ---

// buildNews assembles the headline source from config.
func buildNews() *datasource.News {
	opts := []datasource.NewsOption{}
	if cfg.News.Category != "" {
		opts = append(opts, datasource.WithNewsCategory(cfg.News.Category))
	}
	if len(cfg.News.RSSFeeds) > 0 {
		sources := make([]datasource.RSSSource, len(cfg.News.RSSFeeds))
		for i, url := range cfg.News.RSSFeeds {
			sources[i] = datasource.RSSSource{Name: url, RSSURL: url}
		}
		opts = append(opts, datasource.WithRSSSources(sources))
	}
	return datasource.NewNews(cfg.News.APIKey, opts...)
}

// buildLLM assembles the summarization chain: primary provider first,
// the other as fallback if its key is present.
func buildLLM() llm.Provider {
	var providers []llm.Provider

	add := func(name string) {
		switch name {
		case llm.ProviderOpenAI:
			if p, err := llm.NewOpenAIProvider(cfg.LLM.OpenAIKey, openAIOpts()...); err == nil {
				providers = append(providers, p)
			}
		case llm.ProviderAnthropic:
			if p, err := llm.NewAnthropicProvider(cfg.LLM.AnthropicKey, anthropicOpts()...); err == nil {
				providers = append(providers, p)
			}
		}
	}

	add(cfg.LLM.Primary)
	for _, name := range []string{llm.ProviderOpenAI, llm.ProviderAnthropic} {
		if name != cfg.LLM.Primary {
			add(name)
		}
	}

	return llm.NewChain(providers...)
}

func openAIOpts() []llm.OpenAIOption {
	if cfg.LLM.Primary == llm.ProviderOpenAI && cfg.LLM.Model != "" {
		return []llm.OpenAIOption{llm.WithOpenAIModel(cfg.LLM.Model)}
	}
	return nil
}

func anthropicOpts() []llm.AnthropicOption {
	if cfg.LLM.Primary == llm.ProviderAnthropic && cfg.LLM.Model != "" {
		return []llm.AnthropicOption{llm.WithAnthropicModel(cfg.LLM.Model)}
	}
	return nil
}

// buildDispatcher wires the full bot: gateway, sources, pipeline.
func buildDispatcher() (*bot.Dispatcher, *telegram.Client, error) {
	client, err := telegram.NewClient(cfg.Telegram.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("telegram client: %w", err)
	}

	opts := []bot.DispatcherOption{}
	if cfg.Bot.HeadlineLimit > 0 {
		opts = append(opts, bot.WithHeadlineLimit(cfg.Bot.HeadlineLimit))
	}
	if cfg.Bot.SendDelayMs > 0 {
		opts = append(opts, bot.WithSendDelay(time.Duration(cfg.Bot.SendDelayMs)*time.Millisecond))
	}

	dispatcher := bot.NewDispatcher(
		client,
		buildNews(),
		datasource.NewYahooQuote(),
		enrich.NewPipeline(buildLLM()),
		opts...,
	)
	return dispatcher, client, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("FinBrief %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (webhook mode) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot in webhook mode",
	Long: `Start the HTTP server that receives Telegram updates at
/bot<token>. With --register, the webhook URL from config (or the
--webhook-url flag) is registered with Telegram on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatcher, client, err := buildDispatcher()
		if err != nil {
			return err
		}

		register, _ := cmd.Flags().GetBool("register")
		webhookURL, _ := cmd.Flags().GetString("webhook-url")
		if webhookURL == "" {
			webhookURL = cfg.Telegram.WebhookURL
		}

		wh := telegram.NewWebhook(client.Token(), dispatcher)

		if register {
			if webhookURL == "" {
				return fmt.Errorf("--register requires a webhook URL (flag or telegram.webhook_url)")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := client.SetWebhook(ctx, webhookURL+wh.Path()); err != nil {
				return fmt.Errorf("register webhook: %w", err)
			}
			fmt.Printf("Registered webhook at %s\n", webhookURL+wh.Path())
		}

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		fmt.Printf("FinBrief webhook server listening on %s\n", addr)
		return wh.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Bool("register", false, "register the webhook URL with Telegram on startup")
	serveCmd.Flags().String("webhook-url", "", "public base URL to register (e.g., https://bot.example.com)")
}

// --- Poll Command (long-poll mode) ---

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run the bot in long-poll mode",
	Long:  "Drain updates via getUpdates instead of a webhook. Useful for local development.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatcher, client, err := buildDispatcher()
		if err != nil {
			return err
		}

		fmt.Println("FinBrief polling for updates (Ctrl+C to stop)")
		ctx, stop := notifyContext()
		defer stop()

		if err := telegram.NewPoller(client, dispatcher).Run(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

// notifyContext returns a context cancelled on SIGINT/SIGTERM.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// --- News Command (one-shot) ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Fetch and print current headlines",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		articles, err := buildNews().Headlines(ctx, limit)
		if err != nil {
			return fmt.Errorf("fetch headlines: %w", err)
		}
		if len(articles) == 0 {
			fmt.Println("No articles found.")
			return nil
		}

		for i, a := range articles {
			fmt.Printf("%d. %s\n", i+1, a.Title)
			if a.Source != "" {
				fmt.Printf("   %s\n", a.Source)
			}
			fmt.Printf("   %s\n", a.URL)
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().Int("limit", 5, "number of headlines to fetch")
}

// --- Quote Command (one-shot) ---

var quoteCmd = &cobra.Command{
	Use:   "quote [symbol]",
	Short: "Fetch and print a market quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := utils.NormalizeSymbol(args[0])
		if !utils.ValidSymbol(symbol) {
			return fmt.Errorf("invalid symbol %q", args[0])
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		q, err := datasource.NewYahooQuote().GetQuote(ctx, symbol)
		if err != nil {
			return fmt.Errorf("quote %s: %w", symbol, err)
		}

		name := q.Name
		if name == "" {
			name = q.Symbol
		}
		fmt.Printf("%s (%s)\n", name, q.Symbol)
		fmt.Printf("  Price:      %.2f (%+.2f, %+.2f%%)\n", q.LastPrice, q.Change, q.ChangePct)
		fmt.Printf("  High:       %.2f\n", q.High)
		fmt.Printf("  Low:        %.2f\n", q.Low)
		fmt.Printf("  Prev Close: %.2f\n", q.PrevClose)
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  FinBrief — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:  %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:   %s\n", cfg.LLM.Primary)
		fmt.Printf("    News Category:  %s\n", cfg.News.Category)
		fmt.Printf("    RSS Feeds:      %d configured\n", len(cfg.News.RSSFeeds))
		fmt.Printf("    Server:         %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Println()

		fmt.Println("  Credentials:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-22s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
