package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Webhook is the push-delivery adapter: an HTTP server receiving one
// POST per update at a path derived from the bot token. The path
// itself gates access; no other authentication is applied, so the
// token must stay secret.
type Webhook struct {
	token   string
	handler Handler
	router  chi.Router
}

// NewWebhook creates a webhook receiver that forwards updates to
// handler.
func NewWebhook(token string, handler Handler) *Webhook {
	w := &Webhook{
		token:   token,
		handler: handler,
	}
	w.router = w.buildRouter()
	return w
}

// Router returns the chi router for testing.
func (w *Webhook) Router() chi.Router {
	return w.router
}

// Path returns the secret update path the webhook listens on.
func (w *Webhook) Path() string {
	return "/bot" + w.token
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (w *Webhook) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      w.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down webhook server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures routes and middleware.
func (w *Webhook) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// Liveness probe for deployment platforms.
	r.Get("/health", w.handleHealth)

	// One POST per update at the secret path.
	r.Post(w.Path(), w.handleUpdate)

	return r
}

func (w *Webhook) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "text/plain")
	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, "OK")
}

// handleUpdate decodes and dispatches one update. The response is
// always 200: under at-least-once delivery a non-200 makes Telegram
// redeliver the same update, and redelivering a malformed one would
// loop forever.
func (w *Webhook) handleUpdate(rw http.ResponseWriter, req *http.Request) {
	var upd Update
	if err := json.NewDecoder(req.Body).Decode(&upd); err != nil {
		log.Printf("webhook: discarding undecodable update: %v", err)
	} else {
		w.handler.HandleUpdate(req.Context(), upd)
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, `{"ok":true}`)
}
