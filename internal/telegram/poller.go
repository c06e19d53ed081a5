package telegram

import (
	"context"
	"log"
	"time"
)

const (
	pollTimeoutSec = 30
	pollRetryDelay = 3 * time.Second
	pollMaxBackoff = 60 * time.Second
)

// Poller is the pull-delivery adapter: a long-poll loop fetching
// update batches and forwarding each one to the handler. Webhook and
// poller are interchangeable; the handler never knows which one fed
// it.
type Poller struct {
	client  *Client
	handler Handler
}

// NewPoller creates a long-poll loop driving handler.
func NewPoller(client *Client, handler Handler) *Poller {
	return &Poller{client: client, handler: handler}
}

// Run polls until ctx is cancelled. Transient API failures back off
// exponentially and the loop keeps going; only cancellation stops it.
func (p *Poller) Run(ctx context.Context) error {
	// A registered webhook and getUpdates are mutually exclusive on
	// the Bot API side, so clear any leftover registration first.
	if err := p.client.DeleteWebhook(ctx); err != nil {
		log.Printf("poller: delete webhook: %v", err)
	}

	var offset int64
	backoff := pollRetryDelay

	for {
		updates, err := p.client.GetUpdates(ctx, offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("poller: getUpdates: %v (retrying in %s)", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff *= 2; backoff > pollMaxBackoff {
				backoff = pollMaxBackoff
			}
			continue
		}
		backoff = pollRetryDelay

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			p.handler.HandleUpdate(ctx, upd)
		}
	}
}
