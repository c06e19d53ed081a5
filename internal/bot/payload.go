// Package bot implements the interaction core: callback payload
// encoding, the per-chat article registry, the enrichment dedup
// ledger, and the dispatcher that turns inbound chat events into
// outbound actions.
package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/seenimoa/finbrief/pkg/utils"
)

// Payload wire format: "<kind>|<argument>". The transport caps
// callback payloads at 64 bytes, which is why payloads carry numeric
// article ids rather than URLs. The delimiter never occurs in a
// ticker symbol or a decimal id, so decoding is unambiguous.
const (
	payloadDelimiter = "|"
	maxPayloadBytes  = 64

	kindSummarize = "summary"
	kindStock     = "stock"
)

// Payload decode errors.
var (
	// ErrMalformedPayload means the payload cannot be decoded at all.
	ErrMalformedPayload = errors.New("malformed callback payload")

	// ErrUnknownPayloadKind means the payload has a valid shape but an
	// unrecognized kind tag, e.g. from an older bot build.
	ErrUnknownPayloadKind = errors.New("unknown callback payload kind")
)

// PayloadKind tags the variant of a CallbackPayload.
type PayloadKind int

const (
	// KindSummarize requests enrichment of a registered article.
	KindSummarize PayloadKind = iota
	// KindStock requests a market quote for a symbol.
	KindStock
)

// CallbackPayload is the decoded form of an inline button payload:
// either Summarize(articleID) or Stock(symbol).
type CallbackPayload struct {
	Kind      PayloadKind
	ArticleID int    // valid when Kind == KindSummarize
	Symbol    string // valid when Kind == KindStock
}

// SummarizePayload builds a Summarize payload for an article id.
func SummarizePayload(articleID int) CallbackPayload {
	return CallbackPayload{Kind: KindSummarize, ArticleID: articleID}
}

// StockPayload builds a Stock payload for a symbol.
func StockPayload(symbol string) CallbackPayload {
	return CallbackPayload{Kind: KindStock, Symbol: utils.NormalizeSymbol(symbol)}
}

// Encode renders the payload as its wire token.
func (p CallbackPayload) Encode() (string, error) {
	var token string
	switch p.Kind {
	case KindSummarize:
		if p.ArticleID < 0 {
			return "", fmt.Errorf("encode payload: negative article id %d", p.ArticleID)
		}
		token = kindSummarize + payloadDelimiter + strconv.Itoa(p.ArticleID)
	case KindStock:
		if !utils.ValidSymbol(p.Symbol) {
			return "", fmt.Errorf("encode payload: invalid symbol %q", p.Symbol)
		}
		token = kindStock + payloadDelimiter + p.Symbol
	default:
		return "", fmt.Errorf("encode payload: unknown kind %d", p.Kind)
	}
	if len(token) > maxPayloadBytes {
		return "", fmt.Errorf("encode payload: %d bytes exceeds %d-byte transport limit", len(token), maxPayloadBytes)
	}
	return token, nil
}

// DecodePayload parses a wire token back into a CallbackPayload.
func DecodePayload(token string) (CallbackPayload, error) {
	kind, arg, ok := strings.Cut(token, payloadDelimiter)
	if !ok || arg == "" {
		return CallbackPayload{}, fmt.Errorf("%w: %q", ErrMalformedPayload, token)
	}

	switch kind {
	case kindSummarize:
		id, err := strconv.Atoi(arg)
		if err != nil || id < 0 {
			return CallbackPayload{}, fmt.Errorf("%w: bad article id %q", ErrMalformedPayload, arg)
		}
		return SummarizePayload(id), nil
	case kindStock:
		symbol := utils.NormalizeSymbol(arg)
		if !utils.ValidSymbol(symbol) {
			return CallbackPayload{}, fmt.Errorf("%w: bad symbol %q", ErrMalformedPayload, arg)
		}
		return StockPayload(symbol), nil
	default:
		return CallbackPayload{}, fmt.Errorf("%w: %q", ErrUnknownPayloadKind, kind)
	}
}
