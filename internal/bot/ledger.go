package bot

import "sync"

// Ledger tracks URLs whose enrichment has completed (or is in
// flight), gating repeat expensive summarization calls. Entries only
// accumulate within a process lifetime; a successful run keeps its
// mark forever, while a failed run releases it so the user can retry.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// TryMark atomically claims url. It returns true when the caller is
// the first to claim it and may proceed with enrichment; false when
// the URL is already claimed. Two racing callbacks for the same URL
// can never both observe true.
func (l *Ledger) TryMark(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[url]; ok {
		return false
	}
	l.seen[url] = struct{}{}
	return true
}

// Unmark releases a claim taken by TryMark. Called only when an
// enrichment run fails, so the next button press may retry.
func (l *Ledger) Unmark(url string) {
	l.mu.Lock()
	delete(l.seen, url)
	l.mu.Unlock()
}

// Seen reports whether url is currently marked.
func (l *Ledger) Seen(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[url]
	return ok
}

// Len returns the number of marked URLs.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
