package bot

import (
	"sync"

	"github.com/seenimoa/finbrief/pkg/models"
)

// Registry maps session-scoped article ids to articles, keyed per
// chat. Each fetch replaces the chat's whole generation in one atomic
// swap: a concurrent reader sees either the old generation or the new
// one, never a mix, and ids from a superseded generation resolve to
// not-found rather than to the wrong article.
type Registry struct {
	mu     sync.RWMutex
	byChat map[int64][]models.ArticleRef
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byChat: make(map[int64][]models.ArticleRef)}
}

// Replace installs a new generation for chatID from the fetched
// articles, assigning sequential ids starting at 0. The previous
// generation is discarded entirely. Returns the new refs.
func (r *Registry) Replace(chatID int64, articles []models.NewsArticle) []models.ArticleRef {
	refs := make([]models.ArticleRef, len(articles))
	for i, a := range articles {
		refs[i] = models.ArticleRef{ID: i, Title: a.Title, URL: a.URL}
	}

	r.mu.Lock()
	if len(refs) == 0 {
		delete(r.byChat, chatID)
	} else {
		r.byChat[chatID] = refs
	}
	r.mu.Unlock()

	return refs
}

// Get resolves an article id within chatID's live generation. The
// second return value is false for ids that were never issued or that
// belong to a superseded generation; callers surface that as a
// user-visible notice, not an internal error.
func (r *Registry) Get(chatID int64, id int) (models.ArticleRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := r.byChat[chatID]
	if id < 0 || id >= len(refs) {
		return models.ArticleRef{}, false
	}
	return refs[id], true
}

// Len returns the number of articles in chatID's live generation.
func (r *Registry) Len(chatID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChat[chatID])
}
