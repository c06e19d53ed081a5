// Package models defines the core data structures shared between the
// gateway clients, the enrichment pipeline, and the bot dispatcher.
package models

import "time"

// NewsArticle is a single headline fetched from a news source.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// ArticleRef binds a session-scoped article id to its source URL and
// title. Ids are only meaningful within the registry generation that
// issued them; a new /news fetch supersedes them entirely.
type ArticleRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}
