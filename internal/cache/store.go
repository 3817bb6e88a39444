package cache

import (
	"context"
	"time"
)

// CachedTranslation is the value stored for one successful translation.
// Failed translations are never cached.
type CachedTranslation struct {
	Text       string    `json:"text"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Provider   string    `json:"provider"`
	Confidence float64   `json:"confidence,omitempty"`
	CachedAt   time.Time `json:"cached_at"`
}

// Store is one translation cache tier. Implementations must be safe for
// concurrent use and must never fail the request: lookup problems degrade
// to a miss, write problems are logged and dropped.
type Store interface {
	Get(ctx context.Context, key Key) (*CachedTranslation, bool)
	Put(ctx context.Context, key Key, value CachedTranslation)
}
