// File: api/schemas/interfaces.go
package schemas

import (
	"context"
	"time"
)

// Repository is the persistence contract for posts, interactions and
// quota counters. Callers never see the underlying ORM or SQL.
type Repository interface {
	// FindPostsByStatus returns posts for a user in the given status,
	// oldest first, capped at limit (0 means no cap).
	FindPostsByStatus(ctx context.Context, userID string, status PostStatus, limit int) ([]Post, error)

	// FindDuePosts returns scheduled posts whose ScheduledFor is at or
	// before now, oldest first.
	FindDuePosts(ctx context.Context, userID string, now time.Time) ([]Post, error)

	// SavePost inserts or updates a post record.
	SavePost(ctx context.Context, post *Post) error

	// FindPendingInteractions returns pending interactions of the given
	// types, oldest first, capped at limit (0 means no cap).
	FindPendingInteractions(ctx context.Context, userID string, types []InteractionType, limit int) ([]Interaction, error)

	// SaveInteraction inserts or updates an interaction record.
	SaveInteraction(ctx context.Context, interaction *Interaction) error

	// CountCompletedInteractions counts completed interactions of one
	// type since the given time.
	CountCompletedInteractions(ctx context.Context, userID string, typ InteractionType, since time.Time) (int64, error)

	// HasCompletedInteraction reports whether a completed interaction of
	// the given type already targets the post. Used to avoid double
	// replies on comment threads.
	HasCompletedInteraction(ctx context.Context, userID string, typ InteractionType, targetPostID string) (bool, error)

	// LoadQuotaCounters returns all persisted quota counters for a user.
	LoadQuotaCounters(ctx context.Context, userID string) ([]QuotaCounter, error)

	// SaveQuotaCounter upserts one quota counter row.
	SaveQuotaCounter(ctx context.Context, counter *QuotaCounter) error
}

// LLMClient abstracts a text-generation provider.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// PageDriver is the browser session contract consumed by the action
// executor. Implemented by internal/browser; mocked in tests.
type PageDriver interface {
	// EnsureReady makes the session usable: launches the browser if
	// needed and authenticates (cookie restore or interactive login).
	// Idempotent; cheap when the session is already live.
	EnsureReady(ctx context.Context) error

	Navigate(ctx context.Context, url string) error
	FillField(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	ExtractText(ctx context.Context, selector string) (string, error)

	// ExtractTexts returns the visible text of every node matching the
	// selector, in document order.
	ExtractTexts(ctx context.Context, selector string) ([]string, error)

	// ClickNth clicks the index-th node matching the selector.
	ClickNth(ctx context.Context, selector string, index int) error

	// CurrentURL returns the URL of the active tab.
	CurrentURL(ctx context.Context) (string, error)

	// Reset tears down the live session so the next EnsureReady starts
	// from scratch. Used after authentication failures.
	Reset()

	// Close releases all browser resources. Safe to call twice.
	Close() error
}
