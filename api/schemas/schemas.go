// File: api/schemas/schemas.go
package schemas

import "time"

// PostStatus tracks the lifecycle of an authored post. Transitions are
// one-directional: draft -> scheduled -> published, or -> failed.
// A post never re-enters draft once it has left it.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostScheduled PostStatus = "scheduled"
	PostPublished PostStatus = "published"
	PostFailed    PostStatus = "failed"
)

// InteractionType enumerates the browser-driven actions the system
// performs against the target site.
type InteractionType string

const (
	InteractionLike              InteractionType = "like"
	InteractionComment           InteractionType = "comment"
	InteractionConnectionRequest InteractionType = "connection_request"
	InteractionMessage           InteractionType = "message"
)

// InteractionStatus tracks the lifecycle of a pending interaction.
// pending -> completed or pending -> failed; both end states are terminal.
type InteractionStatus string

const (
	InteractionPending   InteractionStatus = "pending"
	InteractionCompleted InteractionStatus = "completed"
	InteractionFailed    InteractionStatus = "failed"
)

// Post is a piece of content authored (or generated) for publication.
type Post struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	UserID         string     `gorm:"index" json:"user_id"`
	Content        string     `json:"content"`
	Status         PostStatus `gorm:"index" json:"status"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ExternalPostID string     `json:"external_post_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Interaction is one unit of pending engagement work: a like, comment,
// connection request or direct message aimed at a profile or post.
type Interaction struct {
	ID              string            `gorm:"primaryKey" json:"id"`
	UserID          string            `gorm:"index" json:"user_id"`
	Type            InteractionType   `gorm:"index" json:"type"`
	TargetProfileID string            `json:"target_profile_id,omitempty"`
	TargetPostID    string            `json:"target_post_id,omitempty"`
	Content         string            `json:"content,omitempty"`
	Status          InteractionStatus `gorm:"index" json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// QuotaCounter is the persisted form of one rolling-window usage counter.
// Count resets to zero when wall clock crosses WindowEnd.
type QuotaCounter struct {
	UserID     string    `gorm:"primaryKey" json:"user_id"`
	ActionType string    `gorm:"primaryKey" json:"action_type"`
	Count      int       `json:"count"`
	WindowEnd  time.Time `json:"window_end"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CommentRef identifies a single comment found under a published post.
type CommentRef struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Text    string `json:"text"`
	Replied bool   `json:"replied"`
}

// GenerationOptions carries sampling parameters for one LLM call.
type GenerationOptions struct {
	Temperature     float32
	MaxOutputTokens int32
	ForceJSONFormat bool
}

// GenerationRequest is a single prompt/response text-generation request.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Options      GenerationOptions
}
