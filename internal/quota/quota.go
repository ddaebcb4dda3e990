// File: internal/quota/quota.go
package quota

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"linkpilot/api/schemas"
	"linkpilot/internal/config"
)

// Action types with configured ceilings.
const (
	ActionConnectionRequest = "connection_request"
	ActionPost              = "post"
	ActionLike              = "like"
	ActionComment           = "comment"
	ActionReply             = "reply"
)

// Rule is one ceiling over one rolling window.
type Rule struct {
	Ceiling int
	Window  time.Duration
}

type counterKey struct {
	userID     string
	actionType string
}

type counter struct {
	count     int
	windowEnd time.Time
}

// Tracker enforces per-user, per-action ceilings over fixed rolling
// windows. Counters survive restarts via the Repository; the tracker
// itself stays authoritative while the process runs.
type Tracker struct {
	rules  map[string]Rule
	repo   schemas.Repository
	now    func() time.Time
	logger *zap.Logger

	mu       sync.Mutex
	counters map[counterKey]*counter
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock injects the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker builds a tracker from the configured quota rules. repo may
// be nil, in which case counters are purely in-memory.
func NewTracker(cfg config.QuotaConfig, repo schemas.Repository, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		rules: map[string]Rule{
			ActionConnectionRequest: {Ceiling: cfg.ConnectionRequest.Ceiling, Window: cfg.ConnectionRequest.Window},
			ActionPost:              {Ceiling: cfg.Post.Ceiling, Window: cfg.Post.Window},
			ActionLike:              {Ceiling: cfg.Like.Ceiling, Window: cfg.Like.Window},
			ActionComment:           {Ceiling: cfg.Comment.Ceiling, Window: cfg.Comment.Window},
			ActionReply:             {Ceiling: cfg.Reply.Ceiling, Window: cfg.Reply.Window},
		},
		repo:     repo,
		now:      time.Now,
		logger:   logger.Named("quota"),
		counters: make(map[counterKey]*counter),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore loads persisted counters for a user. Stale windows are
// dropped; live ones carry their spend into this process.
func (t *Tracker) Restore(ctx context.Context, userID string) error {
	if t.repo == nil {
		return nil
	}
	persisted, err := t.repo.LoadQuotaCounters(ctx, userID)
	if err != nil {
		return err
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range persisted {
		if !now.Before(p.WindowEnd) {
			continue
		}
		t.counters[counterKey{userID: p.UserID, actionType: p.ActionType}] = &counter{
			count:     p.Count,
			windowEnd: p.WindowEnd,
		}
	}
	return nil
}

// TryConsume reserves one unit of the action's quota. Returns false
// without mutating anything when the ceiling is reached. The count
// never exceeds the ceiling under any interleaving.
func (t *Tracker) TryConsume(userID, actionType string) bool {
	rule, ok := t.rules[actionType]
	if !ok || rule.Ceiling <= 0 || rule.Window <= 0 {
		// Unknown action types are not silently unlimited.
		t.logger.Warn("Quota check for unconfigured action type; rejecting.",
			zap.String("action_type", actionType))
		return false
	}

	now := t.now()
	key := counterKey{userID: userID, actionType: actionType}

	t.mu.Lock()
	c, ok := t.counters[key]
	if !ok {
		// Windows are boundary-aligned (midnight for daily ceilings,
		// top of the hour for hourly ones), matching how the target
		// site accounts for usage.
		c = &counter{windowEnd: now.Truncate(rule.Window).Add(rule.Window)}
		t.counters[key] = c
	}

	// Window expiry resets the count before the ceiling check. Advance
	// by whole windows so the end stays aligned.
	if !now.Before(c.windowEnd) {
		c.count = 0
		for !now.Before(c.windowEnd) {
			c.windowEnd = c.windowEnd.Add(rule.Window)
		}
	}

	if c.count >= rule.Ceiling {
		t.mu.Unlock()
		return false
	}
	c.count++
	snapshot := schemas.QuotaCounter{
		UserID:     userID,
		ActionType: actionType,
		Count:      c.count,
		WindowEnd:  c.windowEnd,
	}
	t.mu.Unlock()

	t.persist(&snapshot)
	return true
}

// Remaining reports how much quota is left in the current window.
func (t *Tracker) Remaining(userID, actionType string) int {
	rule, ok := t.rules[actionType]
	if !ok {
		return 0
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counters[counterKey{userID: userID, actionType: actionType}]
	if !ok || !now.Before(c.windowEnd) {
		return rule.Ceiling
	}
	return rule.Ceiling - c.count
}

// persist writes a counter snapshot through the repository. Failures
// are logged, not propagated: quota enforcement must not depend on the
// database being healthy.
func (t *Tracker) persist(snapshot *schemas.QuotaCounter) {
	if t.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.repo.SaveQuotaCounter(ctx, snapshot); err != nil {
		t.logger.Warn("Failed to persist quota counter.",
			zap.String("action_type", snapshot.ActionType), zap.Error(err))
	}
}
