// File: internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"linkpilot/api/schemas"
	"linkpilot/internal/config"
	"linkpilot/internal/content"
	"linkpilot/internal/quota"
)

// ActionRunner is the browser-intent surface the triggers drive.
// Implemented by executor.ActionExecutor.
type ActionRunner interface {
	PublishPost(ctx context.Context, content string) (string, error)
	LikePost(ctx context.Context, targetPostID string) error
	GetPostText(ctx context.Context, externalPostID string) (string, error)
	CommentOnPost(ctx context.Context, targetPostID, text string) error
	SendConnectionRequest(ctx context.Context, targetProfileID, message string) error
	ListPostComments(ctx context.Context, externalPostID string) ([]schemas.CommentRef, error)
	ReplyToComment(ctx context.Context, externalPostID, commentID, text string) error
}

// ContentProvider is the generation surface the triggers consume.
// Implemented by content.Generator.
type ContentProvider interface {
	Generate(ctx context.Context, kind content.Kind, params content.Params) (string, error)
	ShouldAct(ctx context.Context, kind content.Kind, subjectText string, subjectMeta map[string]any) bool
}

// Trigger names, used for run guards and logs.
const (
	triggerPostScheduling  = "post_scheduling"
	triggerPostPublishing  = "post_publishing"
	triggerInteractions    = "interactions"
	triggerConnectionBatch = "connection_batch"
	triggerCommentWatch    = "comment_watch"
)

// jitterRange bounds the randomized pause between consecutive actions.
type jitterRange struct {
	min time.Duration
	max time.Duration
}

// Scheduler arms the cron triggers and owns their shared resources: the
// single browser session (serialized by sessionMu), the quota tracker
// and the random source for pacing decisions.
type Scheduler struct {
	cfg       config.SchedulerConfig
	content   config.ContentConfig
	userID    string
	repo      schemas.Repository
	runner    ActionRunner
	generator ContentProvider
	tracker   *quota.Tracker
	session   schemas.PageDriver
	logger    *zap.Logger

	cron      *cron.Cron
	rootCtx   context.Context
	rootStop  context.CancelFunc
	sessionMu sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand

	guards   map[string]*atomic.Bool
	stopOnce sync.Once
	started  atomic.Bool

	interactionJitter jitterRange
	connectionJitter  jitterRange
	replyJitter       jitterRange
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithRand injects a seeded random source. Tests only.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithoutJitter removes the pauses between actions. Tests only.
func WithoutJitter() Option {
	return func(s *Scheduler) {
		s.interactionJitter = jitterRange{}
		s.connectionJitter = jitterRange{}
		s.replyJitter = jitterRange{}
	}
}

// New wires a Scheduler. Nothing runs until Start.
func New(
	cfg *config.Config,
	repo schemas.Repository,
	runner ActionRunner,
	generator ContentProvider,
	tracker *quota.Tracker,
	session schemas.PageDriver,
	logger *zap.Logger,
	opts ...Option,
) *Scheduler {
	rootCtx, rootStop := context.WithCancel(context.Background())

	s := &Scheduler{
		cfg:       cfg.Scheduler,
		content:   cfg.Content,
		userID:    cfg.LinkedIn.UserID,
		repo:      repo,
		runner:    runner,
		generator: generator,
		tracker:   tracker,
		session:   session,
		logger:    logger.Named("scheduler"),
		rootCtx:   rootCtx,
		rootStop:  rootStop,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		guards: map[string]*atomic.Bool{
			triggerPostScheduling:  {},
			triggerPostPublishing:  {},
			triggerInteractions:    {},
			triggerConnectionBatch: {},
			triggerCommentWatch:    {},
		},
		interactionJitter: jitterRange{min: 30 * time.Second, max: 90 * time.Second},
		connectionJitter:  jitterRange{min: 10 * time.Minute, max: 20 * time.Minute},
		replyJitter:       jitterRange{min: 2 * time.Minute, max: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start restores quota state and arms every enabled trigger.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already started")
	}

	if err := s.tracker.Restore(ctx, s.userID); err != nil {
		// Losing persisted counters is survivable; ceilings still hold
		// for this process.
		s.logger.Warn("Failed to restore quota counters.", zap.Error(err))
	}

	s.cron = cron.New()

	triggers := []struct {
		name    string
		spec    string
		enabled bool
		run     func(context.Context)
	}{
		{triggerPostScheduling, s.cfg.PostSchedulingCron, s.cfg.EnablePosting, s.schedulePosts},
		{triggerPostPublishing, s.cfg.PostPublishingCron, s.cfg.EnablePosting, s.publishDuePosts},
		{triggerInteractions, s.cfg.InteractionsCron, s.cfg.EnableInteractions, s.processInteractions},
		{triggerConnectionBatch, s.cfg.ConnectionBatchCron, s.cfg.EnableConnections, s.sendConnectionBatch},
		{triggerCommentWatch, s.cfg.CommentWatchCron, s.cfg.EnableCommentWatch, s.watchComments},
	}

	for _, trg := range triggers {
		if !trg.enabled {
			s.logger.Info("Trigger disabled by configuration.", zap.String("trigger", trg.name))
			continue
		}
		name, run := trg.name, trg.run
		if _, err := s.cron.AddFunc(trg.spec, func() {
			s.runGuarded(name, run)
		}); err != nil {
			return fmt.Errorf("invalid cron spec for %s (%q): %w", trg.name, trg.spec, err)
		}
		s.logger.Info("Trigger armed.", zap.String("trigger", trg.name), zap.String("spec", trg.spec))
	}

	s.cron.Start()
	s.logger.Info("Scheduler started.", zap.String("user_id", s.userID))
	return nil
}

// runGuarded executes one trigger firing. A firing that finds the
// previous one still in flight is skipped entirely, and a panic inside
// a handler never takes the process down.
func (s *Scheduler) runGuarded(name string, run func(context.Context)) {
	guard := s.guards[name]
	if !guard.CompareAndSwap(false, true) {
		s.logger.Warn("Previous firing still running; skipping.", zap.String("trigger", name))
		return
	}
	defer guard.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Trigger panicked; next firing will proceed.",
				zap.String("trigger", name), zap.Any("panic", r))
		}
	}()

	if s.rootCtx.Err() != nil {
		return
	}

	start := time.Now()
	s.logger.Debug("Trigger firing.", zap.String("trigger", name))
	run(s.rootCtx)
	s.logger.Debug("Trigger finished.",
		zap.String("trigger", name), zap.Duration("duration", time.Since(start)))
}

// RunTriggerOnce fires one trigger by name, honoring the same guard the
// cron entry uses. Exposed for the CLI's run-once mode and for tests.
func (s *Scheduler) RunTriggerOnce(name string) error {
	var run func(context.Context)
	switch name {
	case triggerPostScheduling:
		run = s.schedulePosts
	case triggerPostPublishing:
		run = s.publishDuePosts
	case triggerInteractions:
		run = s.processInteractions
	case triggerConnectionBatch:
		run = s.sendConnectionBatch
	case triggerCommentWatch:
		run = s.watchComments
	default:
		return fmt.Errorf("unknown trigger: %q", name)
	}
	s.runGuarded(name, run)
	return nil
}

// StopAll halts the cron loop, waits for any in-flight firing, and
// closes the browser session. Safe to call repeatedly.
func (s *Scheduler) StopAll() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping scheduler.")
		s.rootStop()
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		if err := s.session.Close(); err != nil {
			s.logger.Warn("Failed to close browser session.", zap.Error(err))
		}
		s.logger.Info("Scheduler stopped.")
	})
}

func (s *Scheduler) randFloat() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *Scheduler) randIntn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}
