// File: internal/scheduler/mocks_test.go
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"linkpilot/api/schemas"
	"linkpilot/internal/content"
)

// mockRepo is an in-memory schemas.Repository.
type mockRepo struct {
	mu           sync.Mutex
	posts        map[string]*schemas.Post
	interactions map[string]*schemas.Interaction
	counters     map[string]schemas.QuotaCounter
	savePostErr  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		posts:        make(map[string]*schemas.Post),
		interactions: make(map[string]*schemas.Interaction),
		counters:     make(map[string]schemas.QuotaCounter),
	}
}

func (r *mockRepo) FindPostsByStatus(ctx context.Context, userID string, status schemas.PostStatus, limit int) ([]schemas.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schemas.Post
	for _, p := range r.posts {
		if p.UserID == userID && p.Status == status {
			out = append(out, *p)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *mockRepo) FindDuePosts(ctx context.Context, userID string, now time.Time) ([]schemas.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schemas.Post
	for _, p := range r.posts {
		if p.UserID == userID && p.Status == schemas.PostScheduled &&
			p.ScheduledFor != nil && !p.ScheduledFor.After(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *mockRepo) SavePost(ctx context.Context, post *schemas.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.savePostErr != nil {
		return r.savePostErr
	}
	clone := *post
	r.posts[post.ID] = &clone
	return nil
}

func (r *mockRepo) FindPendingInteractions(ctx context.Context, userID string, types []schemas.InteractionType, limit int) ([]schemas.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	typeSet := make(map[schemas.InteractionType]bool)
	for _, t := range types {
		typeSet[t] = true
	}
	var out []schemas.Interaction
	for _, it := range r.interactions {
		if it.UserID != userID || it.Status != schemas.InteractionPending {
			continue
		}
		if len(types) > 0 && !typeSet[it.Type] {
			continue
		}
		out = append(out, *it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *mockRepo) SaveInteraction(ctx context.Context, it *schemas.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *it
	r.interactions[it.ID] = &clone
	return nil
}

func (r *mockRepo) CountCompletedInteractions(ctx context.Context, userID string, typ schemas.InteractionType, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, it := range r.interactions {
		if it.UserID == userID && it.Type == typ && it.Status == schemas.InteractionCompleted && !it.UpdatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *mockRepo) HasCompletedInteraction(ctx context.Context, userID string, typ schemas.InteractionType, targetPostID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.interactions {
		if it.UserID == userID && it.Type == typ && it.Status == schemas.InteractionCompleted && it.TargetPostID == targetPostID {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockRepo) LoadQuotaCounters(ctx context.Context, userID string) ([]schemas.QuotaCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schemas.QuotaCounter
	for _, c := range r.counters {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *mockRepo) SaveQuotaCounter(ctx context.Context, c *schemas.QuotaCounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[c.UserID+"/"+c.ActionType] = *c
	return nil
}

func (r *mockRepo) interactionByID(id string) *schemas.Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.interactions[id]; ok {
		clone := *it
		return &clone
	}
	return nil
}

func (r *mockRepo) postByID(id string) *schemas.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		clone := *p
		return &clone
	}
	return nil
}

// mockRunner records intents and fails on selected targets.
type mockRunner struct {
	mu          sync.Mutex
	published   []string
	liked       []string
	commented   []string
	connected   []string
	replied     []string
	failTargets map[string]bool
	comments    map[string][]schemas.CommentRef
	postTexts   map[string]string
}

func newMockRunner() *mockRunner {
	return &mockRunner{
		failTargets: make(map[string]bool),
		comments:    make(map[string][]schemas.CommentRef),
		postTexts:   make(map[string]string),
	}
}

func (m *mockRunner) maybeFail(target string) error {
	if m.failTargets[target] {
		return fmt.Errorf("forced failure for %s", target)
	}
	return nil
}

func (m *mockRunner) PublishPost(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(text); err != nil {
		return "", err
	}
	m.published = append(m.published, text)
	return fmt.Sprintf("ext-%d", len(m.published)), nil
}

func (m *mockRunner) LikePost(ctx context.Context, targetPostID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(targetPostID); err != nil {
		return err
	}
	m.liked = append(m.liked, targetPostID)
	return nil
}

func (m *mockRunner) GetPostText(ctx context.Context, externalPostID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("text:" + externalPostID); err != nil {
		return "", err
	}
	if t, ok := m.postTexts[externalPostID]; ok {
		return t, nil
	}
	return "post body for " + externalPostID, nil
}

func (m *mockRunner) CommentOnPost(ctx context.Context, targetPostID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(targetPostID); err != nil {
		return err
	}
	m.commented = append(m.commented, targetPostID)
	return nil
}

func (m *mockRunner) SendConnectionRequest(ctx context.Context, targetProfileID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(targetProfileID); err != nil {
		return err
	}
	m.connected = append(m.connected, targetProfileID)
	return nil
}

func (m *mockRunner) ListPostComments(ctx context.Context, externalPostID string) ([]schemas.CommentRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(externalPostID); err != nil {
		return nil, err
	}
	return m.comments[externalPostID], nil
}

func (m *mockRunner) ReplyToComment(ctx context.Context, externalPostID, commentID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(externalPostID + "/" + commentID); err != nil {
		return err
	}
	m.replied = append(m.replied, externalPostID+"/"+commentID)
	return nil
}

// mockGenerator returns canned text and a fixed decision.
type mockGenerator struct {
	mu          sync.Mutex
	text        string
	err         error
	decision    bool
	generated   int
	decisions   int
	lastSubject string
}

func (m *mockGenerator) Generate(ctx context.Context, kind content.Kind, params content.Params) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generated++
	if m.err != nil {
		return "", m.err
	}
	if m.text != "" {
		return m.text, nil
	}
	return "generated " + string(kind), nil
}

func (m *mockGenerator) ShouldAct(ctx context.Context, kind content.Kind, subjectText string, subjectMeta map[string]any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions++
	m.lastSubject = subjectText
	return m.decision
}

// mockSession only tracks Close calls.
type mockSession struct {
	mu     sync.Mutex
	closed int
}

func (m *mockSession) EnsureReady(ctx context.Context) error            { return nil }
func (m *mockSession) Navigate(ctx context.Context, url string) error   { return nil }
func (m *mockSession) FillField(ctx context.Context, s, v string) error { return nil }
func (m *mockSession) Click(ctx context.Context, s string) error        { return nil }
func (m *mockSession) WaitFor(ctx context.Context, s string, d time.Duration) error {
	return nil
}
func (m *mockSession) ExtractText(ctx context.Context, s string) (string, error) { return "", nil }
func (m *mockSession) ExtractTexts(ctx context.Context, s string) ([]string, error) {
	return nil, nil
}
func (m *mockSession) ClickNth(ctx context.Context, s string, i int) error { return nil }
func (m *mockSession) CurrentURL(ctx context.Context) (string, error)      { return "", nil }
func (m *mockSession) Reset()                                              {}
func (m *mockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}
