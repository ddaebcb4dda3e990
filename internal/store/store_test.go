// File: internal/store/store_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"linkpilot/api/schemas"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	s, err := NewWithDB(db, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makePost(userID string, status schemas.PostStatus, scheduledFor *time.Time) *schemas.Post {
	now := time.Now().UTC()
	return &schemas.Post{
		ID:           uuid.NewString(),
		UserID:       userID,
		Content:      "post content",
		Status:       status,
		ScheduledFor: scheduledFor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSaveAndFindPostsByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePost(ctx, makePost("u1", schemas.PostDraft, nil)))
	require.NoError(t, s.SavePost(ctx, makePost("u1", schemas.PostDraft, nil)))
	require.NoError(t, s.SavePost(ctx, makePost("u1", schemas.PostPublished, nil)))
	require.NoError(t, s.SavePost(ctx, makePost("u2", schemas.PostDraft, nil)))

	drafts, err := s.FindPostsByStatus(ctx, "u1", schemas.PostDraft, 0)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	limited, err := s.FindPostsByStatus(ctx, "u1", schemas.PostDraft, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSavePostRejectsEmptyID(t *testing.T) {
	s := newTestStore(t)
	err := s.SavePost(context.Background(), &schemas.Post{})
	require.Error(t, err)
}

func TestFindDuePosts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	require.NoError(t, s.SavePost(ctx, makePost("u1", schemas.PostScheduled, &past)))
	require.NoError(t, s.SavePost(ctx, makePost("u1", schemas.PostScheduled, &future)))
	require.NoError(t, s.SavePost(ctx, makePost("u1", schemas.PostDraft, &past)))

	due, err := s.FindDuePosts(ctx, "u1", now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, schemas.PostScheduled, due[0].Status)
	assert.True(t, due[0].ScheduledFor.Before(now))
}

func TestPostStatusTransitionPersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	post := makePost("u1", schemas.PostScheduled, nil)
	require.NoError(t, s.SavePost(ctx, post))

	publishedAt := time.Now().UTC()
	post.Status = schemas.PostPublished
	post.PublishedAt = &publishedAt
	post.ExternalPostID = "ext-123"
	require.NoError(t, s.SavePost(ctx, post))

	published, err := s.FindPostsByStatus(ctx, "u1", schemas.PostPublished, 0)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "ext-123", published[0].ExternalPostID)
	require.NotNil(t, published[0].PublishedAt)

	scheduled, err := s.FindPostsByStatus(ctx, "u1", schemas.PostScheduled, 0)
	require.NoError(t, err)
	assert.Empty(t, scheduled)
}

func TestFindPendingInteractionsFiltersByType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(typ schemas.InteractionType, status schemas.InteractionStatus) *schemas.Interaction {
		return &schemas.Interaction{
			ID:        uuid.NewString(),
			UserID:    "u1",
			Type:      typ,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	require.NoError(t, s.SaveInteraction(ctx, mk(schemas.InteractionLike, schemas.InteractionPending)))
	require.NoError(t, s.SaveInteraction(ctx, mk(schemas.InteractionComment, schemas.InteractionPending)))
	require.NoError(t, s.SaveInteraction(ctx, mk(schemas.InteractionConnectionRequest, schemas.InteractionPending)))
	require.NoError(t, s.SaveInteraction(ctx, mk(schemas.InteractionLike, schemas.InteractionCompleted)))

	engagement, err := s.FindPendingInteractions(ctx, "u1",
		[]schemas.InteractionType{schemas.InteractionLike, schemas.InteractionComment}, 10)
	require.NoError(t, err)
	assert.Len(t, engagement, 2)

	all, err := s.FindPendingInteractions(ctx, "u1", nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCountCompletedInteractions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := &schemas.Interaction{
		ID:        uuid.NewString(),
		UserID:    "u1",
		Type:      schemas.InteractionConnectionRequest,
		Status:    schemas.InteractionCompleted,
		CreatedAt: now.Add(-48 * time.Hour),
		UpdatedAt: now.Add(-48 * time.Hour),
	}
	recent := &schemas.Interaction{
		ID:        uuid.NewString(),
		UserID:    "u1",
		Type:      schemas.InteractionConnectionRequest,
		Status:    schemas.InteractionCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.SaveInteraction(ctx, old))
	require.NoError(t, s.SaveInteraction(ctx, recent))

	count, err := s.CountCompletedInteractions(ctx, "u1", schemas.InteractionConnectionRequest, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHasCompletedInteraction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	done := &schemas.Interaction{
		ID:           uuid.NewString(),
		UserID:       "u1",
		Type:         schemas.InteractionMessage,
		TargetPostID: "activity-9#c1",
		Status:       schemas.InteractionCompleted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.SaveInteraction(ctx, done))

	found, err := s.HasCompletedInteraction(ctx, "u1", schemas.InteractionMessage, "activity-9#c1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.HasCompletedInteraction(ctx, "u1", schemas.InteractionMessage, "activity-9#c2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestQuotaCounterRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	windowEnd := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	counter := &schemas.QuotaCounter{
		UserID:     "u1",
		ActionType: "connection_request",
		Count:      7,
		WindowEnd:  windowEnd,
	}
	require.NoError(t, s.SaveQuotaCounter(ctx, counter))

	// Upsert on the composite key, not a second row.
	counter.Count = 8
	require.NoError(t, s.SaveQuotaCounter(ctx, counter))

	counters, err := s.LoadQuotaCounters(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, counters, 1)
	assert.Equal(t, 8, counters[0].Count)
	assert.WithinDuration(t, windowEnd, counters[0].WindowEnd, time.Second)
}
