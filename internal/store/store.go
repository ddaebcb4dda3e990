// File: internal/store/store.go
package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"linkpilot/api/schemas"
	"linkpilot/internal/config"
)

// Store is the gorm-backed schemas.Repository implementation.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ schemas.Repository = (*Store)(nil)

// New opens (or creates) the sqlite database and migrates the schema.
func New(cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", cfg.Path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", cfg.Path, err)
	}

	// sqlite tolerates one writer; keep the pool at a single connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&schemas.Post{}, &schemas.Interaction{}, &schemas.QuotaCounter{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db, logger: logger.Named("store")}, nil
}

// NewWithDB wraps an already opened gorm handle. Tests use this with an
// in-memory sqlite database.
func NewWithDB(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&schemas.Post{}, &schemas.Interaction{}, &schemas.QuotaCounter{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db, logger: logger.Named("store")}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) FindPostsByStatus(ctx context.Context, userID string, status schemas.PostStatus, limit int) ([]schemas.Post, error) {
	var posts []schemas.Post
	query := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to find posts by status %q: %w", status, err)
	}
	return posts, nil
}

func (s *Store) FindDuePosts(ctx context.Context, userID string, now time.Time) ([]schemas.Post, error) {
	var posts []schemas.Post
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND scheduled_for <= ?", userID, schemas.PostScheduled, now).
		Order("scheduled_for ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find due posts: %w", err)
	}
	return posts, nil
}

func (s *Store) SavePost(ctx context.Context, post *schemas.Post) error {
	if post.ID == "" {
		return fmt.Errorf("post id must not be empty")
	}
	if err := s.db.WithContext(ctx).Save(post).Error; err != nil {
		return fmt.Errorf("failed to save post %s: %w", post.ID, err)
	}
	return nil
}

func (s *Store) FindPendingInteractions(ctx context.Context, userID string, types []schemas.InteractionType, limit int) ([]schemas.Interaction, error) {
	var interactions []schemas.Interaction
	query := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, schemas.InteractionPending).
		Order("created_at ASC")
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&interactions).Error; err != nil {
		return nil, fmt.Errorf("failed to find pending interactions: %w", err)
	}
	return interactions, nil
}

func (s *Store) SaveInteraction(ctx context.Context, interaction *schemas.Interaction) error {
	if interaction.ID == "" {
		return fmt.Errorf("interaction id must not be empty")
	}
	if err := s.db.WithContext(ctx).Save(interaction).Error; err != nil {
		return fmt.Errorf("failed to save interaction %s: %w", interaction.ID, err)
	}
	return nil
}

func (s *Store) CountCompletedInteractions(ctx context.Context, userID string, typ schemas.InteractionType, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schemas.Interaction{}).
		Where("user_id = ? AND type = ? AND status = ? AND updated_at >= ?",
			userID, typ, schemas.InteractionCompleted, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed interactions: %w", err)
	}
	return count, nil
}

func (s *Store) HasCompletedInteraction(ctx context.Context, userID string, typ schemas.InteractionType, targetPostID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schemas.Interaction{}).
		Where("user_id = ? AND type = ? AND status = ? AND target_post_id = ?",
			userID, typ, schemas.InteractionCompleted, targetPostID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check completed interaction: %w", err)
	}
	return count > 0, nil
}

func (s *Store) LoadQuotaCounters(ctx context.Context, userID string) ([]schemas.QuotaCounter, error) {
	var counters []schemas.QuotaCounter
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&counters).Error; err != nil {
		return nil, fmt.Errorf("failed to load quota counters: %w", err)
	}
	return counters, nil
}

func (s *Store) SaveQuotaCounter(ctx context.Context, counter *schemas.QuotaCounter) error {
	counter.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(counter).Error; err != nil {
		return fmt.Errorf("failed to save quota counter %s/%s: %w", counter.UserID, counter.ActionType, err)
	}
	return nil
}
