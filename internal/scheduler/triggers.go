// File: internal/scheduler/triggers.go
package scheduler

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linkpilot/api/schemas"
	"linkpilot/internal/content"
	"linkpilot/internal/quota"
)

// schedulePosts assigns publish slots to draft posts. When the draft
// backlog is empty and topics are configured, it generates one fresh
// draft first so the pipeline never starves.
func (s *Scheduler) schedulePosts(ctx context.Context) {
	drafts, err := s.repo.FindPostsByStatus(ctx, s.userID, schemas.PostDraft, s.cfg.MaxDraftsPerWeek)
	if err != nil {
		s.logger.Error("Failed to load drafts.", zap.Error(err))
		return
	}

	if len(drafts) == 0 && len(s.content.Topics) > 0 {
		draft, err := s.generateDraft(ctx)
		if err != nil {
			s.logger.Error("Failed to generate draft post.", zap.Error(err))
			return
		}
		drafts = append(drafts, *draft)
	}

	now := time.Now()
	for i := range drafts {
		post := &drafts[i]
		slot := s.pickPublishSlot(now)
		post.ScheduledFor = &slot
		post.Status = schemas.PostScheduled
		post.UpdatedAt = now

		if err := s.repo.SavePost(ctx, post); err != nil {
			s.logger.Error("Failed to schedule post.", zap.String("post_id", post.ID), zap.Error(err))
			continue
		}
		s.logger.Info("Post scheduled.",
			zap.String("post_id", post.ID), zap.Time("scheduled_for", slot))
	}
}

func (s *Scheduler) generateDraft(ctx context.Context) (*schemas.Post, error) {
	topic := s.content.Topics[s.randIntn(len(s.content.Topics))]
	text, err := s.generator.Generate(ctx, content.KindPost, content.Params{
		Topic: topic,
		Style: s.content.Style,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post := &schemas.Post{
		ID:        uuid.NewString(),
		UserID:    s.userID,
		Content:   text,
		Status:    schemas.PostDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.SavePost(ctx, post); err != nil {
		return nil, err
	}
	s.logger.Info("Draft generated.", zap.String("post_id", post.ID), zap.String("topic", topic))
	return post, nil
}

// publishDuePosts pushes every scheduled post whose slot has arrived
// through the browser. One failure never blocks the rest of the batch.
func (s *Scheduler) publishDuePosts(ctx context.Context) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	due, err := s.repo.FindDuePosts(ctx, s.userID, time.Now())
	if err != nil {
		s.logger.Error("Failed to load due posts.", zap.Error(err))
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		post := &due[i]

		if !s.tracker.TryConsume(s.userID, quota.ActionPost) {
			// Quota exhausted for the week. The post stays scheduled
			// and becomes due again once the window rolls.
			s.logger.Warn("Post quota exhausted; deferring remaining posts.")
			return
		}

		externalID, err := s.runner.PublishPost(ctx, post.Content)
		now := time.Now()
		if err != nil {
			s.logger.Error("Failed to publish post.", zap.String("post_id", post.ID), zap.Error(err))
			post.Status = schemas.PostFailed
		} else {
			post.Status = schemas.PostPublished
			post.ExternalPostID = externalID
			post.PublishedAt = &now
		}
		post.UpdatedAt = now

		if err := s.repo.SavePost(ctx, post); err != nil {
			s.logger.Error("Failed to persist post status.", zap.String("post_id", post.ID), zap.Error(err))
		}
	}
}

// processInteractions works through pending likes and comments, bounded
// by the configured batch size, with jittered pacing between actions.
func (s *Scheduler) processInteractions(ctx context.Context) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	items, err := s.repo.FindPendingInteractions(ctx, s.userID,
		[]schemas.InteractionType{schemas.InteractionLike, schemas.InteractionComment},
		s.cfg.InteractionBatch)
	if err != nil {
		s.logger.Error("Failed to load pending interactions.", zap.Error(err))
		return
	}

	for i := range items {
		if ctx.Err() != nil {
			return
		}
		item := &items[i]

		acted := s.processOneInteraction(ctx, item)
		if acted && i < len(items)-1 {
			if err := s.sleepJitter(ctx, s.interactionJitter); err != nil {
				return
			}
		}
	}
}

// processOneInteraction handles a single like or comment. Returns true
// when a browser action actually ran. Items skipped by probability or
// quota stay pending for a later firing.
func (s *Scheduler) processOneInteraction(ctx context.Context, item *schemas.Interaction) bool {
	switch item.Type {
	case schemas.InteractionLike:
		if s.randFloat() > s.cfg.LikeProbability {
			return false
		}
		if !s.tracker.TryConsume(s.userID, quota.ActionLike) {
			return false
		}
		err := s.runner.LikePost(ctx, item.TargetPostID)
		s.finishInteraction(ctx, item, err)
		return true

	case schemas.InteractionComment:
		if s.randFloat() > s.cfg.CommentProbability {
			return false
		}
		text := item.Content
		if text == "" {
			// The gate and the prompt judge the post body, not the
			// opaque activity ID.
			postText, err := s.runner.GetPostText(ctx, item.TargetPostID)
			if err != nil {
				s.logger.Warn("Failed to read post text; leaving item pending.",
					zap.String("interaction_id", item.ID), zap.Error(err))
				return false
			}
			if !s.generator.ShouldAct(ctx, content.KindComment, postText, nil) {
				return false
			}
			generated, err := s.generator.Generate(ctx, content.KindComment, content.Params{
				PostContent: postText,
				Style:       s.content.Style,
			})
			if err != nil {
				// No text means no action; the item fails terminally.
				s.finishInteraction(ctx, item, err)
				return false
			}
			text = generated
			item.Content = generated
		}
		if !s.tracker.TryConsume(s.userID, quota.ActionComment) {
			return false
		}
		err := s.runner.CommentOnPost(ctx, item.TargetPostID, text)
		s.finishInteraction(ctx, item, err)
		return true

	default:
		s.logger.Warn("Unexpected interaction type in engagement batch.",
			zap.String("interaction_id", item.ID), zap.String("type", string(item.Type)))
		return false
	}
}

// sendConnectionBatch sends pending connection requests until the daily
// ceiling rejects, leaving the remainder for tomorrow.
func (s *Scheduler) sendConnectionBatch(ctx context.Context) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	items, err := s.repo.FindPendingInteractions(ctx, s.userID,
		[]schemas.InteractionType{schemas.InteractionConnectionRequest}, 0)
	if err != nil {
		s.logger.Error("Failed to load pending connection requests.", zap.Error(err))
		return
	}

	for i := range items {
		if ctx.Err() != nil {
			return
		}
		item := &items[i]

		// Generation runs before the quota check so a failed item never
		// burns a unit of the daily ceiling.
		message := item.Content
		if message == "" {
			generated, err := s.generator.Generate(ctx, content.KindConnectionMessage, content.Params{
				ProfileSummary: item.TargetProfileID,
			})
			if err != nil {
				s.finishInteraction(ctx, item, err)
				continue
			}
			message = generated
			item.Content = generated
		}

		if !s.tracker.TryConsume(s.userID, quota.ActionConnectionRequest) {
			s.logger.Info("Connection quota exhausted; stopping batch.",
				zap.Int("remaining", len(items)-i))
			return
		}

		err := s.runner.SendConnectionRequest(ctx, item.TargetProfileID, message)
		s.finishInteraction(ctx, item, err)

		if i < len(items)-1 {
			if err := s.sleepJitter(ctx, s.connectionJitter); err != nil {
				return
			}
		}
	}
}

// watchComments scans comment threads under published posts and replies
// where the decision gate approves, under an independent reply quota.
func (s *Scheduler) watchComments(ctx context.Context) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	published, err := s.repo.FindPostsByStatus(ctx, s.userID, schemas.PostPublished, 0)
	if err != nil {
		s.logger.Error("Failed to load published posts.", zap.Error(err))
		return
	}

	for i := range published {
		if ctx.Err() != nil {
			return
		}
		post := &published[i]
		if post.ExternalPostID == "" {
			continue
		}

		comments, err := s.runner.ListPostComments(ctx, post.ExternalPostID)
		if err != nil {
			s.logger.Warn("Failed to list comments.",
				zap.String("post_id", post.ID), zap.Error(err))
			continue
		}

		for _, c := range comments {
			if ctx.Err() != nil {
				return
			}
			if !s.replyToComment(ctx, post, c) {
				continue
			}
			if err := s.sleepJitter(ctx, s.replyJitter); err != nil {
				return
			}
		}
	}
}

// replyToComment handles one comment; returns true when a reply was
// attempted (success or failure).
func (s *Scheduler) replyToComment(ctx context.Context, post *schemas.Post, c schemas.CommentRef) bool {
	target := commentTarget(post.ExternalPostID, c)

	replied, err := s.repo.HasCompletedInteraction(ctx, s.userID, schemas.InteractionMessage, target)
	if err != nil {
		s.logger.Warn("Failed to check reply history.", zap.Error(err))
		return false
	}
	if replied {
		return false
	}

	if !s.generator.ShouldAct(ctx, content.KindComment, c.Text, map[string]any{"author": c.Author}) {
		return false
	}

	reply, err := s.generator.Generate(ctx, content.KindComment, content.Params{
		PostContent: c.Text,
		PostContext: "replying to a comment on our own post",
		Style:       s.content.Style,
	})
	if err != nil {
		s.logger.Warn("Reply generation failed.", zap.Error(err))
		return false
	}

	if !s.tracker.TryConsume(s.userID, quota.ActionReply) {
		s.logger.Info("Reply quota exhausted.")
		return false
	}

	now := time.Now()
	record := &schemas.Interaction{
		ID:           uuid.NewString(),
		UserID:       s.userID,
		Type:         schemas.InteractionMessage,
		TargetPostID: target,
		Content:      reply,
		Status:       schemas.InteractionPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.runner.ReplyToComment(ctx, post.ExternalPostID, c.ID, reply)
	s.finishInteraction(ctx, record, err)
	return true
}

// finishInteraction records the terminal status of one work item.
func (s *Scheduler) finishInteraction(ctx context.Context, item *schemas.Interaction, actionErr error) {
	if actionErr != nil {
		s.logger.Error("Interaction failed.",
			zap.String("interaction_id", item.ID),
			zap.String("type", string(item.Type)),
			zap.Error(actionErr))
		item.Status = schemas.InteractionFailed
	} else {
		item.Status = schemas.InteractionCompleted
	}
	item.UpdatedAt = time.Now()

	if err := s.repo.SaveInteraction(ctx, item); err != nil {
		s.logger.Error("Failed to persist interaction status.",
			zap.String("interaction_id", item.ID), zap.Error(err))
	}
}

// commentTarget builds a stable identity for a scraped comment so the
// same thread is never answered twice across firings.
func commentTarget(externalPostID string, c schemas.CommentRef) string {
	h := fnv.New64a()
	h.Write([]byte(c.Author))
	h.Write([]byte{0})
	h.Write([]byte(c.Text))
	return fmt.Sprintf("%s#%x", externalPostID, h.Sum64())
}
