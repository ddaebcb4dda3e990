// File: internal/executor/executor.go
package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"linkpilot/api/schemas"
	"linkpilot/internal/browser"
)

// ActionFailedError wraps any failure of a single browser intent.
type ActionFailedError struct {
	Intent string
	Err    error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.Intent, e.Err)
}

func (e *ActionFailedError) Unwrap() error { return e.Err }

// ActionExecutor translates one intent into a fixed sequence of page
// operations. It performs no retries; callers decide what a failure
// means for the work item.
type ActionExecutor struct {
	driver schemas.PageDriver
	logger *zap.Logger
}

func New(driver schemas.PageDriver, logger *zap.Logger) *ActionExecutor {
	return &ActionExecutor{
		driver: driver,
		logger: logger.Named("executor"),
	}
}

// fail wraps err for the intent and resets the session when the cause
// is an authentication failure, so the next firing can re-login.
func (e *ActionExecutor) fail(intent string, err error) error {
	var authErr *browser.AuthenticationError
	if errors.As(err, &authErr) {
		e.logger.Warn("Authentication failure; resetting browser session.",
			zap.String("intent", intent))
		e.driver.Reset()
	}
	return &ActionFailedError{Intent: intent, Err: err}
}

// PublishPost opens the composer on the feed, types the content and
// submits. Returns the external post ID when it can be determined from
// the resulting URL.
func (e *ActionExecutor) PublishPost(ctx context.Context, content string) (string, error) {
	const intent = "publish_post"

	if err := e.driver.EnsureReady(ctx); err != nil {
		return "", e.fail(intent, err)
	}
	if err := e.driver.Navigate(ctx, browser.FeedURL); err != nil {
		return "", e.fail(intent, err)
	}
	if err := e.driver.Click(ctx, browser.SelStartPost); err != nil {
		return "", e.fail(intent, err)
	}
	if err := e.driver.FillField(ctx, browser.SelPostEditor, content); err != nil {
		return "", e.fail(intent, err)
	}
	if err := e.driver.Click(ctx, browser.SelPostSubmit); err != nil {
		return "", e.fail(intent, err)
	}

	url, err := e.driver.CurrentURL(ctx)
	if err != nil {
		return "", e.fail(intent, err)
	}

	externalID := ExternalPostIDFromURL(url)
	e.logger.Info("Post published.", zap.String("external_post_id", externalID))
	return externalID, nil
}

// LikePost opens the post page and clicks the like control.
func (e *ActionExecutor) LikePost(ctx context.Context, targetPostID string) error {
	const intent = "like_post"

	if err := e.driver.EnsureReady(ctx); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.Navigate(ctx, postPageURL(targetPostID)); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.Click(ctx, browser.SelLikeButton); err != nil {
		return e.fail(intent, err)
	}
	return nil
}

// GetPostText opens the post page and extracts the post body, feeding
// decision and generation prompts with the actual content.
func (e *ActionExecutor) GetPostText(ctx context.Context, externalPostID string) (string, error) {
	const intent = "get_post_text"

	if err := e.driver.EnsureReady(ctx); err != nil {
		return "", e.fail(intent, err)
	}
	if err := e.driver.Navigate(ctx, postPageURL(externalPostID)); err != nil {
		return "", e.fail(intent, err)
	}
	text, err := e.driver.ExtractText(ctx, browser.SelPostBody)
	if err != nil {
		return "", e.fail(intent, err)
	}
	return strings.TrimSpace(text), nil
}

// CommentOnPost opens the post page, opens the comment box, types the
// text and submits.
func (e *ActionExecutor) CommentOnPost(ctx context.Context, targetPostID, text string) error {
	const intent = "comment_on_post"

	if err := e.driver.EnsureReady(ctx); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.Navigate(ctx, postPageURL(targetPostID)); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.Click(ctx, browser.SelCommentButton); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.FillField(ctx, browser.SelCommentBox, text); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.Click(ctx, browser.SelCommentSubmit); err != nil {
		return e.fail(intent, err)
	}
	return nil
}

// SendConnectionRequest opens the profile and sends an invitation,
// attaching a note when message is non-empty.
func (e *ActionExecutor) SendConnectionRequest(ctx context.Context, targetProfileID, message string) error {
	const intent = "send_connection_request"

	if err := e.driver.EnsureReady(ctx); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.Navigate(ctx, browser.ProfileURL+targetProfileID+"/"); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.Click(ctx, browser.SelConnectButton); err != nil {
		return e.fail(intent, err)
	}
	if message != "" {
		if err := e.driver.Click(ctx, browser.SelAddNoteButton); err != nil {
			return e.fail(intent, err)
		}
		if err := e.driver.FillField(ctx, browser.SelNoteTextarea, message); err != nil {
			return e.fail(intent, err)
		}
	}
	if err := e.driver.Click(ctx, browser.SelSendInvitation); err != nil {
		return e.fail(intent, err)
	}
	return nil
}

// ListPostComments scrapes the comment thread under a published post.
// Comment IDs are positional; they stay valid only for the page as
// currently loaded, which is fine because replies happen in the same
// trigger firing.
func (e *ActionExecutor) ListPostComments(ctx context.Context, externalPostID string) ([]schemas.CommentRef, error) {
	const intent = "list_post_comments"

	if err := e.driver.EnsureReady(ctx); err != nil {
		return nil, e.fail(intent, err)
	}
	if err := e.driver.Navigate(ctx, postPageURL(externalPostID)); err != nil {
		return nil, e.fail(intent, err)
	}

	authors, err := e.driver.ExtractTexts(ctx, browser.SelCommentAuthor)
	if err != nil {
		return nil, e.fail(intent, err)
	}
	texts, err := e.driver.ExtractTexts(ctx, browser.SelCommentText)
	if err != nil {
		return nil, e.fail(intent, err)
	}

	n := len(texts)
	if len(authors) < n {
		n = len(authors)
	}
	comments := make([]schemas.CommentRef, 0, n)
	for i := 0; i < n; i++ {
		comments = append(comments, schemas.CommentRef{
			ID:     strconv.Itoa(i),
			Author: authors[i],
			Text:   texts[i],
		})
	}
	return comments, nil
}

// ReplyToComment posts a reply under the identified comment.
func (e *ActionExecutor) ReplyToComment(ctx context.Context, externalPostID, commentID, text string) error {
	const intent = "reply_to_comment"

	index, err := strconv.Atoi(commentID)
	if err != nil || index < 0 {
		return e.fail(intent, fmt.Errorf("invalid comment id %q", commentID))
	}

	if err := e.driver.EnsureReady(ctx); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.Navigate(ctx, postPageURL(externalPostID)); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.ClickNth(ctx, browser.SelReplyButton, index); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.FillField(ctx, browser.SelReplyBox, text); err != nil {
		return e.fail(intent, err)
	}
	if err := e.driver.Click(ctx, browser.SelReplySubmit); err != nil {
		return e.fail(intent, err)
	}
	return nil
}

func postPageURL(externalPostID string) string {
	return browser.PostURL + externalPostID + "/"
}

// ExternalPostIDFromURL pulls the post identifier out of a permalink.
// Returns "" when the URL has no recognizable post segment.
func ExternalPostIDFromURL(url string) string {
	for _, marker := range []string{"/posts/", "/feed/update/"} {
		if _, after, found := strings.Cut(url, marker); found {
			id := after
			if i := strings.IndexAny(id, "/?"); i >= 0 {
				id = id[:i]
			}
			return id
		}
	}
	return ""
}
