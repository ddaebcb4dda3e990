// File: internal/browser/selectors.go
package browser

// Every LinkedIn URL and CSS selector the session touches lives here.
// When LinkedIn ships a UI change, this file is the only place to fix.

const (
	BaseURL    = "https://www.linkedin.com"
	LoginURL   = BaseURL + "/login"
	FeedURL    = BaseURL + "/feed/"
	ProfileURL = BaseURL + "/in/"
	PostURL    = BaseURL + "/feed/update/"
)

// Login page.
const (
	SelLoginUsername = "#username"
	SelLoginPassword = "#password"
	SelLoginSubmit   = `button[type="submit"]`

	// Present on every page once authenticated.
	SelAuthenticatedNav = "#global-nav"
)

// Post composer.
const (
	SelStartPost  = `[aria-label="Start a post"]`
	SelPostEditor = `[role="textbox"]`
	SelPostSubmit = `button[aria-label="Post"]`
)

// Engagement controls on a post page.
const (
	SelPostBody      = ".feed-shared-update-v2__description"
	SelLikeButton    = `button[aria-label="Like"]`
	SelCommentButton = `button[aria-label="Comment"]`
	SelCommentBox    = `[role="textbox"]`
	SelCommentSubmit = `button[aria-label="Post comment"]`
)

// Connection requests on a profile page.
const (
	SelConnectButton  = `button[aria-label^="Invite"], button[aria-label="Connect"]`
	SelAddNoteButton  = `button[aria-label="Add a note"]`
	SelNoteTextarea   = `textarea[name="message"]`
	SelSendInvitation = `button[aria-label="Send invitation"], button[aria-label="Send"]`
)

// Comment threads under a published post.
const (
	SelCommentItem   = ".comments-comment-item"
	SelCommentAuthor = ".comments-post-meta__name-text"
	SelCommentText   = ".comments-comment-item__main-content"
	SelReplyButton   = `button[aria-label="Reply"]`
	SelReplyBox      = `[role="textbox"]`
	SelReplySubmit   = `button[aria-label="Post comment"]`
)
