// File: internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"linkpilot/api/schemas"
	"linkpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Session drives one headless Chrome tab logged into LinkedIn. It
// implements schemas.PageDriver. All methods are safe for concurrent
// use, though callers serialize page work anyway.
type Session struct {
	cfg    config.BrowserConfig
	creds  config.LinkedInConfig
	logger *zap.Logger

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	ready       bool
	closed      bool
}

var _ schemas.PageDriver = (*Session)(nil)

// NewSession creates an unlaunched session. The browser starts on the
// first EnsureReady call.
func NewSession(cfg config.BrowserConfig, creds config.LinkedInConfig, logger *zap.Logger) *Session {
	return &Session{
		cfg:    cfg,
		creds:  creds,
		logger: logger.Named("browser"),
	}
}

// EnsureReady launches the browser if needed and brings the session to
// an authenticated state. Idempotent; cheap when already ready.
func (s *Session) EnsureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("session is closed")
	}
	if s.ready {
		return nil
	}

	if s.tabCtx == nil {
		s.launchLocked()
	}

	if err := s.authenticateLocked(ctx); err != nil {
		return err
	}

	s.ready = true
	return nil
}

// launchLocked builds the exec allocator and tab context. The parent is
// context.Background so the browser outlives individual trigger contexts.
func (s *Session) launchLocked() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("window-size", "1280,900"),
	)
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s.allocCancel = allocCancel
	s.tabCtx = tabCtx
	s.tabCancel = tabCancel
}

func (s *Session) authenticateLocked(ctx context.Context) error {
	runCtx, cancel, stop := s.boundedLocked(ctx, s.cfg.NavigationWait)
	defer cancel()
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Navigate(FeedURL)); err != nil {
		return fmt.Errorf("failed to reach %s: %w", FeedURL, err)
	}

	restored := s.restoreCookies(runCtx)
	if restored {
		// Cookies only take effect after a reload.
		if err := chromedp.Run(runCtx, chromedp.Navigate(FeedURL)); err != nil {
			return fmt.Errorf("failed to reload feed: %w", err)
		}
		if s.isAuthenticated(runCtx) {
			s.logger.Info("Session restored from saved cookies.")
			return nil
		}
		s.logger.Info("Saved cookies are stale; falling back to interactive login.")
	}

	if err := s.loginLocked(runCtx); err != nil {
		return err
	}

	s.saveCookies(runCtx)
	return nil
}

// loginLocked performs the interactive credential flow.
func (s *Session) loginLocked(runCtx context.Context) error {
	formCtx, cancel := context.WithTimeout(runCtx, s.cfg.ActionTimeout)
	err := chromedp.Run(formCtx,
		chromedp.Navigate(LoginURL),
		chromedp.WaitVisible(SelLoginUsername, chromedp.ByQuery),
		chromedp.SendKeys(SelLoginUsername, s.creds.Email, chromedp.ByQuery),
		chromedp.SendKeys(SelLoginPassword, s.creds.Password, chromedp.ByQuery),
		chromedp.Click(SelLoginSubmit, chromedp.ByQuery),
	)
	cancel()
	if err != nil {
		return &AuthenticationError{Reason: "login form interaction failed", Err: err}
	}

	waitCtx, cancel := context.WithTimeout(runCtx, s.cfg.NavigationWait)
	err = chromedp.Run(waitCtx, chromedp.WaitVisible(SelAuthenticatedNav, chromedp.ByQuery))
	cancel()
	if err != nil {
		// Wrong password, checkpoint page, captcha. All look the same
		// from here: no authenticated nav.
		return &AuthenticationError{Reason: "post-login verification failed", Err: err}
	}

	s.logger.Info("Interactive login succeeded.")
	return nil
}

func (s *Session) isAuthenticated(runCtx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(runCtx, 5*time.Second)
	defer cancel()

	var url string
	if err := chromedp.Run(checkCtx,
		chromedp.WaitVisible(SelAuthenticatedNav, chromedp.ByQuery),
		chromedp.Location(&url),
	); err != nil {
		return false
	}
	return !strings.Contains(url, "/login")
}

// cookieFile serialization shape.
type storedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
}

// restoreCookies loads the cookie file into the browser. Returns true
// when at least one cookie was applied.
func (s *Session) restoreCookies(runCtx context.Context) bool {
	if s.cfg.CookieFile == "" {
		return false
	}
	data, err := os.ReadFile(s.cfg.CookieFile)
	if err != nil {
		return false
	}
	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("Cookie file is corrupt; ignoring.", zap.Error(err))
		return false
	}
	if len(stored) == 0 {
		return false
	}

	params := make([]*network.CookieParam, 0, len(stored))
	for _, c := range stored {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}

	err = chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		s.logger.Warn("Failed to apply saved cookies.", zap.Error(err))
		return false
	}
	return true
}

// saveCookies snapshots the browser cookies to disk. Best effort.
func (s *Session) saveCookies(runCtx context.Context) {
	if s.cfg.CookieFile == "" {
		return
	}
	var stored []storedCookie
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			stored = append(stored, storedCookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
			})
		}
		return nil
	}))
	if err != nil {
		s.logger.Warn("Failed to read cookies for persistence.", zap.Error(err))
		return
	}

	data, err := json.Marshal(stored)
	if err != nil {
		s.logger.Warn("Failed to serialize cookies.", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.cfg.CookieFile, data, 0o600); err != nil {
		s.logger.Warn("Failed to write cookie file.", zap.Error(err))
	}
}

// boundedLocked derives a run context from the tab with a timeout, and
// ties it to the caller's context so shutdown aborts page work.
func (s *Session) boundedLocked(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, func() bool) {
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, cancel, stop
}

// bounded is boundedLocked for callers that do not hold the mutex.
func (s *Session) bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, func() bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.tabCtx == nil {
		return nil, nil, nil, fmt.Errorf("session is not live; call EnsureReady first")
	}
	runCtx, cancel, stop := s.boundedLocked(ctx, timeout)
	return runCtx, cancel, stop, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel, stop, err := s.bounded(ctx, s.cfg.NavigationWait)
	if err != nil {
		return err
	}
	defer cancel()
	defer stop()

	err = chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &TimeoutError{Op: "navigate " + url, Timeout: s.cfg.NavigationWait, Err: err}
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (s *Session) FillField(ctx context.Context, selector, value string) error {
	runCtx, cancel, stop, err := s.bounded(ctx, s.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer stop()

	err = chromedp.Run(runCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	return classifyElementErr("fill", selector, err)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	runCtx, cancel, stop, err := s.bounded(ctx, s.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer stop()

	err = chromedp.Run(runCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	return classifyElementErr("click", selector, err)
}

func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	runCtx, cancel, stop, err := s.bounded(ctx, timeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer stop()

	err = chromedp.Run(runCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &TimeoutError{Op: "wait for " + selector, Timeout: timeout, Err: err}
		}
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

func (s *Session) ExtractText(ctx context.Context, selector string) (string, error) {
	runCtx, cancel, stop, err := s.bounded(ctx, s.cfg.ActionTimeout)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer stop()

	var text string
	err = chromedp.Run(runCtx, chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.NodeVisible))
	if err != nil {
		return "", classifyElementErr("extract text", selector, err)
	}
	return strings.TrimSpace(text), nil
}

func (s *Session) ExtractTexts(ctx context.Context, selector string) ([]string, error) {
	runCtx, cancel, stop, err := s.bounded(ctx, s.cfg.ActionTimeout)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer stop()

	var texts []string
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(n => n.textContent.trim())`, selector)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &texts)); err != nil {
		return nil, classifyElementErr("extract texts", selector, err)
	}
	return texts, nil
}

func (s *Session) ClickNth(ctx context.Context, selector string, index int) error {
	runCtx, cancel, stop, err := s.bounded(ctx, s.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer stop()

	var clicked bool
	script := fmt.Sprintf(`(() => {
		const nodes = document.querySelectorAll(%q);
		if (nodes.length <= %d) { return false; }
		nodes[%d].scrollIntoView({block: "center"});
		nodes[%d].click();
		return true;
	})()`, selector, index, index, index)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		return classifyElementErr("click nth", selector, err)
	}
	if !clicked {
		return &ElementNotFoundError{Selector: fmt.Sprintf("%s[%d]", selector, index)}
	}
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	runCtx, cancel, stop, err := s.bounded(ctx, s.cfg.ActionTimeout)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer stop()

	var url string
	if err := chromedp.Run(runCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current url: %w", err)
	}
	return url, nil
}

// Reset tears down the live browser so the next EnsureReady starts
// fresh. Used after authentication failures.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// Close releases everything. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.teardownLocked()
	s.closed = true
	return nil
}

func (s *Session) teardownLocked() {
	if s.tabCancel != nil {
		s.tabCancel()
		s.tabCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.tabCtx = nil
	s.ready = false
}

func classifyElementErr(op, selector string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ElementNotFoundError{Selector: selector, Err: err}
	}
	return fmt.Errorf("%s on %q failed: %w", op, selector, err)
}
