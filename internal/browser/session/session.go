// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/locator"
)

// ErrNoNode is returned when an element handed back for interaction carries no DOM node.
var ErrNoNode = errors.New("element has no resolved DOM node")

// Session owns one browser process and the single tab the form is driven in.
type Session struct {
	id     string
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	closeTab    func() error

	closeOnce sync.Once
	closeErr  error
}

// New launches a browser according to cfg and opens a tab in it. The browser
// lives until Quit is called or parent is cancelled.
func New(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	id := uuid.NewString()
	log := logger.Named("session").With(zap.String("session_id", id))

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, ExecOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Sugar().Debugf))

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	log.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return &Session{
		id:          id,
		logger:      log,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		closeTab:    func() error { return chromedp.Cancel(tabCtx) },
	}, nil
}

// ExecOptions translates the browser configuration into allocator options.
func ExecOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.tabCtx, ctx)
	defer cancel()
	return opError(ctx, chromedp.Run(runCtx, actions...))
}

// Navigate loads url in the session's tab.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the candidate matches a visible element.
func (s *Session) WaitVisible(ctx context.Context, c locator.Candidate) (locator.Element, error) {
	return s.wait(ctx, c, false)
}

// WaitClickable blocks until the candidate matches a visible, enabled element.
func (s *Session) WaitClickable(ctx context.Context, c locator.Candidate) (locator.Element, error) {
	return s.wait(ctx, c, true)
}

func (s *Session) wait(ctx context.Context, c locator.Candidate, enabled bool) (locator.Element, error) {
	sel, dialect, err := c.Selector()
	if err != nil {
		return locator.Element{}, err
	}
	by := chromedp.ByQuery
	if dialect == locator.XPath {
		by = chromedp.BySearch
		sel = firstMatch(sel)
	}

	var nodes []*cdp.Node
	actions := []chromedp.Action{chromedp.WaitVisible(sel, by)}
	if enabled {
		actions = append(actions, chromedp.WaitEnabled(sel, by))
	}
	actions = append(actions, chromedp.Nodes(sel, &nodes, by))

	if err := s.run(ctx, actions...); err != nil {
		return locator.Element{}, err
	}
	if len(nodes) == 0 {
		return locator.Element{}, fmt.Errorf("%s matched no nodes after becoming visible", c)
	}
	return locator.Element{Locator: c, Node: nodes[0]}, nil
}

// firstMatch narrows an XPath to its first result in document order.
// BySearch returns every match and waits until all of them are ready, so a
// hidden duplicate elsewhere on the page would otherwise never resolve.
func firstMatch(xpath string) string {
	return "(" + xpath + ")[1]"
}

func nodeIDs(el locator.Element) ([]cdp.NodeID, error) {
	if el.Node == nil {
		return nil, fmt.Errorf("%s: %w", el.Locator, ErrNoNode)
	}
	return []cdp.NodeID{el.Node.NodeID}, nil
}

// SendKeys types text into the element.
func (s *Session) SendKeys(ctx context.Context, el locator.Element, text string) error {
	ids, err := nodeIDs(el)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.SendKeys(ids, text, chromedp.ByNodeID))
}

// Click clicks the element.
func (s *Session) Click(ctx context.Context, el locator.Element) error {
	ids, err := nodeIDs(el)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.Click(ids, chromedp.ByNodeID))
}

// PressEnter sends the Enter key to the element.
func (s *Session) PressEnter(ctx context.Context, el locator.Element) error {
	ids, err := nodeIDs(el)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.SendKeys(ids, kb.Enter, chromedp.ByNodeID))
}

// Quit closes the tab and shuts the browser down, waiting for a clean exit
// until ctx is done. Only the first call does any work; later calls return
// the first call's result.
func (s *Session) Quit(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing the browser.")
		done := make(chan error, 1)
		go func() { done <- s.closeTab() }()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("closing browser: %w", err)
			}
		case <-ctx.Done():
			s.closeErr = fmt.Errorf("closing browser: %w", ctx.Err())
		}
		s.tabCancel()
		s.allocCancel()
	})
	return s.closeErr
}
