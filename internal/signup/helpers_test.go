// internal/signup/helpers_test.go
package signup

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/credlog"
	"github.com/xkilldash9x/formpilot/internal/identity"
	"github.com/xkilldash9x/formpilot/internal/locator"
)

// fakeBrowser is a scripted two-step page. Candidates not listed in visible
// (or clickable) block until the wait context expires, like a real page
// missing the element would. The credential fields stay hidden until a click
// succeeds, as they would behind a working "next" button.
type fakeBrowser struct {
	mu sync.Mutex

	navigateErr   error
	visible       map[locator.Candidate]int // remaining successful waits; -1 is unlimited
	clickable     map[locator.Candidate]bool
	clickErr      error
	pressEnterErr error
	quitErr       error

	step2    map[locator.Candidate]bool
	advanced bool
	// blocked, when set, receives each candidate a visibility wait blocks on.
	blocked chan locator.Candidate

	typed        map[locator.Candidate]string
	clicked      []locator.Candidate
	enterPressed int
	quitCalls    int
	quitCtxErr   error
	nextNode     cdp.NodeID
}

func newFakeBrowser(target config.TargetConfig) *fakeBrowser {
	b := &fakeBrowser{
		visible:   map[locator.Candidate]int{},
		clickable: map[locator.Candidate]bool{},
		typed:     map[locator.Candidate]string{},
		step2: map[locator.Candidate]bool{
			target.Fields.Username:        true,
			target.Fields.Password:        true,
			target.Fields.ConfirmPassword: true,
		},
	}
	for _, f := range target.Fields.All() {
		b.visible[f.Locator] = -1
	}
	return b
}

func (b *fakeBrowser) element(c locator.Candidate) locator.Element {
	b.nextNode++
	return locator.Element{Locator: c, Node: &cdp.Node{NodeID: b.nextNode}}
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	return b.navigateErr
}

func (b *fakeBrowser) WaitVisible(ctx context.Context, c locator.Candidate) (locator.Element, error) {
	b.mu.Lock()
	n, ok := b.visible[c]
	if ok && n != 0 && (b.advanced || !b.step2[c]) {
		if n > 0 {
			b.visible[c] = n - 1
		}
		el := b.element(c)
		b.mu.Unlock()
		return el, nil
	}
	blocked := b.blocked
	b.mu.Unlock()
	if blocked != nil {
		select {
		case blocked <- c:
		default:
		}
	}
	<-ctx.Done()
	return locator.Element{}, ctx.Err()
}

func (b *fakeBrowser) WaitClickable(ctx context.Context, c locator.Candidate) (locator.Element, error) {
	b.mu.Lock()
	if b.clickable[c] {
		el := b.element(c)
		b.mu.Unlock()
		return el, nil
	}
	b.mu.Unlock()
	<-ctx.Done()
	return locator.Element{}, ctx.Err()
}

func (b *fakeBrowser) SendKeys(ctx context.Context, el locator.Element, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typed[el.Locator] = text
	return nil
}

func (b *fakeBrowser) Click(ctx context.Context, el locator.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clicked = append(b.clicked, el.Locator)
	if b.clickErr != nil {
		return b.clickErr
	}
	b.advanced = true
	return nil
}

func (b *fakeBrowser) PressEnter(ctx context.Context, el locator.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enterPressed++
	return b.pressEnterErr
}

func (b *fakeBrowser) Quit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quitCalls++
	b.quitCtxErr = ctx.Err()
	return b.quitErr
}

// countingOpener hands out the same fake browser and counts how often it was asked to.
type countingOpener struct {
	browser *fakeBrowser
	err     error
	calls   int
}

func (o *countingOpener) Open(ctx context.Context) (Browser, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	return o.browser, nil
}

// memorySink collects appended identities.
type memorySink struct {
	entries []credlog.Entry
	err     error
}

func (s *memorySink) Append(id identity.Identity) (credlog.Entry, error) {
	if s.err != nil {
		return credlog.Entry{}, s.err
	}
	e := credlog.Entry{Timestamp: time.Now(), Identity: id}
	s.entries = append(s.entries, e)
	return e, nil
}

// recordingSleep records requested delays without waiting. failOn, when
// positive, makes that call (1-based) fail.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
	failOn int
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	if r.failOn > 0 && len(r.delays) == r.failOn {
		return errors.New("sleep interrupted")
	}
	return ctx.Err()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Target.URL = "http://signup.test/register"
	cfg.Timeouts = config.TimeoutsConfig{
		Navigation: time.Second,
		Field:      20 * time.Millisecond,
		Candidate:  10 * time.Millisecond,
		Submit:     30 * time.Millisecond,
		Release:    time.Second,
	}
	cfg.Pacing = config.PacingConfig{MinSeconds: 7, MaxSeconds: 12}
	return cfg
}

func testPacer(cfg *config.Config, sleep *recordingSleep) *Pacer {
	return NewPacer(cfg.Pacing, rand.NewSource(1), sleep.Sleep)
}
