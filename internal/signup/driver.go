// internal/signup/driver.go
package signup

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/identity"
	"github.com/xkilldash9x/formpilot/internal/locator"
)

// Browser is the narrow set of page operations the form driver needs.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, c locator.Candidate) (locator.Element, error)
	WaitClickable(ctx context.Context, c locator.Candidate) (locator.Element, error)
	SendKeys(ctx context.Context, el locator.Element, text string) error
	Click(ctx context.Context, el locator.Element) error
	PressEnter(ctx context.Context, el locator.Element) error
	Quit(ctx context.Context) error
}

// State is a position in the linear form sequence.
type State int

const (
	NotStarted State = iota
	PageOpened
	NamesFilled
	NextClicked
	CredentialsFilled
	Submitted
	Closed
)

var stateNames = [...]string{
	NotStarted:        "NotStarted",
	PageOpened:        "PageOpened",
	NamesFilled:       "NamesFilled",
	NextClicked:       "NextClicked",
	CredentialsFilled: "CredentialsFilled",
	Submitted:         "Submitted",
	Closed:            "Closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText lets a State appear by name in JSON reports.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pacer produces the randomized settle delays between page operations.
type Pacer struct {
	min, max int
	sleep    SleepFunc

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer creates a pacer drawing whole seconds uniformly from [cfg.MinSeconds, cfg.MaxSeconds].
func NewPacer(cfg config.PacingConfig, src rand.Source, sleep SleepFunc) *Pacer {
	if sleep == nil {
		sleep = sleepCtx
	}
	return &Pacer{min: cfg.MinSeconds, max: cfg.MaxSeconds, sleep: sleep, rng: rand.New(src)}
}

// Next returns the next delay without waiting.
func (p *Pacer) Next() time.Duration {
	if p.max <= p.min {
		return time.Duration(p.min) * time.Second
	}
	p.mu.Lock()
	n := p.min + p.rng.Intn(p.max-p.min+1)
	p.mu.Unlock()
	return time.Duration(n) * time.Second
}

// Pause waits for the next delay.
func (p *Pacer) Pause(ctx context.Context) (time.Duration, error) {
	d := p.Next()
	return d, p.sleep(ctx, d)
}

// FormDriver walks one browser session through the sign-up form. Steps must
// be called in order; each one checks the driver is in the expected state.
type FormDriver struct {
	logger   *zap.Logger
	browser  Browser
	resolver *locator.Resolver
	target   config.TargetConfig
	timeouts config.TimeoutsConfig
	pacer    *Pacer

	mu    sync.Mutex
	state State
}

// NewFormDriver binds a driver to an open browser session.
func NewFormDriver(logger *zap.Logger, b Browser, target config.TargetConfig, timeouts config.TimeoutsConfig, pacer *Pacer) *FormDriver {
	log := logger.Named("form_driver")
	return &FormDriver{
		logger:   log,
		browser:  b,
		resolver: locator.NewResolver(log, b),
		target:   target,
		timeouts: timeouts,
		pacer:    pacer,
		state:    NotStarted,
	}
}

// State returns the driver's current position in the sequence.
func (d *FormDriver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *FormDriver) expect(want State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Closed {
		return ErrAlreadyClosed
	}
	if d.state != want {
		return fmt.Errorf("form driver in state %s, expected %s", d.state, want)
	}
	return nil
}

// expectWithin is expect for steps that may run from any state in [from, to].
func (d *FormDriver) expectWithin(from, to State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Closed {
		return ErrAlreadyClosed
	}
	if d.state < from || d.state > to {
		return fmt.Errorf("form driver in state %s, expected %s through %s", d.state, from, to)
	}
	return nil
}

func (d *FormDriver) advance(to State) {
	d.mu.Lock()
	d.state = to
	d.mu.Unlock()
	d.logger.Debug("Form state advanced.", zap.Stringer("state", to))
}

// OpenPage navigates to the target URL and then waits out a settle delay.
func (d *FormDriver) OpenPage(ctx context.Context) error {
	if err := d.expect(NotStarted); err != nil {
		return err
	}
	d.logger.Info("Navigating to sign-up page.", zap.String("url", d.target.URL))

	navCtx, cancel := context.WithTimeout(ctx, d.timeouts.Navigation)
	err := d.browser.Navigate(navCtx, d.target.URL)
	cancel()
	if err != nil {
		return err
	}

	delay, err := d.pacer.Pause(ctx)
	if err != nil {
		return fmt.Errorf("settle delay after navigation: %w", err)
	}
	d.logger.Debug("Page settled.", zap.Duration("delay", delay))
	d.advance(PageOpened)
	return nil
}

// FillIdentityFields writes the first and last name.
func (d *FormDriver) FillIdentityFields(ctx context.Context, id identity.Identity) error {
	if err := d.expect(PageOpened); err != nil {
		return err
	}
	d.logger.Info("Filling out the name fields.")
	if err := d.fill(ctx, "first_name", d.target.Fields.FirstName, id.FirstName); err != nil {
		return err
	}
	if err := d.fill(ctx, "last_name", d.target.Fields.LastName, id.LastName); err != nil {
		return err
	}
	d.advance(NamesFilled)
	return nil
}

// AdvanceNext finds the "next" control through the fallback chain and clicks it.
func (d *FormDriver) AdvanceNext(ctx context.Context) error {
	if err := d.expect(NamesFilled); err != nil {
		return err
	}
	el, err := d.resolver.ResolveClickable(ctx, "next button", d.target.NextCandidates, d.timeouts.Candidate)
	if err != nil {
		return err
	}
	if err := d.browser.Click(ctx, el); err != nil {
		return fmt.Errorf("clicking next button (%s): %w", el.Locator, err)
	}
	d.advance(NextClicked)
	return nil
}

// FillCredentialFields writes the username, password and its confirmation.
func (d *FormDriver) FillCredentialFields(ctx context.Context, id identity.Identity) error {
	if err := d.expect(NextClicked); err != nil {
		return err
	}
	d.logger.Info("Filling out the credential fields.")
	if err := d.fill(ctx, "username", d.target.Fields.Username, id.Username); err != nil {
		return err
	}
	if err := d.fill(ctx, "password", d.target.Fields.Password, id.Password); err != nil {
		return err
	}
	if err := d.fill(ctx, "confirm_password", d.target.Fields.ConfirmPassword, id.Password); err != nil {
		return err
	}
	d.advance(CredentialsFilled)
	return nil
}

// Submit locates the confirm-password field again, with the longer submit
// timeout, and presses Enter in it. It may follow any step after the page
// was opened, so a form whose filling stopped early is still submitted.
func (d *FormDriver) Submit(ctx context.Context) error {
	if err := d.expectWithin(PageOpened, CredentialsFilled); err != nil {
		return err
	}
	d.logger.Info("Submitting the form by pressing Enter.")

	waitCtx, cancel := context.WithTimeout(ctx, d.timeouts.Submit)
	el, err := d.browser.WaitVisible(waitCtx, d.target.Fields.ConfirmPassword)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &SubmissionTimeoutError{Field: "confirm_password", Timeout: d.timeouts.Submit, Err: err}
		}
		return fmt.Errorf("locating confirm_password for submission: %w", err)
	}
	if err := d.browser.PressEnter(ctx, el); err != nil {
		return fmt.Errorf("pressing Enter in confirm_password: %w", err)
	}
	d.advance(Submitted)
	return nil
}

// Close releases the browser session. Only the first call reaches the
// browser; the driver is Closed afterwards whatever the outcome.
func (d *FormDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.state == Closed {
		d.mu.Unlock()
		return nil
	}
	d.state = Closed
	d.mu.Unlock()

	if err := d.browser.Quit(ctx); err != nil {
		return fmt.Errorf("releasing browser session: %w", err)
	}
	return nil
}

func (d *FormDriver) fill(ctx context.Context, field string, c locator.Candidate, value string) error {
	waitCtx, cancel := context.WithTimeout(ctx, d.timeouts.Field)
	el, err := d.browser.WaitVisible(waitCtx, c)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &FieldNotVisibleError{Field: field, Locator: c, Timeout: d.timeouts.Field, Err: err}
		}
		return fmt.Errorf("waiting for %s: %w", field, err)
	}
	if err := d.browser.SendKeys(ctx, el, value); err != nil {
		return fmt.Errorf("typing into %s: %w", field, err)
	}
	return nil
}
