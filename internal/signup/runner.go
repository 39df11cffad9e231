// internal/signup/runner.go
package signup

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/credlog"
	"github.com/xkilldash9x/formpilot/internal/identity"
)

// Opener starts a browser session for one attempt.
type Opener func(ctx context.Context) (Browser, error)

// CredentialSink records the identity of a successful attempt.
type CredentialSink interface {
	Append(id identity.Identity) (credlog.Entry, error)
}

// Result summarizes one attempt. State is the last form state reached
// before the session was released.
type Result struct {
	AttemptID string            `json:"attempt_id"`
	Identity  identity.Identity `json:"identity"`
	Succeeded bool              `json:"succeeded"`
	Logged    bool              `json:"logged"`
	State     State             `json:"state"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration_ns"`
}

// Runner owns the lifecycle of one sign-up attempt at a time: it generates
// the identity, opens the browser, drives the form, records success and
// always releases the browser.
type Runner struct {
	logger    *zap.Logger
	cfg       *config.Config
	first     identity.Pool
	last      identity.Pool
	generator *identity.Generator
	open      Opener
	sink      CredentialSink
	pacer     *Pacer
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithGenerator replaces the identity generator.
func WithGenerator(g *identity.Generator) RunnerOption {
	return func(r *Runner) { r.generator = g }
}

// WithPacer replaces the settle-delay pacer.
func WithPacer(p *Pacer) RunnerOption {
	return func(r *Runner) { r.pacer = p }
}

// NewRunner creates a runner for the configured target. The name pools are
// captured as-is; emptiness is checked on every attempt.
func NewRunner(logger *zap.Logger, cfg *config.Config, first, last identity.Pool, open Opener, sink CredentialSink, opts ...RunnerOption) *Runner {
	r := &Runner{
		logger:    logger.Named("runner"),
		cfg:       cfg,
		first:     first,
		last:      last,
		generator: identity.New(),
		open:      open,
		sink:      sink,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.pacer == nil {
		r.pacer = NewPacer(cfg.Pacing, rand.NewSource(time.Now().UnixNano()), nil)
	}
	return r
}

// RunOnce performs a single attempt.
//
// An empty name pool is reported before any browser is opened. A page that
// cannot be opened is logged and ends the attempt unsuccessful with a nil
// error. A failed fill step is logged, the remaining fill steps are skipped
// and the form is submitted anyway. A failure while submitting is returned.
// In every case where a browser was opened it is released exactly once,
// after the credentials of a successful attempt have been appended to the
// log.
func (r *Runner) RunOnce(ctx context.Context) (res Result, err error) {
	started := time.Now()
	res.AttemptID = uuid.NewString()
	log := r.logger.With(zap.String("attempt_id", res.AttemptID))

	if len(r.first) == 0 || len(r.last) == 0 {
		log.Error("First or last name list is empty; not starting a browser session.",
			zap.Int("first_names", len(r.first)), zap.Int("last_names", len(r.last)))
		return res, ErrEmptyPool
	}

	id, err := r.generator.Generate(r.first, r.last)
	if err != nil {
		return res, err
	}
	res.Identity = id
	log.Info("Starting sign-up attempt.", zap.String("name", id.FullName()), zap.String("username", id.Username))

	browser, err := r.open(ctx)
	if err != nil {
		return res, fmt.Errorf("opening browser session: %w", err)
	}
	driver := NewFormDriver(log, browser, r.cfg.Target, r.cfg.Timeouts, r.pacer)

	defer func() {
		// Cleanup must outlive a cancelled attempt context.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeouts.Release)
		defer cancel()

		if res.Succeeded {
			if entry, logErr := r.sink.Append(id); logErr != nil {
				log.Error("Failed to save credentials.", zap.Error(logErr))
				if err == nil {
					err = fmt.Errorf("saving credentials: %w", logErr)
				}
			} else {
				res.Logged = true
				log.Info("Credentials saved to file.", zap.Time("timestamp", entry.Timestamp))
			}
		}

		if delay, pauseErr := r.pacer.Pause(ctx); pauseErr != nil {
			log.Warn("Settle delay before release interrupted.", zap.Duration("delay", delay), zap.Error(pauseErr))
		}

		res.State = driver.State()
		if closeErr := driver.Close(cleanupCtx); closeErr != nil {
			log.Warn("Browser session did not close cleanly.", zap.Error(closeErr))
		}
		res.Duration = time.Since(started)
		if err != nil {
			res.Error = err.Error()
		}
	}()

	if openErr := driver.OpenPage(ctx); openErr != nil {
		stepErr := &StepError{Step: PageOpened, Kind: Recovered, Err: openErr}
		log.Error("Could not open the sign-up page; not submitting.", zap.Error(stepErr))
		res.Error = stepErr.Error()
		return res, nil
	}

	if stepErr := r.fillFields(ctx, driver, id); stepErr != nil {
		res.Error = stepErr.Error()
		if ctx.Err() != nil {
			log.Error("Sign-up attempt cancelled before submission.", zap.Error(stepErr))
			return res, nil
		}
		log.Error("Form step failed; skipping the remaining fields and submitting.", zap.Error(stepErr))
	}

	if subErr := driver.Submit(ctx); subErr != nil {
		log.Error("Could not submit the form.", zap.Error(subErr))
		return res, &StepError{Step: Submitted, Kind: Fatal, Err: subErr}
	}

	res.Succeeded = true
	log.Info("Sign-up form submitted.")
	return res, nil
}

// fillFields runs the fill steps between opening the page and submitting,
// stopping at the first failure. The error is returned as a Recovered
// StepError naming the state that was not reached.
func (r *Runner) fillFields(ctx context.Context, d *FormDriver, id identity.Identity) error {
	steps := []struct {
		to  State
		run func(context.Context) error
	}{
		{NamesFilled, func(ctx context.Context) error { return d.FillIdentityFields(ctx, id) }},
		{NextClicked, d.AdvanceNext},
		{CredentialsFilled, func(ctx context.Context) error { return d.FillCredentialFields(ctx, id) }},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return &StepError{Step: step.to, Kind: Recovered, Err: err}
		}
	}
	return nil
}

// Describe renders a one-line summary of err for CLI output.
func Describe(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s (%s)", se.Err, se.Kind)
	}
	return err.Error()
}
