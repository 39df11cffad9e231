// internal/locator/resolver.go
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClickableWaiter blocks until the element described by a candidate is
// clickable or ctx is done.
type ClickableWaiter interface {
	WaitClickable(ctx context.Context, c Candidate) (Element, error)
}

// ElementNotFoundError is returned when every candidate in a chain timed out.
type ElementNotFoundError struct {
	Purpose    string
	Candidates []Candidate
}

func (e *ElementNotFoundError) Error() string {
	tried := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		tried[i] = c.String()
	}
	return fmt.Sprintf("could not locate %s with any of %d locators: [%s]",
		e.Purpose, len(e.Candidates), strings.Join(tried, ", "))
}

// Resolver walks an ordered fallback chain of candidates.
type Resolver struct {
	logger *zap.Logger
	waiter ClickableWaiter
}

// NewResolver creates a resolver that queries the page through w.
func NewResolver(logger *zap.Logger, w ClickableWaiter) *Resolver {
	return &Resolver{logger: logger.Named("locator"), waiter: w}
}

// ResolveClickable returns the element of the first candidate that becomes
// clickable within timeoutPerCandidate. Later candidates are not consulted
// once one succeeds. A per-candidate timeout is logged and skipped; any other
// failure, including cancellation of ctx itself, ends the walk.
func (r *Resolver) ResolveClickable(ctx context.Context, purpose string, candidates []Candidate, timeoutPerCandidate time.Duration) (Element, error) {
	for _, c := range candidates {
		el, err := r.try(ctx, c, timeoutPerCandidate)
		if err == nil {
			r.logger.Info("Element located.", zap.String("purpose", purpose), zap.Stringer("locator", c))
			return el, nil
		}
		if ctx.Err() != nil {
			return Element{}, ctx.Err()
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return Element{}, fmt.Errorf("locating %s with %s: %w", purpose, c, err)
		}
		r.logger.Warn("Element not found with locator.",
			zap.String("purpose", purpose),
			zap.Stringer("locator", c),
			zap.Duration("timeout", timeoutPerCandidate))
	}
	return Element{}, &ElementNotFoundError{Purpose: purpose, Candidates: append([]Candidate(nil), candidates...)}
}

func (r *Resolver) try(ctx context.Context, c Candidate, timeout time.Duration) (Element, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := r.waiter.WaitClickable(cctx, c)
	if err != nil && cctx.Err() == context.DeadlineExceeded && !errors.Is(err, context.DeadlineExceeded) {
		// Some waiters surface the expiry as their own error type.
		err = fmt.Errorf("%v: %w", err, context.DeadlineExceeded)
	}
	return el, err
}
