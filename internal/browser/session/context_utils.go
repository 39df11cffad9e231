// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// CombineContext derives a context from tabCtx, which carries the chromedp
// target, that is also cancelled when opCtx is done. Values and the deadline
// of tabCtx are inherited; the deadline of opCtx is enforced through
// cancellation, so callers map the outcome back with opError.
func CombineContext(tabCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tabCtx)
	stop := context.AfterFunc(opCtx, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// opError prefers the operational context's error so that an expired wait
// reports context.DeadlineExceeded rather than the derived cancellation.
func opError(opCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := opCtx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
