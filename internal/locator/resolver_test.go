// internal/locator/resolver_test.go
package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// scriptedWaiter resolves the candidates listed in found immediately and
// blocks every other candidate until its context expires.
type scriptedWaiter struct {
	found   map[Candidate]cdp.NodeID
	failing map[Candidate]error
	calls   []Candidate
}

func (w *scriptedWaiter) WaitClickable(ctx context.Context, c Candidate) (Element, error) {
	w.calls = append(w.calls, c)
	if id, ok := w.found[c]; ok {
		return Element{Locator: c, Node: &cdp.Node{NodeID: id}}, nil
	}
	if err, ok := w.failing[c]; ok {
		return Element{}, err
	}
	<-ctx.Done()
	return Element{}, ctx.Err()
}

var (
	candA = Candidate{Strategy: ByIdentifier, Expression: "next"}
	candB = Candidate{Strategy: ByText, Expression: "Next"}
	candC = Candidate{Strategy: ByAttribute, Expression: "aria-label=Next"}
)

func newObservedResolver(w ClickableWaiter) (*Resolver, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewResolver(zap.New(core), w), logs
}

func TestResolveClickable_FirstMatchWins(t *testing.T) {
	w := &scriptedWaiter{found: map[Candidate]cdp.NodeID{candA: 1, candC: 3}}
	r, _ := newObservedResolver(w)

	el, err := r.ResolveClickable(context.Background(), "next button", []Candidate{candA, candB, candC}, 50*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, candA, el.Locator)
	assert.Equal(t, cdp.NodeID(1), el.Node.NodeID)
	assert.Equal(t, []Candidate{candA}, w.calls, "later candidates must not be consulted")
}

func TestResolveClickable_FallsBackInOrder(t *testing.T) {
	w := &scriptedWaiter{found: map[Candidate]cdp.NodeID{candC: 3}}
	r, logs := newObservedResolver(w)

	el, err := r.ResolveClickable(context.Background(), "next button", []Candidate{candA, candB, candC}, 20*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, candC, el.Locator)
	assert.Equal(t, []Candidate{candA, candB, candC}, w.calls)
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len(), "each miss is logged as a warning")
}

func TestResolveClickable_AllTimeOut(t *testing.T) {
	w := &scriptedWaiter{}
	r, logs := newObservedResolver(w)
	chain := []Candidate{candA, candB, candC}

	_, err := r.ResolveClickable(context.Background(), "next button", chain, 10*time.Millisecond)
	require.Error(t, err)

	var notFound *ElementNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, chain, notFound.Candidates)
	assert.Contains(t, err.Error(), "id:next")
	assert.Contains(t, err.Error(), "text:Next")
	assert.Contains(t, err.Error(), "attribute:aria-label=Next")
	assert.Equal(t, 3, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestResolveClickable_NonTimeoutErrorStops(t *testing.T) {
	boom := errors.New("protocol failure")
	w := &scriptedWaiter{failing: map[Candidate]error{candA: boom}, found: map[Candidate]cdp.NodeID{candB: 2}}
	r, _ := newObservedResolver(w)

	_, err := r.ResolveClickable(context.Background(), "next button", []Candidate{candA, candB}, 20*time.Millisecond)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Candidate{candA}, w.calls)
}

func TestResolveClickable_ParentCancelled(t *testing.T) {
	w := &scriptedWaiter{}
	r, _ := newObservedResolver(w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ResolveClickable(ctx, "next button", []Candidate{candA, candB}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, w.calls, 1)
}
