package breaker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeworks/go-resilience/testutil"
)

// changeRecorder collects deliveries for ordering assertions.
type changeRecorder struct {
	mu      sync.Mutex
	changes []StateChange
}

func (r *changeRecorder) record(ev StateChange) {
	r.mu.Lock()
	r.changes = append(r.changes, ev)
	r.mu.Unlock()
}

func (r *changeRecorder) snapshot() []StateChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StateChange, len(r.changes))
	copy(out, r.changes)
	return out
}

func TestExactlyOneNotificationPerTransition(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	clk := testutil.NewManualClock(time.Unix(1000, 0))
	cb := New("backend", ResourceConfig{FailureThreshold: 2, CoolDown: time.Second}, WithClock(clk))

	rec := &changeRecorder{}
	unsub := cb.OnStateChange(rec.record)
	defer unsub()

	// closed -> open
	_, _ = cb.Execute(context.Background(), failWith(statusErr(500)))
	_, _ = cb.Execute(context.Background(), failWith(statusErr(500)))
	// open -> half-open -> open (failed probe)
	clk.Advance(2 * time.Second)
	_, _ = cb.Execute(context.Background(), failWith(statusErr(500)))
	// open -> half-open -> closed (successful probe)
	clk.Advance(2 * time.Second)
	_, _ = cb.Execute(context.Background(), succeed)

	cb.Close() // drains the queue before returning

	got := rec.snapshot()
	require.Len(t, got, 5)

	type hop struct{ from, to State }
	want := []hop{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	for i, w := range want {
		assert.Equal(t, w.from, got[i].From, "hop %d from", i)
		assert.Equal(t, w.to, got[i].To, "hop %d to", i)
		assert.Equal(t, "backend", got[i].Resource)
	}
}

func TestNotificationCarriesFailureContext(t *testing.T) {
	clk := testutil.NewManualClock(time.Unix(1000, 0))
	cb := New("backend", ResourceConfig{FailureThreshold: 1}, WithClock(clk))

	rec := &changeRecorder{}
	cb.OnStateChange(rec.record)

	_, _ = cb.Execute(context.Background(), failWith(statusErr(503)))
	cb.Close()

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Failures)
	assert.Equal(t, clk.Now(), got[0].OpenedAt)
	require.Error(t, got[0].Err)
	var se statusErr
	assert.ErrorAs(t, got[0].Err, &se)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	cb := New("backend", ResourceConfig{FailureThreshold: 1})
	defer cb.Close()

	rec := &changeRecorder{}
	unsub := cb.OnStateChange(rec.record)
	unsub()
	unsub() // second call must be harmless

	_, _ = cb.Execute(context.Background(), failWith(statusErr(500)))
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestPanickingListenerDoesNotStallDelivery(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	cb := New("backend", ResourceConfig{FailureThreshold: 1})

	rec := &changeRecorder{}
	cb.OnStateChange(func(StateChange) { panic("bad listener") })
	cb.OnStateChange(rec.record)

	_, _ = cb.Execute(context.Background(), failWith(statusErr(500)))
	cb.Close()

	assert.Len(t, rec.snapshot(), 1)
}

func TestCloseIsIdempotent(t *testing.T) {
	cb := New("backend", ResourceConfig{FailureThreshold: 1})
	cb.Close()
	cb.Close()
}

func TestManagerFanIn(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	mgr, err := NewManager(Config{
		Default: ResourceConfig{FailureThreshold: 1, CoolDown: time.Second},
	})
	require.NoError(t, err)

	rec := &changeRecorder{}
	unsub := mgr.OnStateChange(rec.record)
	defer unsub()

	_, _ = mgr.Execute(context.Background(), "svc-a", failWith(statusErr(500)))
	_, _ = mgr.Execute(context.Background(), "svc-b", failWith(statusErr(500)))
	mgr.Close()

	got := rec.snapshot()
	require.Len(t, got, 2)
	resources := map[string]bool{}
	for _, ev := range got {
		resources[ev.Resource] = true
		assert.Equal(t, StateOpen, ev.To)
	}
	assert.True(t, resources["svc-a"])
	assert.True(t, resources["svc-b"])
}
