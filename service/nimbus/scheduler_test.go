package nimbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/log/testlogger"
)

type firedEvents struct {
	sync.Mutex
	events []DelayedEvent
}

func (f *firedEvents) fire(ev DelayedEvent) {
	f.Lock()
	defer f.Unlock()
	f.events = append(f.events, ev)
}

func (f *firedEvents) get() []DelayedEvent {
	f.Lock()
	defer f.Unlock()
	return append([]DelayedEvent(nil), f.events...)
}

func runScheduler(t *testing.T) (*delayedEventScheduler, clock.MockedTimeSource, *firedEvents) {
	ts := clock.NewMockedTimeSource()
	fired := &firedEvents{}
	s := newDelayedEventScheduler(ts, fired.fire, testlogger.New(t), tally.NoopScope)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, s.Run(ctx))
	}()
	// cleanups run last-in first-out, so the leak check sees Run stopped
	t.Cleanup(func() { goleak.VerifyNone(t) })
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, ts, fired
}

func TestScheduler_FiresInOrder(t *testing.T) {
	s, ts, fired := runScheduler(t)

	s.Schedule("b", EventRemove, 20)
	s.Schedule("a", EventDoRebalance, 10)

	ts.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return len(fired.get()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "a", fired.get()[0].TopologyID)

	ts.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return len(fired.get()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "b", fired.get()[1].TopologyID)
	assert.Equal(t, EventRemove, fired.get()[1].Event)
}

func TestScheduler_Supersede(t *testing.T) {
	s, ts, fired := runScheduler(t)

	first := s.Schedule("wc-1", EventRemove, 20)
	ts.Advance(10 * time.Second)
	second := s.Schedule("wc-1", EventRemove, 5)
	assert.NotEqual(t, first.generation, second.generation)

	pending, ok := s.Pending("wc-1")
	require.True(t, ok)
	assert.Equal(t, second.FireAt, pending.FireAt)

	ts.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return len(fired.get()) == 1 }, time.Second, time.Millisecond)

	// the first deadline passes without a second fire
	ts.Advance(10 * time.Second)
	assert.Never(t, func() bool { return len(fired.get()) != 1 }, 20*time.Millisecond, time.Millisecond)

	assert.False(t, s.Claim(first))
	assert.True(t, s.Claim(fired.get()[0]))
	assert.False(t, s.Claim(fired.get()[0]))
}

func TestScheduler_ClaimAfterSupersedeOfFiredEvent(t *testing.T) {
	s, ts, fired := runScheduler(t)

	s.Schedule("wc-1", EventRemove, 5)
	ts.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return len(fired.get()) == 1 }, time.Second, time.Millisecond)

	// a newer transition lands before the fired event is executed
	s.Schedule("wc-1", EventRemove, 30)
	assert.False(t, s.Claim(fired.get()[0]))

	_, ok := s.Pending("wc-1")
	assert.True(t, ok)
}

func TestScheduler_Cancel(t *testing.T) {
	s, ts, fired := runScheduler(t)

	s.Schedule("wc-1", EventRemove, 5)
	s.Cancel("wc-1")
	s.Cancel("unknown")

	_, ok := s.Pending("wc-1")
	assert.False(t, ok)

	ts.Advance(time.Minute)
	assert.Never(t, func() bool { return len(fired.get()) != 0 }, 20*time.Millisecond, time.Millisecond)
}

func TestScheduler_ZeroDelay(t *testing.T) {
	s, _, fired := runScheduler(t)

	s.Schedule("wc-1", EventRemove, 0)
	require.Eventually(t, func() bool { return len(fired.get()) == 1 }, time.Second, time.Millisecond)
}
