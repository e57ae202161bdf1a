// The MIT License (MIT)

// Copyright (c) 2017-2020 Uber Technologies Inc.

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"

	"github.com/yawfe/stormd/common/log/testlogger"
	"github.com/yawfe/stormd/common/metrics"
)

type (
	queueSuite struct {
		suite.Suite
		*require.Assertions

		scope tally.TestScope
		queue *Queue
	}

	recorder struct {
		sync.Mutex
		order []int
	}
)

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(queueSuite))
}

func (s *queueSuite) SetupTest() {
	s.Assertions = require.New(s.T())
	s.scope = tally.NewTestScope("", nil)
	s.queue = NewQueue("test-queue", testlogger.New(s.T()), WithQueueMetricsScope(s.scope))
}

func (s *queueSuite) TearDownTest() {
	s.queue.Shutdown(false)
	goleak.VerifyNone(s.T())
}

func (r *recorder) callback(i int) Callback {
	return CallbackFunc(func(context.Context) error {
		r.Lock()
		defer r.Unlock()
		r.order = append(r.order, i)
		return nil
	})
}

func (r *recorder) get() []int {
	r.Lock()
	defer r.Unlock()
	return append([]int(nil), r.order...)
}

func (s *queueSuite) TestRunsInSubmissionOrderOneAtATime() {
	var (
		inFlight    atomic.Int32
		overlapped  atomic.Bool
		rec         recorder
		numCallback = 200
	)
	s.queue.Start()
	for i := 0; i != numCallback; i++ {
		i := i
		s.NoError(s.queue.Submit(CallbackFunc(func(ctx context.Context) error {
			if inFlight.Add(1) != 1 {
				overlapped.Store(true)
			}
			defer inFlight.Add(-1)
			return rec.callback(i).Execute(ctx)
		})))
	}

	s.Eventually(func() bool { return len(rec.get()) == numCallback }, 5*time.Second, 5*time.Millisecond)
	for i, v := range rec.get() {
		s.Equal(i, v)
	}
	s.False(overlapped.Load(), "callbacks must never overlap")
}

func (s *queueSuite) TestSubmitBeforeStart() {
	var rec recorder
	s.NoError(s.queue.Submit(rec.callback(1)))
	s.NoError(s.queue.Submit(rec.callback(2)))
	s.Equal(2, s.queue.Len())

	s.queue.Start()
	s.Eventually(func() bool { return len(rec.get()) == 2 }, time.Second, time.Millisecond)
	s.Equal([]int{1, 2}, rec.get())
}

func (s *queueSuite) TestFailureDoesNotStopQueue() {
	var rec recorder
	s.queue.Start()
	s.NoError(s.queue.Submit(rec.callback(1)))
	s.NoError(s.queue.Submit(CallbackFunc(func(context.Context) error { return errors.New("boom") })))
	s.NoError(s.queue.Submit(CallbackFunc(func(context.Context) error { panic("kaboom") })))
	s.NoError(s.queue.Submit(rec.callback(2)))

	s.Eventually(func() bool { return len(rec.get()) == 2 }, time.Second, time.Millisecond)
	s.Equal([]int{1, 2}, rec.get())

	counters := s.scope.Snapshot().Counters()
	s.EqualValues(2, counters[metrics.EventQueueFailed+"+queue=test-queue"].Value())
	s.EqualValues(4, counters[metrics.EventQueueSubmitted+"+queue=test-queue"].Value())
}

func (s *queueSuite) TestFailFast() {
	var (
		killed  atomic.Int32
		killErr atomic.Value
		rec     recorder
	)
	s.queue = NewQueue("fail-fast", testlogger.New(s.T()), WithFailFast(func(err error) {
		killed.Add(1)
		killErr.Store(err)
	}))
	s.queue.Start()

	s.NoError(s.queue.Submit(rec.callback(1)))
	s.NoError(s.queue.Submit(CallbackFunc(func(context.Context) error { panic("kaboom") })))
	_ = s.queue.Submit(rec.callback(2))

	s.Eventually(func() bool { return killed.Load() == 1 }, time.Second, time.Millisecond)
	var panicErr *PanicError
	s.ErrorAs(killErr.Load().(error), &panicErr)
	s.Equal("kaboom", panicErr.Value)

	s.ErrorIs(s.queue.Submit(rec.callback(3)), ErrQueueClosed)
	s.Never(func() bool { return len(rec.get()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	s.Equal([]int{1}, rec.get())
	s.EqualValues(1, killed.Load())
}

// blockFirst submits a callback that blocks until the returned channel is closed,
// followed by three recorded callbacks.
func (s *queueSuite) blockFirst(rec *recorder) (started chan struct{}, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	s.NoError(s.queue.Submit(CallbackFunc(func(context.Context) error {
		close(started)
		<-release
		return nil
	})))
	for i := 1; i <= 3; i++ {
		s.NoError(s.queue.Submit(rec.callback(i)))
	}
	return started, release
}

func (s *queueSuite) TestShutdownWithDrain() {
	var rec recorder
	s.queue.Start()
	started, release := s.blockFirst(&rec)
	<-started

	stopped := make(chan struct{})
	go func() {
		s.queue.Shutdown(true)
		close(stopped)
	}()
	s.Eventually(s.queue.isShuttingDown, time.Second, time.Millisecond)
	s.ErrorIs(s.queue.Submit(rec.callback(4)), ErrQueueClosed)

	close(release)
	<-stopped
	s.Equal([]int{1, 2, 3}, rec.get())
}

func (s *queueSuite) TestShutdownWithoutDrain() {
	var rec recorder
	s.queue.Start()
	started, release := s.blockFirst(&rec)
	<-started

	stopped := make(chan struct{})
	go func() {
		s.queue.Shutdown(false)
		close(stopped)
	}()
	s.Eventually(s.queue.isShuttingDown, time.Second, time.Millisecond)

	close(release)
	<-stopped
	s.Empty(rec.get(), "in-flight callback completes, pending ones are dropped")
	s.Equal(0, s.queue.Len())
}

func (s *queueSuite) TestShutdownBeforeStart() {
	s.queue.Shutdown(true)
	s.ErrorIs(s.queue.Submit(CallbackFunc(func(context.Context) error { return nil })), ErrQueueClosed)
	s.queue.Start()
	s.True(s.queue.isStopped())
}
