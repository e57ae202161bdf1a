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
	"sync"
	"sync/atomic"
	"time"

	"github.com/uber-go/tally"

	"github.com/yawfe/stormd/common"
	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/metrics"
)

const defaultLoopStopTimeout = 10 * time.Second

type (
	// AsyncLoop runs a callback on its own goroutine, once or repeatedly with a
	// sleep between runs. The first error or panic invokes the kill function
	// exactly once and ends the loop.
	AsyncLoop struct {
		name     string
		cb       Callback
		repeat   bool
		interval time.Duration

		status     int32
		shutdownCh chan struct{}
		wg         sync.WaitGroup
		ctx        context.Context
		cancel     context.CancelFunc

		kill        KillFunc
		killOnce    sync.Once
		stopTimeout time.Duration

		logger     log.Logger
		scope      tally.Scope
		timeSource clock.TimeSource
	}

	// LoopOption configures an AsyncLoop.
	LoopOption func(*AsyncLoop)
)

// WithRepeat makes the loop run the callback again after sleeping. The sleep
// is the callback's own Interval when it implements Intervaler, otherwise interval.
func WithRepeat(interval time.Duration) LoopOption {
	return func(l *AsyncLoop) {
		l.repeat = true
		l.interval = interval
	}
}

// WithKillFunc replaces the default kill function, which halts the process.
func WithKillFunc(kill KillFunc) LoopOption {
	return func(l *AsyncLoop) {
		l.kill = kill
	}
}

// WithLoopTimeSource sets the clock the loop sleeps on.
func WithLoopTimeSource(timeSource clock.TimeSource) LoopOption {
	return func(l *AsyncLoop) {
		l.timeSource = timeSource
	}
}

// WithLoopMetricsScope reports loop metrics to scope.
func WithLoopMetricsScope(scope tally.Scope) LoopOption {
	return func(l *AsyncLoop) {
		l.scope = scope
	}
}

// NewAsyncLoop creates a loop around cb. It does nothing until Start.
func NewAsyncLoop(name string, cb Callback, logger log.Logger, opts ...LoopOption) *AsyncLoop {
	l := &AsyncLoop{
		name:        name,
		cb:          cb,
		status:      common.DaemonStatusInitialized,
		shutdownCh:  make(chan struct{}),
		stopTimeout: defaultLoopStopTimeout,
		logger:      logger.WithTags(tag.ComponentAsyncLoop, tag.Name(name)),
		scope:       tally.NoopScope,
		timeSource:  clock.NewRealTimeSource(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.kill == nil {
		l.kill = NewDefaultKillFunc(name, logger)
	}
	l.scope = l.scope.Tagged(map[string]string{metrics.LoopTag: name})
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l
}

// Start runs the callback for the first time right away.
func (l *AsyncLoop) Start() {
	if !atomic.CompareAndSwapInt32(&l.status, common.DaemonStatusInitialized, common.DaemonStatusStarted) {
		return
	}

	l.wg.Add(1)
	go l.run()
	l.logger.Info("Async loop started.")
}

// Stop interrupts the sleep, cancels the context passed to the callback and
// waits for the goroutine to exit.
func (l *AsyncLoop) Stop() {
	if !atomic.CompareAndSwapInt32(&l.status, common.DaemonStatusStarted, common.DaemonStatusStopped) {
		return
	}

	close(l.shutdownCh)
	l.cancel()

	if success := common.AwaitWaitGroup(&l.wg, l.stopTimeout); !success {
		l.logger.Warn("Async loop timed out on shutdown.", tag.Timeout(l.stopTimeout))
	}
	l.logger.Info("Async loop stopped.")
}

func (l *AsyncLoop) stopping() bool {
	select {
	case <-l.shutdownCh:
		return true
	default:
		return false
	}
}

func (l *AsyncLoop) nextInterval() time.Duration {
	if i, ok := l.cb.(Intervaler); ok {
		return i.Interval()
	}
	return l.interval
}

func (l *AsyncLoop) run() {
	defer l.wg.Done()
	defer l.cancel()

	for {
		err := safeExecute(l.ctx, l.cb)
		l.scope.Counter(metrics.AsyncLoopRuns).Inc(1)
		if err != nil {
			if l.stopping() {
				l.logger.Info("Async loop callback failed during shutdown.", tag.Error(err))
				return
			}
			l.logger.Error("Async loop callback failed, invoking kill function.", failureTags(err)...)
			l.scope.Counter(metrics.AsyncLoopKilled).Inc(1)
			l.killOnce.Do(func() {
				l.kill(err)
			})
			return
		}

		if !l.repeat {
			return
		}

		select {
		case <-l.timeSource.After(l.nextInterval()):
		case <-l.shutdownCh:
			return
		}
		if l.stopping() {
			return
		}
	}
}
