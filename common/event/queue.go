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
	"time"

	"github.com/uber-go/tally"

	"github.com/yawfe/stormd/common"
	"github.com/yawfe/stormd/common/collection"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/metrics"
)

const defaultQueueStopTimeout = time.Minute

type (
	// Queue runs submitted callbacks one at a time, in submission order, on a
	// single goroutine. Submit never blocks and the queue is unbounded.
	Queue struct {
		name        string
		status      int32
		fifo        collection.Queue[Callback]
		notifyCh    chan struct{}
		shutdownCh  chan struct{}
		drainOnStop atomic.Bool
		workerWG    sync.WaitGroup
		ctx         context.Context
		cancel      context.CancelFunc

		kill        KillFunc
		killOnce    sync.Once
		stopTimeout time.Duration

		logger log.Logger
		scope  tally.Scope
	}

	// QueueOption configures a Queue.
	QueueOption func(*Queue)
)

// WithFailFast makes the first failing callback stop the queue and invoke kill.
// Without it failures are logged and the queue keeps going.
func WithFailFast(kill KillFunc) QueueOption {
	return func(q *Queue) {
		q.kill = kill
	}
}

// WithQueueMetricsScope reports queue metrics to scope.
func WithQueueMetricsScope(scope tally.Scope) QueueOption {
	return func(q *Queue) {
		q.scope = scope
	}
}

// WithQueueStopTimeout bounds how long Shutdown waits for the worker.
func WithQueueStopTimeout(timeout time.Duration) QueueOption {
	return func(q *Queue) {
		q.stopTimeout = timeout
	}
}

// NewQueue creates a queue. Callbacks may be submitted before Start; they run once it is started.
func NewQueue(name string, logger log.Logger, opts ...QueueOption) *Queue {
	q := &Queue{
		name:        name,
		status:      common.DaemonStatusInitialized,
		fifo:        collection.NewConcurrentQueue[Callback](),
		notifyCh:    make(chan struct{}, 1),
		shutdownCh:  make(chan struct{}),
		stopTimeout: defaultQueueStopTimeout,
		logger:      logger.WithTags(tag.ComponentEventQueue, tag.QueueName(name)),
		scope:       tally.NoopScope,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.scope = q.scope.Tagged(map[string]string{metrics.QueueTag: name})
	q.ctx, q.cancel = context.WithCancel(context.Background())
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Start launches the worker goroutine.
func (q *Queue) Start() {
	if !atomic.CompareAndSwapInt32(&q.status, common.DaemonStatusInitialized, common.DaemonStatusStarted) {
		return
	}

	q.workerWG.Add(1)
	go q.worker()
	q.logger.Info("Event queue started.")
}

// Stop shuts the queue down after running everything already submitted.
func (q *Queue) Stop() {
	q.Shutdown(true)
}

// Shutdown stops accepting callbacks. With drain the worker runs the callbacks
// already queued before exiting, otherwise they are dropped. A callback that is
// running when Shutdown is called always completes.
func (q *Queue) Shutdown(drain bool) {
	if atomic.CompareAndSwapInt32(&q.status, common.DaemonStatusInitialized, common.DaemonStatusStopped) {
		q.cancel()
		return
	}
	if !atomic.CompareAndSwapInt32(&q.status, common.DaemonStatusStarted, common.DaemonStatusStopped) {
		return
	}

	q.drainOnStop.Store(drain)
	close(q.shutdownCh)

	if success := common.AwaitWaitGroup(&q.workerWG, q.stopTimeout); !success {
		q.logger.Warn("Event queue timed out on shutdown.", tag.Timeout(q.stopTimeout))
	}
	q.logger.Info("Event queue shutdown.")
}

// Submit appends cb to the queue.
func (q *Queue) Submit(cb Callback) error {
	if q.isStopped() {
		return ErrQueueClosed
	}

	q.fifo.Add(cb)
	q.scope.Counter(metrics.EventQueueSubmitted).Inc(1)
	select {
	case q.notifyCh <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of callbacks waiting to run.
func (q *Queue) Len() int {
	return q.fifo.Len()
}

func (q *Queue) isStopped() bool {
	return atomic.LoadInt32(&q.status) == common.DaemonStatusStopped
}

func (q *Queue) isShuttingDown() bool {
	select {
	case <-q.shutdownCh:
		return true
	default:
		return false
	}
}

func (q *Queue) worker() {
	defer q.workerWG.Done()
	defer q.cancel()

	for {
		select {
		case <-q.notifyCh:
			if !q.runAvailable() {
				return
			}
		case <-q.shutdownCh:
			if q.drainOnStop.Load() {
				q.runAvailable()
				return
			}
			if dropped := q.fifo.RemoveAll(); len(dropped) > 0 {
				q.scope.Counter(metrics.EventQueueDropped).Inc(int64(len(dropped)))
				q.logger.Info("Event queue dropped pending callbacks on shutdown.", tag.Counter(len(dropped)))
			}
			return
		}
	}
}

// runAvailable runs queued callbacks until the queue is empty or a shutdown
// without drain is requested. It returns false when the worker has to exit.
func (q *Queue) runAvailable() bool {
	for {
		if q.isShuttingDown() && !q.drainOnStop.Load() {
			return true
		}
		cb, err := q.fifo.Remove()
		if err != nil {
			return true
		}
		if !q.run(cb) {
			return false
		}
	}
}

func (q *Queue) run(cb Callback) bool {
	sw := q.scope.Timer(metrics.EventQueueLatency).Start()
	err := safeExecute(q.ctx, cb)
	sw.Stop()
	q.scope.Gauge(metrics.EventQueueLength).Update(float64(q.fifo.Len()))

	if err == nil {
		q.scope.Counter(metrics.EventQueueExecuted).Inc(1)
		return true
	}

	q.scope.Counter(metrics.EventQueueFailed).Inc(1)
	if q.kill == nil {
		q.logger.Error("Event queue callback failed.", failureTags(err)...)
		return true
	}

	q.logger.Error("Event queue callback failed, stopping queue.", failureTags(err)...)
	atomic.StoreInt32(&q.status, common.DaemonStatusStopped)
	q.killOnce.Do(func() {
		q.kill(err)
	})
	return false
}

func failureTags(err error) []tag.Tag {
	tags := []tag.Tag{tag.Error(err)}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		tags = append(tags, tag.Panic(panicErr.Value), tag.Dynamic("stack", string(panicErr.Stack)))
	}
	return tags
}
