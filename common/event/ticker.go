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
	"sync/atomic"
	"time"
)

// PeriodicTicker is a callback that submits another callback to a queue while
// active is set. Driven by a repeating AsyncLoop it turns a queue callback into
// a periodic one; the callback itself still runs on the queue's goroutine.
type PeriodicTicker struct {
	queue    *Queue
	cb       Callback
	interval time.Duration
	active   *atomic.Bool
}

var (
	_ Callback   = (*PeriodicTicker)(nil)
	_ Intervaler = (*PeriodicTicker)(nil)
)

// NewPeriodicTicker returns a ticker submitting cb to queue every interval.
// Clearing active stops further submissions without touching work in flight.
func NewPeriodicTicker(queue *Queue, cb Callback, interval time.Duration, active *atomic.Bool) *PeriodicTicker {
	return &PeriodicTicker{
		queue:    queue,
		cb:       cb,
		interval: interval,
		active:   active,
	}
}

// Execute submits the wrapped callback if the ticker is active.
func (t *PeriodicTicker) Execute(_ context.Context) error {
	if !t.active.Load() {
		return nil
	}
	err := t.queue.Submit(t.cb)
	if errors.Is(err, ErrQueueClosed) && !t.active.Load() {
		// deactivated while submitting
		return nil
	}
	return err
}

// Interval returns the time between two submissions.
func (t *PeriodicTicker) Interval() time.Duration {
	return t.interval
}
