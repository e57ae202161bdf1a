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

package clock

import (
	"sync"
	"time"
)

type (
	// TimerGate fires once at the earliest time it has been armed with.
	// Arming it with a later time while it is pending is a no-op, so a
	// single gate can front any number of deadlines.
	TimerGate interface {
		// Chan fires when the armed time is reached.
		Chan() <-chan time.Time
		// FireAfter reports whether the gate is armed for a time after t.
		FireAfter(t time.Time) bool
		// FireTime returns the time the gate is armed for, zero when idle.
		FireTime() time.Time
		// Update arms the gate. It returns true when the gate was idle or
		// the new time is sooner than the armed one.
		Update(t time.Time) bool
		// Stop disarms the gate.
		Stop()
	}

	timerGate struct {
		sync.RWMutex
		timeSource TimeSource
		timer      Timer
		fireTime   time.Time
	}
)

// NewTimerGate returns an idle gate driven by timeSource.
func NewTimerGate(timeSource TimeSource) TimerGate {
	g := &timerGate{
		timer:      timeSource.NewTimer(0),
		timeSource: timeSource,
	}
	if !g.timer.Stop() {
		<-g.timer.Chan()
	}
	return g
}

func (g *timerGate) Chan() <-chan time.Time {
	return g.timer.Chan()
}

func (g *timerGate) FireAfter(now time.Time) bool {
	g.RLock()
	defer g.RUnlock()
	return g.fireTime.After(now)
}

func (g *timerGate) FireTime() time.Time {
	g.RLock()
	defer g.RUnlock()
	return g.fireTime
}

func (g *timerGate) Stop() {
	g.Lock()
	defer g.Unlock()
	g.fireTime = time.Time{}
	g.timer.Stop()
	g.drain()
}

func (g *timerGate) Update(fireTime time.Time) bool {
	g.Lock()
	defer g.Unlock()
	if g.timer.Stop() && g.fireTime.Before(fireTime) {
		// still pending and sooner than the requested time
		g.timer.Reset(g.fireTime.Sub(g.timeSource.Now()))
		return false
	}
	g.drain()
	g.fireTime = fireTime
	g.timer.Reset(fireTime.Sub(g.timeSource.Now()))
	return true
}

func (g *timerGate) drain() {
	select {
	case <-g.timer.Chan():
	default:
	}
}
