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
	"time"

	"github.com/jonboulle/clockwork"
)

type (
	// Ticker is the subset of time.Ticker used by daemons, backed by clockwork so tests can drive it.
	Ticker interface {
		Chan() <-chan time.Time
		Reset(d time.Duration)
		Stop()
	}

	// Timer is the subset of time.Timer used by daemons.
	Timer interface {
		Chan() <-chan time.Time
		Reset(d time.Duration) bool
		Stop() bool
	}

	// TimeSource is an interface for any entity that provides the current time.
	// Its primary purpose is to mock out time sources in unit tests.
	TimeSource interface {
		After(d time.Duration) <-chan time.Time
		AfterFunc(d time.Duration, f func()) Timer
		Now() time.Time
		Since(t time.Time) time.Duration
		Sleep(d time.Duration)
		NewTicker(d time.Duration) Ticker
		NewTimer(d time.Duration) Timer
	}

	// MockedTimeSource is a TimeSource whose time only moves when Advance is called.
	MockedTimeSource interface {
		TimeSource
		// BlockUntil blocks until the given number of timers, tickers or sleepers are waiting on the clock.
		BlockUntil(waiters int)
		// Advance moves the clock forward, firing every timer that became due.
		Advance(d time.Duration)
	}

	fakeClock interface {
		clockwork.Clock
		Advance(d time.Duration)
		BlockUntil(n int)
	}

	clock struct {
		wrapped clockwork.Clock
	}

	mockedClock struct {
		clock
		fake fakeClock
	}
)

// NewRealTimeSource returns a time source that reads the wall clock.
func NewRealTimeSource() TimeSource {
	return &clock{wrapped: clockwork.NewRealClock()}
}

// NewMockedTimeSource returns a time source that starts at an arbitrary fixed time.
func NewMockedTimeSource() MockedTimeSource {
	return newMockedClock(clockwork.NewFakeClock())
}

// NewMockedTimeSourceAt returns a mocked time source starting at t.
func NewMockedTimeSourceAt(t time.Time) MockedTimeSource {
	return newMockedClock(clockwork.NewFakeClockAt(t))
}

func newMockedClock(fake fakeClock) MockedTimeSource {
	return &mockedClock{
		clock: clock{wrapped: fake},
		fake:  fake,
	}
}

func (c *clock) After(d time.Duration) <-chan time.Time {
	return c.wrapped.After(d)
}

func (c *clock) AfterFunc(d time.Duration, f func()) Timer {
	return c.wrapped.AfterFunc(d, f)
}

func (c *clock) Now() time.Time {
	return c.wrapped.Now()
}

func (c *clock) Since(t time.Time) time.Duration {
	return c.wrapped.Since(t)
}

func (c *clock) Sleep(d time.Duration) {
	c.wrapped.Sleep(d)
}

func (c *clock) NewTicker(d time.Duration) Ticker {
	return c.wrapped.NewTicker(d)
}

func (c *clock) NewTimer(d time.Duration) Timer {
	return c.wrapped.NewTimer(d)
}

func (m *mockedClock) BlockUntil(waiters int) {
	m.fake.BlockUntil(waiters)
}

func (m *mockedClock) Advance(d time.Duration) {
	m.fake.Advance(d)
}
