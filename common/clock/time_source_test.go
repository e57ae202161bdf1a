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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSustain(t *testing.T) {
	ts := NewMockedTimeSource()
	window := 10 * time.Second
	s := NewSustain(ts, func() time.Duration { return window })

	assert.False(t, s.Check(true))
	ts.Advance(5 * time.Second)
	assert.False(t, s.Check(true))
	assert.Equal(t, 5*time.Second, s.Held())

	ts.Advance(5 * time.Second)
	assert.True(t, s.Check(true))

	assert.False(t, s.Check(false))
	assert.Zero(t, s.Held())
	assert.False(t, s.Check(true))

	window = time.Second
	ts.Advance(time.Second)
	assert.True(t, s.Check(true), "duration is re-read on each check")
}

func TestMockedTimeSource(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := NewMockedTimeSourceAt(start)
	assert.Equal(t, start, ts.Now())

	timer := ts.NewTimer(time.Minute)
	fired := make(chan time.Time, 1)
	go func() {
		fired <- <-timer.Chan()
	}()

	ts.BlockUntil(1)
	ts.Advance(time.Minute)
	select {
	case at := <-fired:
		assert.Equal(t, start.Add(time.Minute), at)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire after advance")
	}
	assert.Equal(t, time.Minute, ts.Since(start))
}
