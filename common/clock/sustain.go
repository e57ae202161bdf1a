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

import "time"

// Sustain reports whether a condition has held continuously for a duration.
// The duration is read on every check, so it may depend on caller state.
type Sustain struct {
	since    time.Time
	source   TimeSource
	duration func() time.Duration
}

// NewSustain returns a Sustain that has not observed the condition yet.
func NewSustain(source TimeSource, duration func() time.Duration) Sustain {
	return Sustain{
		source:   source,
		duration: duration,
	}
}

// Check records one observation and returns true once the condition has held
// for at least the duration. A false observation restarts the window.
func (s *Sustain) Check(holds bool) bool {
	if !holds {
		s.Reset()
		return false
	}
	now := s.source.Now()
	if s.since.IsZero() {
		s.since = now
	}
	return now.Sub(s.since) >= s.duration()
}

// Held returns how long the condition has held so far.
func (s *Sustain) Held() time.Duration {
	if s.since.IsZero() {
		return 0
	}
	return s.source.Since(s.since)
}

// Reset forgets every observation.
func (s *Sustain) Reset() {
	s.since = time.Time{}
}
