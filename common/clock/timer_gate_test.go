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

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type (
	timerGateSuite struct {
		suite.Suite
		*require.Assertions

		timeSource MockedTimeSource
		timerGate  TimerGate
	}
)

func TestTimerGateSuite(t *testing.T) {
	s := new(timerGateSuite)
	suite.Run(t, s)
}

func (s *timerGateSuite) SetupTest() {
	s.Assertions = require.New(s.T())

	s.timeSource = NewMockedTimeSource()
	s.timerGate = NewTimerGate(s.timeSource)
}

func (s *timerGateSuite) TearDownTest() {
	s.timerGate.Stop()
}

func (s *timerGateSuite) requireFired() {
	select {
	case <-s.timerGate.Chan():
	case <-time.After(time.Second):
		s.Fail("timer gate should have fired")
	}
}

func (s *timerGateSuite) requireNotFired() {
	select {
	case <-s.timerGate.Chan():
		s.Fail("timer gate should not have fired")
	default:
	}
}

func (s *timerGateSuite) TestFire() {
	now := s.timeSource.Now()
	s.True(s.timerGate.Update(now.Add(time.Second)))
	s.Equal(now.Add(time.Second), s.timerGate.FireTime())

	s.timeSource.Advance(999 * time.Millisecond)
	s.requireNotFired()
	s.timeSource.Advance(time.Millisecond)
	s.requireFired()
}

func (s *timerGateSuite) TestUpdateSooner() {
	now := s.timeSource.Now()
	s.True(s.timerGate.Update(now.Add(5 * time.Second)))
	s.True(s.timerGate.Update(now.Add(time.Second)))

	s.timeSource.Advance(time.Second)
	s.requireFired()
}

func (s *timerGateSuite) TestUpdateLaterIsIgnoredWhilePending() {
	now := s.timeSource.Now()
	s.True(s.timerGate.Update(now.Add(time.Second)))
	s.False(s.timerGate.Update(now.Add(3 * time.Second)))
	s.Equal(now.Add(time.Second), s.timerGate.FireTime())

	s.timeSource.Advance(time.Second)
	s.requireFired()
}

func (s *timerGateSuite) TestUpdateInThePastFiresImmediately() {
	now := s.timeSource.Now()
	s.True(s.timerGate.Update(now.Add(9 * time.Second)))
	s.True(s.timerGate.Update(now.Add(-time.Second)))
	s.requireFired()
}

func (s *timerGateSuite) TestUpdateAfterFire() {
	now := s.timeSource.Now()
	s.True(s.timerGate.Update(now.Add(-5 * time.Second)))
	s.requireFired()

	s.True(s.timerGate.Update(now.Add(time.Second)))
	s.timeSource.Advance(time.Second)
	s.requireFired()
}

func (s *timerGateSuite) TestStop() {
	now := s.timeSource.Now()
	s.True(s.timerGate.Update(now.Add(time.Second)))
	s.True(s.timerGate.FireAfter(now))
	s.timerGate.Stop()
	s.False(s.timerGate.FireAfter(now))
	s.True(s.timerGate.FireTime().IsZero())

	s.timeSource.Advance(2 * time.Second)
	s.requireNotFired()

	s.True(s.timerGate.Update(s.timeSource.Now().Add(time.Second)))
	s.timeSource.Advance(time.Second)
	s.requireFired()
}
