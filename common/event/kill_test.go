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
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yawfe/stormd/common/log/testlogger"
)

type captureTransport struct {
	sync.Mutex
	events []*sentry.Event
}

func (t *captureTransport) Configure(sentry.ClientOptions)        {}
func (t *captureTransport) Flush(time.Duration) bool              { return true }
func (t *captureTransport) FlushWithContext(context.Context) bool { return true }
func (t *captureTransport) Close()                                {}

func (t *captureTransport) SendEvent(event *sentry.Event) {
	t.Lock()
	defer t.Unlock()
	t.events = append(t.events, event)
}

func stubHalt(t *testing.T) *[]int {
	codes := &[]int{}
	original := halt
	halt = func(code int) { *codes = append(*codes, code) }
	t.Cleanup(func() { halt = original })
	return codes
}

func TestDefaultKillFunc(t *testing.T) {
	codes := stubHalt(t)

	kill := NewDefaultKillFunc("heartbeat", testlogger.New(t), WithSentryHub(sentry.NewHub(nil, sentry.NewScope())))
	kill(errors.New("store unreachable"))

	assert.Equal(t, []int{KillExitCode}, *codes)
}

func TestDefaultKillFunc_ReportsToSentry(t *testing.T) {
	codes := stubHalt(t)

	transport := &captureTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:       "https://public@sentry.example.com/1",
		Transport: transport,
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())

	kill := NewDefaultKillFunc("sync-processes", testlogger.New(t), WithSentryHub(hub), WithSentryFlushTimeout(time.Second))
	kill(errors.New("worker launch failed"))

	assert.Equal(t, []int{KillExitCode}, *codes)
	transport.Lock()
	defer transport.Unlock()
	require.Len(t, transport.events, 1)
	assert.Equal(t, "sync-processes", transport.events[0].Tags["component"])
	require.NotEmpty(t, transport.events[0].Exception)
	assert.Equal(t, "worker launch failed", transport.events[0].Exception[0].Value)
}
