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
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
)

const (
	// KillExitCode is the process exit code used by the default kill function.
	KillExitCode = 1

	defaultSentryFlushTimeout = 2 * time.Second
)

// halt terminates the process.
var halt = os.Exit

type (
	killConfig struct {
		hub          *sentry.Hub
		flushTimeout time.Duration
		exitCode     int
	}

	// KillOption configures the default kill function.
	KillOption func(*killConfig)
)

// WithSentryHub reports the failure to hub before halting.
// By default the global hub is used when it has a client.
func WithSentryHub(hub *sentry.Hub) KillOption {
	return func(c *killConfig) {
		c.hub = hub
	}
}

// WithSentryFlushTimeout bounds how long the report may take to be sent.
func WithSentryFlushTimeout(timeout time.Duration) KillOption {
	return func(c *killConfig) {
		c.flushTimeout = timeout
	}
}

// NewDefaultKillFunc returns the kill function daemons use for their
// supervisory loops and fail-fast queues: log, report to Sentry, halt.
func NewDefaultKillFunc(name string, logger log.Logger, opts ...KillOption) KillFunc {
	cfg := killConfig{
		flushTimeout: defaultSentryFlushTimeout,
		exitCode:     KillExitCode,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(err error) {
		logger.Error("Unrecoverable failure, halting process.", tag.Name(name), tag.Error(err))

		hub := cfg.hub
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		if hub.Client() != nil {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("component", name)
				hub.CaptureException(err)
			})
			hub.Flush(cfg.flushTimeout)
		}

		halt(cfg.exitCode)
	}
}
