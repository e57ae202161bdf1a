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

package metrics

import (
	"fmt"
	"io"

	"github.com/uber-go/tally"
	"github.com/uber-go/tally/prometheus"

	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
)

// NewScope builds the root tally scope. Metrics are exported over HTTP when
// a prometheus listener is configured and discarded otherwise.
func NewScope(cfg config.Metrics, logger log.Logger) (tally.Scope, io.Closer, error) {
	opts := tally.ScopeOptions{
		Prefix: cfg.Prefix,
		Tags:   cfg.Tags,
	}

	if cfg.Prometheus == nil {
		opts.Reporter = tally.NullStatsReporter
		scope, closer := tally.NewRootScope(opts, cfg.ReportInterval)
		return scope, closer, nil
	}

	promCfg := prometheus.Configuration{
		ListenAddress: cfg.Prometheus.ListenAddress,
		HandlerPath:   cfg.Prometheus.HandlerPath,
		TimerType:     cfg.Prometheus.TimerType,
	}
	reporter, err := promCfg.NewReporter(prometheus.ConfigurationOptions{
		OnError: func(err error) {
			logger.Warn("prometheus reporter error", tag.Error(err))
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("prometheus reporter: %w", err)
	}
	opts.CachedReporter = reporter
	opts.Separator = prometheus.DefaultSeparator
	scope, closer := tally.NewRootScope(opts, cfg.ReportInterval)
	logger.Info("prometheus metrics reporter started", tag.Address(cfg.Prometheus.ListenAddress))
	return scope, closer, nil
}
