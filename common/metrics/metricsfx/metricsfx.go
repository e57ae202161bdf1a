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

package metricsfx

import (
	"github.com/uber-go/tally"
	"go.uber.org/fx"

	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/metrics"
)

// Module provides the root tally scope built from the metrics config.
var Module = fx.Module("metricsfx",
	fx.Provide(buildScope),
)

type scopeParams struct {
	fx.In

	Cfg       config.Config
	Logger    log.Logger
	Lifecycle fx.Lifecycle
}

func buildScope(p scopeParams) (tally.Scope, error) {
	scope, closer, err := metrics.NewScope(p.Cfg.Metrics, p.Logger)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.StopHook(closer.Close))
	return scope, nil
}
