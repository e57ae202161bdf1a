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

package stormd

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/cluster"
	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/logfx"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/metrics/metricsfx"
	"github.com/yawfe/stormd/common/store"
	"github.com/yawfe/stormd/common/store/storefx"
	"github.com/yawfe/stormd/service/nimbus/nimbusfx"
	"github.com/yawfe/stormd/service/supervisor/supervisorfx"

	_ "github.com/yawfe/stormd/common/store/etcd"   // registers the etcd store
	_ "github.com/yawfe/stormd/common/store/memory" // registers the in-process store
)

var _commonModule = fx.Options(
	config.Module,
	logfx.Module,
	metricsfx.Module,
	fx.Provide(clock.NewRealTimeSource),
	storefx.Module,
	fx.Provide(func(s store.Store, logger log.Logger) *cluster.State {
		return cluster.NewState(s, cluster.WithLogger(logger))
	}),
	fx.Invoke(initSentry),
)

// Module provides one daemon on top of the common components.
func Module(daemon string) fx.Option {
	var daemonModule fx.Option
	switch daemon {
	case nimbusDaemon:
		daemonModule = nimbusfx.Module
	case supervisorDaemon:
		daemonModule = supervisorfx.Module
	default:
		return fx.Error(fmt.Errorf("unknown daemon %q", daemon))
	}
	return fx.Options(
		// Decorate both logger so all components use proper service name.
		fx.Decorate(func(z *zap.Logger, l log.Logger) (*zap.Logger, log.Logger) {
			return z.With(zap.String("service", daemon)), l.WithTags(tag.Service(daemon))
		}),
		daemonModule,
	)
}

type sentryParams struct {
	fx.In

	Cfg       config.Config
	Logger    log.Logger
	Lifecycle fx.Lifecycle
}

// initSentry sets up the global hub the kill functions report to.
func initSentry(p sentryParams) error {
	if p.Cfg.Sentry.DSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              p.Cfg.Sentry.DSN,
		Environment:      p.Cfg.Sentry.Environment,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	p.Logger.Info("Sentry crash reporting enabled.")
	p.Lifecycle.Append(fx.StopHook(func() {
		sentry.Flush(p.Cfg.Sentry.FlushTimeout)
	}))
	return nil
}
