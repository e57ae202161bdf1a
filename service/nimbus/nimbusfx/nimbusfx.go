package nimbusfx

import (
	"github.com/uber-go/tally"
	"go.uber.org/fx"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/cluster"
	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/service/nimbus"
)

// Module provides the Nimbus daemon and ties it to the fx lifecycle.
var Module = fx.Module("nimbus",
	fx.Provide(newNimbus),
	fx.Invoke(func(*nimbus.Nimbus) {}),
)

type nimbusParams struct {
	fx.In

	Cfg        config.Config
	State      *cluster.State
	Logger     log.Logger
	Scope      tally.Scope
	TimeSource clock.TimeSource
	Rebalancer nimbus.Rebalancer `optional:"true"`

	Lifecycle fx.Lifecycle
}

func newNimbus(p nimbusParams) *nimbus.Nimbus {
	n := nimbus.New(nimbus.Params{
		Config:     p.Cfg.Nimbus,
		State:      p.State,
		Logger:     p.Logger,
		Scope:      p.Scope,
		TimeSource: p.TimeSource,
		Rebalancer: p.Rebalancer,
	})
	p.Lifecycle.Append(fx.StartStopHook(n.Start, n.Stop))
	return n
}
