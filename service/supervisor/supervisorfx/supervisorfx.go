package supervisorfx

import (
	"github.com/uber-go/tally"
	"go.uber.org/fx"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/cluster"
	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/service/supervisor"
)

// Module provides the Supervisor daemon and ties it to the fx lifecycle.
// Workers are launched as local processes unless the app supplies its own
// supervisor.ProcessController.
var Module = fx.Module("supervisor",
	fx.Provide(newSupervisor),
	fx.Invoke(func(*supervisor.Supervisor) {}),
)

type supervisorParams struct {
	fx.In

	Cfg        config.Config
	State      *cluster.State
	Logger     log.Logger
	Scope      tally.Scope
	TimeSource clock.TimeSource
	Controller supervisor.ProcessController `optional:"true"`

	Lifecycle fx.Lifecycle
}

func newSupervisor(p supervisorParams) *supervisor.Supervisor {
	controller := p.Controller
	if controller == nil {
		controller = supervisor.NewLocalProcessController(p.Cfg.Supervisor.Worker, p.TimeSource, p.Logger)
	}
	s := supervisor.New(supervisor.Params{
		Config:     p.Cfg.Supervisor,
		State:      p.State,
		Controller: controller,
		Logger:     p.Logger,
		Scope:      p.Scope,
		TimeSource: p.TimeSource,
	})
	p.Lifecycle.Append(fx.StartStopHook(s.Start, s.Stop))
	return s
}
