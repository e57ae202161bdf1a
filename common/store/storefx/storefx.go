package storefx

import (
	"github.com/uber-go/tally"
	"go.uber.org/fx"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/store"
	"github.com/yawfe/stormd/common/store/wrappers/metered"
)

// Module provides the configured store.Store, wrapped with metrics.
// The binary picks the backends it supports by importing their packages.
var Module = fx.Module("storefx",
	fx.Provide(buildStore),
)

type storeParams struct {
	fx.In

	StoreParams store.Params
	Scope       tally.Scope
	Logger      log.Logger
	TimeSource  clock.TimeSource
}

func buildStore(p storeParams) (store.Store, error) {
	s, err := store.New(p.StoreParams)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("Coordination store created.", tag.StoreType(p.StoreParams.Cfg.Store.Type))
	return metered.NewStore(s, p.Scope, p.Logger, p.TimeSource), nil
}
