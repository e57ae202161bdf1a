package supervisor

import (
	"context"
	"time"

	"github.com/uber-go/tally"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/cluster"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/metrics"
	"github.com/yawfe/stormd/common/types"
)

// heartbeat advertises the supervisor and its slots to nimbus.
type heartbeat struct {
	info      types.SupervisorInfo
	startedAt time.Time
	usedPorts func() []int

	state      *cluster.State
	timeSource clock.TimeSource
	logger     log.Logger
	scope      tally.Scope
}

func (h *heartbeat) Execute(ctx context.Context) error {
	now := h.timeSource.Now()
	info := h.info
	info.UsedPorts = h.usedPorts()
	info.UptimeSecs = int64(now.Sub(h.startedAt) / time.Second)
	info.TimestampSecs = now.Unix()

	if err := h.state.SetSupervisorInfo(ctx, &info); err != nil {
		h.scope.Counter(metrics.HeartbeatFailures).Inc(1)
		h.logger.Warn("Failed to publish supervisor info.", tag.Error(err))
	}
	return nil
}
