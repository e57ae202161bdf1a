package supervisor

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	"github.com/uber-go/tally"

	"github.com/yawfe/stormd/common/cluster"
	"github.com/yawfe/stormd/common/event"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/metrics"
	"github.com/yawfe/stormd/common/types"
)

// syncSupervisor reads the assignments from the store, keeps the slots of
// this node and hands them to sync-processes.
type syncSupervisor struct {
	supervisorID string
	ports        map[int]struct{}
	desired      *atomic.Pointer[desiredState]

	state          *cluster.State
	processesQueue *event.Queue
	syncProcesses  event.Callback

	logger log.Logger
	scope  tally.Scope
}

var _ event.Callback = (*syncSupervisor)(nil)

func newSyncSupervisor(
	supervisorID string,
	ports []int,
	desired *atomic.Pointer[desiredState],
	state *cluster.State,
	processesQueue *event.Queue,
	syncProcesses event.Callback,
	logger log.Logger,
	scope tally.Scope,
) *syncSupervisor {
	owned := make(map[int]struct{}, len(ports))
	for _, port := range ports {
		owned[port] = struct{}{}
	}
	return &syncSupervisor{
		supervisorID:   supervisorID,
		ports:          owned,
		desired:        desired,
		state:          state,
		processesQueue: processesQueue,
		syncProcesses:  syncProcesses,
		logger:         logger,
		scope:          scope,
	}
}

func (s *syncSupervisor) Execute(ctx context.Context) error {
	assignments, err := s.state.ListAssignments(ctx)
	if err != nil {
		// retried on the next tick
		s.scope.Counter(metrics.SupervisorSyncFailures).Inc(1)
		s.logger.Error("Failed to read assignments.", tag.Error(err))
		return nil
	}

	s.desired.Store(&desiredState{assignments: s.localAssignments(assignments)})

	err = s.processesQueue.Submit(s.syncProcesses)
	if errors.Is(err, event.ErrQueueClosed) {
		s.logger.Info("Processes queue closed, skipping reconciliation.")
		return nil
	}
	return err
}

func (s *syncSupervisor) localAssignments(assignments map[string]*types.Assignment) map[int]LocalAssignment {
	topologyIDs := make([]string, 0, len(assignments))
	for id := range assignments {
		topologyIDs = append(topologyIDs, id)
	}
	sort.Strings(topologyIDs)

	local := make(map[int]LocalAssignment)
	for _, topologyID := range topologyIDs {
		assignment := assignments[topologyID]
		for port, tasks := range assignment.SlotsOnNode(s.supervisorID) {
			if _, ok := s.ports[port]; !ok {
				s.logger.Warn("Assignment uses a port this supervisor does not offer.",
					tag.TopologyID(topologyID),
					tag.SlotPort(port))
				continue
			}
			if existing, ok := local[port]; ok {
				s.logger.Warn("Slot assigned to more than one topology.",
					tag.SlotPort(port),
					tag.TopologyID(topologyID),
					tag.Dynamic("assigned-topology-id", existing.TopologyID))
				continue
			}
			local[port] = LocalAssignment{
				TopologyID: topologyID,
				Tasks:      types.SortedTasks(tasks),
				Version:    assignment.Version,
			}
		}
	}
	return local
}
