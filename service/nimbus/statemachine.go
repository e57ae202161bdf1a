package nimbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/types"
)

// Event is a lifecycle event applied to a topology.
type Event string

const (
	EventActivate    Event = "activate"
	EventInactivate  Event = "inactivate"
	EventRebalance   Event = "rebalance"
	EventKill        Event = "kill"
	EventRemove      Event = "remove"
	EventDoRebalance Event = "do_rebalance"
	// EventStartup re-arms the delayed event of a killed or rebalancing
	// topology after nimbus restarts.
	EventStartup Event = "startup"
)

func (e Event) String() string {
	return string(e)
}

// removed is the fsm state after remove. It is never persisted.
const removed = "removed"

// ErrInvalidTransition is returned when an event is not allowed in the
// current status of the topology.
var ErrInvalidTransition = errors.New("invalid topology transition")

var (
	active      = string(types.StatusActive)
	inactive    = string(types.StatusInactive)
	killed      = string(types.StatusKilled)
	rebalancing = string(types.StatusRebalancing)

	// do_rebalance lands on the recorded previous status; its Dst is only
	// used by the fsm to accept the event.
	transitionTable = fsm.Events{
		{Name: EventActivate.String(), Src: []string{active, inactive}, Dst: active},
		{Name: EventInactivate.String(), Src: []string{active, inactive}, Dst: inactive},
		{Name: EventRebalance.String(), Src: []string{active, inactive}, Dst: rebalancing},
		{Name: EventKill.String(), Src: []string{active, inactive, killed, rebalancing}, Dst: killed},
		{Name: EventRemove.String(), Src: []string{killed}, Dst: removed},
		{Name: EventDoRebalance.String(), Src: []string{rebalancing}, Dst: active},
		{Name: EventStartup.String(), Src: []string{killed}, Dst: killed},
		{Name: EventStartup.String(), Src: []string{rebalancing}, Dst: rebalancing},
	}
)

// followUp returns the event a status schedules after its delay.
func followUp(status types.StatusType) (Event, bool) {
	switch status {
	case types.StatusKilled:
		return EventRemove, true
	case types.StatusRebalancing:
		return EventDoRebalance, true
	}
	return "", false
}

// delayResolver returns the delay in seconds to use for a kill or rebalance.
type delayResolver func(ctx context.Context, topologyID string, delay Delay) int

// stateMachine computes the status a topology moves to. It does not persist anything.
type stateMachine struct {
	resolveDelay delayResolver
	logger       log.Logger
}

// next returns the status after ev, or nil when the topology is removed.
func (m *stateMachine) next(ctx context.Context, topologyID string, current types.TopologyStatus, ev Event, delay Delay) (*types.TopologyStatus, error) {
	var (
		result    *types.TopologyStatus
		resultSet bool
	)

	machine := fsm.NewFSM(current.Type.String(), transitionTable, fsm.Callbacks{
		"before_event": func(ctx context.Context, e *fsm.Event) {
			next, err := m.compute(ctx, topologyID, current, Event(e.Event), delay)
			if err != nil {
				e.Cancel(err)
				return
			}
			result, resultSet = next, true
		},
	})

	err := machine.Event(ctx, ev.String())
	var (
		noTransition fsm.NoTransitionError
		canceled     fsm.CanceledError
		invalid      fsm.InvalidEventError
		unknown      fsm.UnknownEventError
	)
	switch {
	case err == nil, errors.As(err, &noTransition):
		// self transitions such as kill on a killed topology still apply
	case errors.As(err, &canceled):
		return nil, canceled.Err
	case errors.As(err, &invalid), errors.As(err, &unknown):
		return nil, fmt.Errorf("%w: %s on %s topology %s", ErrInvalidTransition, ev, current.Type, topologyID)
	default:
		return nil, err
	}
	if !resultSet {
		return nil, fmt.Errorf("transition %s on topology %s produced no status", ev, topologyID)
	}
	return result, nil
}

func (m *stateMachine) compute(ctx context.Context, topologyID string, current types.TopologyStatus, ev Event, delay Delay) (*types.TopologyStatus, error) {
	var next types.TopologyStatus
	switch ev {
	case EventActivate:
		next = types.ActiveStatus()
	case EventInactivate:
		next = types.InactiveStatus()
	case EventKill:
		next = types.KilledStatus(m.resolveDelay(ctx, topologyID, delay))
	case EventRebalance:
		prev := types.TopologyStatus{Type: current.Type}
		next = types.RebalancingStatus(m.resolveDelay(ctx, topologyID, delay), prev)
	case EventRemove:
		return nil, nil
	case EventDoRebalance:
		next = types.ActiveStatus()
		if current.PrevStatus != nil {
			next = *current.PrevStatus
		} else {
			m.logger.Warn("Rebalancing topology has no previous status, activating.", tag.TopologyID(topologyID))
		}
	case EventStartup:
		next = current
	default:
		return nil, fmt.Errorf("%w: unknown event %s", ErrInvalidTransition, ev)
	}
	return &next, nil
}
