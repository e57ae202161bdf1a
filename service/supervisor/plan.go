package supervisor

import "sort"

type actionType int

const (
	// actionStart launches a worker in an empty slot.
	actionStart actionType = iota + 1
	// actionStop stops a worker whose slot is no longer assigned here.
	actionStop
	// actionReplace stops a worker and starts one for a different assignment.
	actionReplace
	// actionRestart stops and starts an unhealthy worker for the same assignment.
	actionRestart
	// actionAdopt records a newer assignment version without touching the worker.
	actionAdopt
)

func (a actionType) String() string {
	switch a {
	case actionStart:
		return "start"
	case actionStop:
		return "stop"
	case actionReplace:
		return "replace"
	case actionRestart:
		return "restart"
	case actionAdopt:
		return "adopt"
	}
	return "unknown"
}

type reconcileAction struct {
	Type    actionType
	Port    int
	Desired LocalAssignment
}

// planReconcile compares what should run with what runs and returns the
// actions that converge them, ordered by port. Unchanged healthy slots need
// no action.
func planReconcile(desired, local map[int]LocalAssignment, unhealthy map[int]bool) []reconcileAction {
	ports := make([]int, 0, len(desired)+len(local))
	for port := range desired {
		ports = append(ports, port)
	}
	for port := range local {
		if _, ok := desired[port]; !ok {
			ports = append(ports, port)
		}
	}
	sort.Ints(ports)

	var actions []reconcileAction
	for _, port := range ports {
		want, wanted := desired[port]
		have, running := local[port]

		var action actionType
		switch {
		case wanted && !running:
			action = actionStart
		case !wanted && running:
			action = actionStop
		case !want.SameWork(have):
			action = actionReplace
		case unhealthy[port]:
			action = actionRestart
		case want.Version != have.Version:
			action = actionAdopt
		default:
			continue
		}
		actions = append(actions, reconcileAction{Type: action, Port: port, Desired: want})
	}
	return actions
}
