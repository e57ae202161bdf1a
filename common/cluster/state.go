package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/store"
	"github.com/yawfe/stormd/common/types"
)

const (
	stormsPrefix      = "/storms/"
	confsPrefix       = "/confs/"
	assignmentsPrefix = "/assignments/"
	supervisorsPrefix = "/supervisors/"
	heartbeatsPrefix  = "/heartbeats/"
)

var (
	// ErrTopologyNotFound is returned when a topology has no stored record.
	ErrTopologyNotFound = errors.New("topology not found")
	// ErrAssignmentNotFound is returned when a topology has no assignment.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrSupervisorNotFound is returned when a supervisor has not reported yet.
	ErrSupervisorNotFound = errors.New("supervisor not found")
)

// State is the typed view of the cluster kept in the coordination store.
type State struct {
	store  store.Store
	logger log.Logger
}

// StateOption configures a State.
type StateOption func(*State)

// WithLogger sets the logger used to report unreadable records.
func WithLogger(logger log.Logger) StateOption {
	return func(s *State) {
		s.logger = logger
	}
}

// NewState creates the typed cluster state over s.
func NewState(s store.Store, opts ...StateOption) *State {
	state := &State{store: s, logger: log.NewNoop()}
	for _, opt := range opts {
		opt(state)
	}
	return state
}

// Store returns the underlying store.
func (s *State) Store() store.Store {
	return s.store
}

// GetTopology returns the base record of a topology and its version.
func (s *State) GetTopology(ctx context.Context, topologyID string) (*types.TopologyBase, int64, error) {
	var base types.TopologyBase
	version, err := s.get(ctx, stormsPrefix+topologyID, &base)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, 0, fmt.Errorf("%w: %s", ErrTopologyNotFound, topologyID)
	}
	if err != nil {
		return nil, 0, err
	}
	return &base, version, nil
}

// SetTopology writes the base record of a topology, status included.
func (s *State) SetTopology(ctx context.Context, topologyID string, base *types.TopologyBase) (int64, error) {
	return s.put(ctx, stormsPrefix+topologyID, base)
}

// ListTopologies returns every topology base keyed by topology id. Records
// that cannot be parsed are logged and left out.
func (s *State) ListTopologies(ctx context.Context) (map[string]*types.TopologyBase, error) {
	values, err := s.store.List(ctx, stormsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list topologies: %w", err)
	}
	result := make(map[string]*types.TopologyBase, len(values))
	for key, value := range values {
		var base types.TopologyBase
		if err := json.Unmarshal(value.Data, &base); err != nil {
			s.logger.Warn("Skipping unreadable topology record.", tag.Key(key), tag.Error(err))
			continue
		}
		result[strings.TrimPrefix(key, stormsPrefix)] = &base
	}
	return result, nil
}

// GetTopologyConfig returns the configuration submitted with a topology.
func (s *State) GetTopologyConfig(ctx context.Context, topologyID string) (types.TopologyConfig, error) {
	var conf types.TopologyConfig
	_, err := s.get(ctx, confsPrefix+topologyID, &conf)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTopologyNotFound, topologyID)
	}
	if err != nil {
		return nil, err
	}
	return conf, nil
}

// SetTopologyConfig writes the configuration of a topology.
func (s *State) SetTopologyConfig(ctx context.Context, topologyID string, conf types.TopologyConfig) error {
	_, err := s.put(ctx, confsPrefix+topologyID, conf)
	return err
}

// RemoveTopology atomically deletes the base, config and assignment of a topology.
func (s *State) RemoveTopology(ctx context.Context, topologyID string) error {
	if err := s.store.Delete(ctx, stormsPrefix+topologyID, confsPrefix+topologyID, assignmentsPrefix+topologyID); err != nil {
		return fmt.Errorf("remove topology %s: %w", topologyID, err)
	}
	return nil
}

// GetAssignment returns the assignment of a topology. Version is set from the
// store revision it was read at.
func (s *State) GetAssignment(ctx context.Context, topologyID string) (*types.Assignment, error) {
	var assignment types.Assignment
	version, err := s.get(ctx, assignmentsPrefix+topologyID, &assignment)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, topologyID)
	}
	if err != nil {
		return nil, err
	}
	assignment.Version = version
	return &assignment, nil
}

// SetAssignment writes the assignment of a topology and returns its new version.
func (s *State) SetAssignment(ctx context.Context, assignment *types.Assignment) (int64, error) {
	return s.put(ctx, assignmentsPrefix+assignment.TopologyID, assignment)
}

// ListAssignments returns every assignment keyed by topology id. Records that
// cannot be parsed are logged and left out.
func (s *State) ListAssignments(ctx context.Context) (map[string]*types.Assignment, error) {
	values, err := s.store.List(ctx, assignmentsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	result := make(map[string]*types.Assignment, len(values))
	for key, value := range values {
		var assignment types.Assignment
		if err := json.Unmarshal(value.Data, &assignment); err != nil {
			s.logger.Warn("Skipping unreadable assignment record.", tag.Key(key), tag.Error(err))
			continue
		}
		assignment.Version = value.Version
		topologyID := strings.TrimPrefix(key, assignmentsPrefix)
		if assignment.TopologyID == "" {
			assignment.TopologyID = topologyID
		}
		result[topologyID] = &assignment
	}
	return result, nil
}

// SubscribeAssignments notifies whenever any assignment changes.
func (s *State) SubscribeAssignments(ctx context.Context) (<-chan int64, error) {
	return s.store.Subscribe(ctx, assignmentsPrefix)
}

// SetSupervisorInfo publishes what a supervisor advertises about itself.
func (s *State) SetSupervisorInfo(ctx context.Context, info *types.SupervisorInfo) error {
	_, err := s.put(ctx, supervisorsPrefix+info.ID, info)
	return err
}

// ListSupervisors returns every registered supervisor keyed by id.
func (s *State) ListSupervisors(ctx context.Context) (map[string]*types.SupervisorInfo, error) {
	values, err := s.store.List(ctx, supervisorsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list supervisors: %w", err)
	}
	result := make(map[string]*types.SupervisorInfo, len(values))
	for key, value := range values {
		var info types.SupervisorInfo
		if err := json.Unmarshal(value.Data, &info); err != nil {
			return nil, fmt.Errorf("parse supervisor %s: %w", key, err)
		}
		result[strings.TrimPrefix(key, supervisorsPrefix)] = &info
	}
	return result, nil
}

// SetSupervisorHeartbeat publishes the slots a supervisor currently runs.
func (s *State) SetSupervisorHeartbeat(ctx context.Context, heartbeat *types.SupervisorHeartbeat) error {
	_, err := s.put(ctx, heartbeatsPrefix+heartbeat.SupervisorID, heartbeat)
	return err
}

// GetSupervisorHeartbeat returns the last heartbeat of a supervisor.
func (s *State) GetSupervisorHeartbeat(ctx context.Context, supervisorID string) (*types.SupervisorHeartbeat, error) {
	var heartbeat types.SupervisorHeartbeat
	_, err := s.get(ctx, heartbeatsPrefix+supervisorID, &heartbeat)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSupervisorNotFound, supervisorID)
	}
	if err != nil {
		return nil, err
	}
	return &heartbeat, nil
}

func (s *State) get(ctx context.Context, key string, out any) (int64, error) {
	value, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(value.Data, out); err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value.Version, nil
}

func (s *State) put(ctx context.Context, key string, in any) (int64, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("serialize %s: %w", key, err)
	}
	version, err := s.store.Put(ctx, key, data)
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	return version, nil
}
