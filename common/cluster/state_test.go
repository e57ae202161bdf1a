package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/yawfe/stormd/common/log/testlogger"
	"github.com/yawfe/stormd/common/store"
	"github.com/yawfe/stormd/common/store/memory"
	"github.com/yawfe/stormd/common/types"
)

func TestTopologyRoundTrip(t *testing.T) {
	ctx := context.Background()
	state := NewState(memory.NewStore())

	_, _, err := state.GetTopology(ctx, "wc-1")
	assert.ErrorIs(t, err, ErrTopologyNotFound)

	base := &types.TopologyBase{Name: "word-count", NumWorkers: 2, Status: types.KilledStatus(30)}
	version, err := state.SetTopology(ctx, "wc-1", base)
	require.NoError(t, err)

	got, gotVersion, err := state.GetTopology(ctx, "wc-1")
	require.NoError(t, err)
	assert.Equal(t, version, gotVersion)
	assert.Equal(t, "word-count", got.Name)
	assert.True(t, got.Status.Equal(types.KilledStatus(30)))

	all, err := state.ListTopologies(ctx)
	require.NoError(t, err)
	assert.Contains(t, all, "wc-1")
}

func TestTopologyConfig(t *testing.T) {
	ctx := context.Background()
	state := NewState(memory.NewStore())

	_, err := state.GetTopologyConfig(ctx, "wc-1")
	assert.ErrorIs(t, err, ErrTopologyNotFound)

	require.NoError(t, state.SetTopologyConfig(ctx, "wc-1", types.TopologyConfig{types.TopologyMessageTimeoutSecs: 30}))
	conf, err := state.GetTopologyConfig(ctx, "wc-1")
	require.NoError(t, err)
	timeout, ok, err := conf.Int(types.TopologyMessageTimeoutSecs)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30, timeout)
}

func TestRemoveTopology(t *testing.T) {
	ctx := context.Background()
	state := NewState(memory.NewStore())

	_, err := state.SetTopology(ctx, "wc-1", &types.TopologyBase{Name: "word-count", Status: types.ActiveStatus()})
	require.NoError(t, err)
	require.NoError(t, state.SetTopologyConfig(ctx, "wc-1", types.TopologyConfig{}))
	_, err = state.SetAssignment(ctx, &types.Assignment{TopologyID: "wc-1"})
	require.NoError(t, err)

	require.NoError(t, state.RemoveTopology(ctx, "wc-1"))

	_, _, err = state.GetTopology(ctx, "wc-1")
	assert.ErrorIs(t, err, ErrTopologyNotFound)
	_, err = state.GetTopologyConfig(ctx, "wc-1")
	assert.ErrorIs(t, err, ErrTopologyNotFound)
	_, err = state.GetAssignment(ctx, "wc-1")
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	// Removing again is harmless.
	require.NoError(t, state.RemoveTopology(ctx, "wc-1"))
}

func TestAssignments(t *testing.T) {
	ctx := context.Background()
	state := NewState(memory.NewStore())

	assignment := &types.Assignment{
		TopologyID: "wc-1",
		Slots: map[types.SlotID][]int{
			{NodeID: "node-a", Port: 6700}: {1, 2},
			{NodeID: "node-b", Port: 6700}: {3},
		},
	}
	version, err := state.SetAssignment(ctx, assignment)
	require.NoError(t, err)

	got, err := state.GetAssignment(ctx, "wc-1")
	require.NoError(t, err)
	assert.Equal(t, version, got.Version)
	assert.Equal(t, map[int][]int{6700: {1, 2}}, got.SlotsOnNode("node-a"))

	all, err := state.ListAssignments(ctx)
	require.NoError(t, err)
	require.Contains(t, all, "wc-1")
	assert.Equal(t, version, all["wc-1"].Version)
	assert.Len(t, all["wc-1"].Slots, 2)
}

func TestListSkipsUnreadableRecords(t *testing.T) {
	ctx := context.Background()
	state := NewState(memory.NewStore(), WithLogger(testlogger.New(t)))

	_, err := state.SetTopology(ctx, "wc-1", &types.TopologyBase{Name: "word-count", Status: types.ActiveStatus()})
	require.NoError(t, err)
	_, err = state.SetAssignment(ctx, &types.Assignment{TopologyID: "wc-1"})
	require.NoError(t, err)
	_, err = state.Store().Put(ctx, stormsPrefix+"broken", []byte("{not json"))
	require.NoError(t, err)
	_, err = state.Store().Put(ctx, assignmentsPrefix+"broken", []byte("{not json"))
	require.NoError(t, err)

	topologies, err := state.ListTopologies(ctx)
	require.NoError(t, err)
	assert.Len(t, topologies, 1)
	assert.Contains(t, topologies, "wc-1")

	assignments, err := state.ListAssignments(ctx)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
	assert.Contains(t, assignments, "wc-1")
}

func TestSupervisors(t *testing.T) {
	ctx := context.Background()
	state := NewState(memory.NewStore())

	require.NoError(t, state.SetSupervisorInfo(ctx, &types.SupervisorInfo{ID: "node-a", Ports: []int{6700, 6701}}))
	supervisors, err := state.ListSupervisors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{6700, 6701}, supervisors["node-a"].Ports)

	_, err = state.GetSupervisorHeartbeat(ctx, "node-a")
	assert.ErrorIs(t, err, ErrSupervisorNotFound)

	heartbeat := &types.SupervisorHeartbeat{
		SupervisorID: "node-a",
		Slots:        []types.SlotHeartbeat{{Port: 6700, TopologyID: "wc-1", Tasks: []int{1, 2}, Version: 4}},
	}
	require.NoError(t, state.SetSupervisorHeartbeat(ctx, heartbeat))
	got, err := state.GetSupervisorHeartbeat(ctx, "node-a")
	require.NoError(t, err)
	assert.Equal(t, heartbeat, got)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	state := NewState(mockStore)
	errUnavailable := errors.New("unavailable")

	mockStore.EXPECT().Get(gomock.Any(), "/storms/wc-1").Return(nil, errUnavailable)
	_, _, err := state.GetTopology(context.Background(), "wc-1")
	assert.ErrorIs(t, err, errUnavailable)
	assert.NotErrorIs(t, err, ErrTopologyNotFound)

	mockStore.EXPECT().List(gomock.Any(), "/assignments/").Return(nil, errUnavailable)
	_, err = state.ListAssignments(context.Background())
	assert.ErrorIs(t, err, errUnavailable)

	mockStore.EXPECT().Get(gomock.Any(), "/confs/wc-1").Return(&store.Value{Data: []byte("{")}, nil)
	_, err = state.GetTopologyConfig(context.Background(), "wc-1")
	assert.ErrorContains(t, err, "parse /confs/wc-1")
}
