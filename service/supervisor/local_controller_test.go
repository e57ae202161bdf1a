package supervisor

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/types"
)

func TestLocalProcessController_StartStop(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep is not available")
	}

	ctx := context.Background()
	c := NewLocalProcessController(config.WorkerLaunch{Command: sleep, Args: []string{"30"}}, clock.NewRealTimeSource(), log.NewNoop())

	handle, err := c.StartWorker(ctx, types.SlotID{NodeID: "node-a", Port: 6700}, LocalAssignment{TopologyID: "wc-1", Tasks: []int{1, 2}})
	require.NoError(t, err)
	assert.NotEmpty(t, handle.ID)
	assert.Equal(t, 6700, handle.Port)
	assert.Equal(t, "wc-1", handle.TopologyID)
	assert.Positive(t, handle.PID)
	assert.True(t, c.IsAlive(ctx, handle))

	require.NoError(t, c.StopWorker(ctx, handle))
	assert.Eventually(t, func() bool { return !c.IsAlive(ctx, handle) }, 5*time.Second, 10*time.Millisecond)

	// stopping again is a no-op
	require.NoError(t, c.StopWorker(ctx, handle))
	assert.Zero(t, c.tracked())
}

func TestLocalProcessController_KillsStubbornWorker(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh is not available")
	}

	ctx := context.Background()
	c := NewLocalProcessController(config.WorkerLaunch{
		Command: sh,
		Args:    []string{"-c", "trap '' TERM; while :; do sleep 0.1; done"},
	}, clock.NewRealTimeSource(), log.NewNoop())
	c.gracePeriod = 300 * time.Millisecond

	handle, err := c.StartWorker(ctx, types.SlotID{NodeID: "node-a", Port: 6702}, LocalAssignment{TopologyID: "wc-1"})
	require.NoError(t, err)
	// let the shell install its trap
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, c.StopWorker(ctx, handle))
	assert.False(t, c.IsAlive(ctx, handle))
	assert.Zero(t, c.tracked())
}

func TestLocalProcessController_DetectsExit(t *testing.T) {
	trueBin, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true is not available")
	}

	ctx := context.Background()
	c := NewLocalProcessController(config.WorkerLaunch{Command: trueBin}, clock.NewRealTimeSource(), log.NewNoop())

	handle, err := c.StartWorker(ctx, types.SlotID{NodeID: "node-a", Port: 6701}, LocalAssignment{TopologyID: "wc-1"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !c.IsAlive(ctx, handle) }, 5*time.Second, 10*time.Millisecond)
}

func TestLocalProcessController_NoCommand(t *testing.T) {
	c := NewLocalProcessController(config.WorkerLaunch{}, clock.NewRealTimeSource(), log.NewNoop())
	_, err := c.StartWorker(context.Background(), types.SlotID{NodeID: "node-a", Port: 6700}, LocalAssignment{})
	assert.ErrorIs(t, err, ErrNoWorkerCommand)
}

func TestJoinTasks(t *testing.T) {
	assert.Equal(t, "1,2,5", joinTasks([]int{1, 2, 5}))
	assert.Equal(t, "", joinTasks(nil))
}

func (c *LocalProcessController) tracked() int {
	c.Lock()
	defer c.Unlock()
	return len(c.reaped)
}
