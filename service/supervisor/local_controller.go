package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/types"
)

// Environment handed to every worker process.
const (
	EnvSupervisorID = "STORMD_SUPERVISOR_ID"
	EnvTopologyID   = "STORMD_TOPOLOGY_ID"
	EnvWorkerID     = "STORMD_WORKER_ID"
	EnvWorkerPort   = "STORMD_WORKER_PORT"
	EnvWorkerTasks  = "STORMD_WORKER_TASKS"
)

const defaultStopGracePeriod = 5 * time.Second

// ErrNoWorkerCommand is returned when no worker command is configured.
var ErrNoWorkerCommand = errors.New("supervisor.worker.command is not configured")

// LocalProcessController runs workers as child processes of the supervisor.
type LocalProcessController struct {
	cfg         config.WorkerLaunch
	gracePeriod time.Duration
	timeSource  clock.TimeSource
	logger      log.Logger

	sync.Mutex
	// reaped is closed once a started worker has been waited for. Entries
	// live until the worker is stopped.
	reaped map[string]chan struct{}
}

var _ ProcessController = (*LocalProcessController)(nil)

// NewLocalProcessController creates a controller launching cfg.Command.
func NewLocalProcessController(cfg config.WorkerLaunch, timeSource clock.TimeSource, logger log.Logger) *LocalProcessController {
	return &LocalProcessController{
		cfg:         cfg,
		gracePeriod: defaultStopGracePeriod,
		timeSource:  timeSource,
		logger:      logger.WithTags(tag.ComponentProcessController),
		reaped:      make(map[string]chan struct{}),
	}
}

func (c *LocalProcessController) StartWorker(_ context.Context, slot types.SlotID, assignment LocalAssignment) (WorkerHandle, error) {
	if c.cfg.Command == "" {
		return WorkerHandle{}, ErrNoWorkerCommand
	}

	workerID := uuid.NewString()
	// the worker outlives the reconciliation that started it
	cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
	cmd.Dir = c.cfg.WorkDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		EnvSupervisorID+"="+slot.NodeID,
		EnvTopologyID+"="+assignment.TopologyID,
		EnvWorkerID+"="+workerID,
		EnvWorkerPort+"="+strconv.Itoa(slot.Port),
		EnvWorkerTasks+"="+joinTasks(assignment.Tasks),
	)
	for k, v := range c.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if err := cmd.Start(); err != nil {
		return WorkerHandle{}, fmt.Errorf("launch %s: %w", c.cfg.Command, err)
	}

	handle := WorkerHandle{
		ID:         workerID,
		Port:       slot.Port,
		PID:        cmd.Process.Pid,
		TopologyID: assignment.TopologyID,
		StartedAt:  c.timeSource.Now(),
	}
	done := make(chan struct{})
	c.Lock()
	c.reaped[workerID] = done
	c.Unlock()

	go c.reap(cmd, handle, done)
	return handle, nil
}

func (c *LocalProcessController) StopWorker(ctx context.Context, handle WorkerHandle) error {
	if !c.IsAlive(ctx, handle) {
		c.forget(handle)
		return nil
	}
	proc, err := process.NewProcessWithContext(ctx, int32(handle.PID))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			c.forget(handle)
			return nil
		}
		return fmt.Errorf("find worker %s: %w", handle.ID, err)
	}
	if err := proc.TerminateWithContext(ctx); err != nil {
		return fmt.Errorf("terminate worker %s: %w", handle.ID, err)
	}

	deadline := c.timeSource.Now().Add(c.gracePeriod)
	for c.timeSource.Now().Before(deadline) {
		if !c.IsAlive(ctx, handle) {
			c.forget(handle)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.timeSource.After(100 * time.Millisecond):
		}
	}

	c.logger.Warn("Worker did not exit in time, killing it.",
		tag.WorkerID(handle.ID),
		tag.WorkerPID(handle.PID),
		tag.Timeout(c.gracePeriod))
	if err := proc.KillWithContext(ctx); err != nil {
		return fmt.Errorf("kill worker %s: %w", handle.ID, err)
	}
	if done := c.reapedCh(handle); done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.forget(handle)
	return nil
}

func (c *LocalProcessController) IsAlive(ctx context.Context, handle WorkerHandle) bool {
	if done := c.reapedCh(handle); done != nil {
		select {
		case <-done:
			return false
		default:
		}
	}

	exists, err := process.PidExistsWithContext(ctx, int32(handle.PID))
	if err != nil {
		c.logger.Warn("Failed to probe worker.", tag.WorkerID(handle.ID), tag.Error(err))
		return false
	}
	return exists
}

func (c *LocalProcessController) reap(cmd *exec.Cmd, handle WorkerHandle, done chan struct{}) {
	err := cmd.Wait()
	close(done)

	c.logger.Info("Worker exited.",
		tag.WorkerID(handle.ID),
		tag.WorkerPID(handle.PID),
		tag.SlotPort(handle.Port),
		tag.Error(err))
}

// forget drops the bookkeeping of a stopped worker.
func (c *LocalProcessController) forget(handle WorkerHandle) {
	c.Lock()
	defer c.Unlock()
	delete(c.reaped, handle.ID)
}

func (c *LocalProcessController) reapedCh(handle WorkerHandle) chan struct{} {
	c.Lock()
	defer c.Unlock()
	return c.reaped[handle.ID]
}

func joinTasks(tasks []int) string {
	parts := make([]string, len(tasks))
	for i, t := range tasks {
		parts[i] = strconv.Itoa(t)
	}
	return strings.Join(parts, ",")
}
