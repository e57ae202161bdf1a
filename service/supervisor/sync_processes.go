package supervisor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/cluster"
	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/event"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/metrics"
	"github.com/yawfe/stormd/common/types"
)

type (
	// desiredState is what sync-supervisor wants this node to run, by port.
	// It is never modified after being published.
	desiredState struct {
		assignments map[int]LocalAssignment
	}

	localWorker struct {
		handle        WorkerHandle
		assignment    LocalAssignment
		lastHeartbeat time.Time
		// silent holds while no new heartbeat has been seen
		silent clock.Sustain
	}

	// syncProcesses reconciles local workers with the desired state. It only
	// runs on the processes queue and is the only code touching workers.
	syncProcesses struct {
		supervisorID string
		cfg          config.Supervisor
		desired      *atomic.Pointer[desiredState]
		workers      map[int]*localWorker
		usedPorts    atomic.Pointer[[]int]

		controller ProcessController
		state      *cluster.State
		timeSource clock.TimeSource
		logger     log.Logger
		scope      tally.Scope
	}
)

var _ event.Callback = (*syncProcesses)(nil)

func newSyncProcesses(
	supervisorID string,
	cfg config.Supervisor,
	desired *atomic.Pointer[desiredState],
	controller ProcessController,
	state *cluster.State,
	timeSource clock.TimeSource,
	logger log.Logger,
	scope tally.Scope,
) *syncProcesses {
	return &syncProcesses{
		supervisorID: supervisorID,
		cfg:          cfg,
		desired:      desired,
		workers:      make(map[int]*localWorker),
		controller:   controller,
		state:        state,
		timeSource:   timeSource,
		logger:       logger,
		scope:        scope,
	}
}

func (p *syncProcesses) Execute(ctx context.Context) error {
	desired := p.desired.Load()
	if desired == nil {
		// nothing synced yet, leave running workers alone
		return nil
	}

	p.scope.Counter(metrics.ReconcileRuns).Inc(1)
	sw := p.scope.Timer(metrics.ReconcileLatency).Start()
	defer sw.Stop()

	unhealthy := p.checkHealth(ctx)
	actions := planReconcile(desired.assignments, p.localAssignments(), unhealthy)

	var errs error
	for _, action := range actions {
		if err := p.apply(ctx, action); err != nil {
			p.scope.Counter(metrics.ReconcileFailures).Inc(1)
			errs = multierr.Append(errs, err)
		}
	}
	p.scope.Gauge(metrics.LocalWorkers).Update(float64(len(p.workers)))
	p.publishUsedPorts()

	if err := p.publishHeartbeat(ctx); err != nil {
		p.scope.Counter(metrics.HeartbeatFailures).Inc(1)
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		// unconverged slots are retried on the next run
		p.logger.Error("Reconciliation incomplete.", tag.Error(errs))
	}
	return nil
}

func (p *syncProcesses) localAssignments() map[int]LocalAssignment {
	local := make(map[int]LocalAssignment, len(p.workers))
	for port, w := range p.workers {
		local[port] = w.assignment
	}
	return local
}

// checkHealth returns the ports whose worker died or stopped heartbeating.
func (p *syncProcesses) checkHealth(ctx context.Context) map[int]bool {
	reader, _ := p.controller.(HeartbeatReader)
	unhealthy := make(map[int]bool)
	for port, w := range p.workers {
		if !p.controller.IsAlive(ctx, w.handle) {
			p.logger.Warn("Worker is not alive.",
				tag.SlotPort(port),
				tag.WorkerID(w.handle.ID),
				tag.WorkerPID(w.handle.PID))
			unhealthy[port] = true
			continue
		}
		if reader == nil {
			continue
		}

		last, ok := reader.LastHeartbeat(ctx, w.handle)
		fresh := ok && last.After(w.lastHeartbeat)
		if fresh {
			w.lastHeartbeat = last
		}
		if w.silent.Check(!fresh) {
			p.logger.Warn("Worker heartbeat timed out.",
				tag.SlotPort(port),
				tag.WorkerID(w.handle.ID),
				tag.HeartbeatAge(w.silent.Held()))
			unhealthy[port] = true
		}
	}
	return unhealthy
}

func (p *syncProcesses) apply(ctx context.Context, action reconcileAction) error {
	logger := p.logger.WithTags(tag.ReconcileAction(action.Type), tag.SlotPort(action.Port))
	p.scope.Tagged(map[string]string{metrics.ActionTag: action.Type.String()}).Counter(metrics.ReconcileActions).Inc(1)

	switch action.Type {
	case actionStart:
		return p.start(ctx, action.Port, action.Desired, logger)
	case actionStop:
		return p.stop(ctx, action.Port, logger)
	case actionReplace, actionRestart:
		if action.Type == actionRestart {
			p.scope.Counter(metrics.WorkerRestarts).Inc(1)
		}
		if err := p.stop(ctx, action.Port, logger); err != nil {
			return err
		}
		return p.start(ctx, action.Port, action.Desired, logger)
	case actionAdopt:
		w := p.workers[action.Port]
		logger.Info("Adopting assignment version.",
			tag.AssignmentVersion(action.Desired.Version),
			tag.WorkerID(w.handle.ID))
		w.assignment.Version = action.Desired.Version
		return nil
	}
	return fmt.Errorf("unknown reconcile action %v on port %d", action.Type, action.Port)
}

func (p *syncProcesses) start(ctx context.Context, port int, assignment LocalAssignment, logger log.Logger) error {
	slot := types.SlotID{NodeID: p.supervisorID, Port: port}
	handle, err := p.controller.StartWorker(ctx, slot, assignment)
	if err != nil {
		logger.Error("Failed to start worker.", tag.TopologyID(assignment.TopologyID), tag.Error(err))
		return fmt.Errorf("start worker on port %d: %w", port, err)
	}

	w := &localWorker{
		handle:     handle,
		assignment: assignment,
	}
	w.silent = clock.NewSustain(p.timeSource, func() time.Duration {
		if w.lastHeartbeat.IsZero() {
			return p.cfg.WorkerStartTimeout
		}
		return p.cfg.WorkerTimeout
	})
	// the silence window starts with the worker
	w.silent.Check(true)
	p.workers[port] = w

	logger.Info("Worker started.",
		tag.TopologyID(assignment.TopologyID),
		tag.Tasks(assignment.Tasks),
		tag.AssignmentVersion(assignment.Version),
		tag.WorkerID(handle.ID),
		tag.WorkerPID(handle.PID))
	return nil
}

func (p *syncProcesses) stop(ctx context.Context, port int, logger log.Logger) error {
	w, ok := p.workers[port]
	if !ok {
		return nil
	}
	if err := p.controller.StopWorker(ctx, w.handle); err != nil {
		logger.Error("Failed to stop worker.", tag.WorkerID(w.handle.ID), tag.Error(err))
		return fmt.Errorf("stop worker on port %d: %w", port, err)
	}
	delete(p.workers, port)
	logger.Info("Worker stopped.",
		tag.TopologyID(w.assignment.TopologyID),
		tag.WorkerID(w.handle.ID))
	return nil
}

// stopAll stops every local worker in parallel. It must not run
// concurrently with Execute.
func (p *syncProcesses) stopAll(ctx context.Context) error {
	var (
		mu      sync.Mutex
		stopped []int
		errs    error
		g       errgroup.Group
	)
	for port, w := range p.workers {
		g.Go(func() error {
			err := p.controller.StopWorker(ctx, w.handle)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("stop worker on port %d: %w", port, err))
				return err
			}
			stopped = append(stopped, port)
			return nil
		})
	}
	_ = g.Wait()

	for _, port := range stopped {
		w := p.workers[port]
		delete(p.workers, port)
		p.logger.Info("Worker stopped on shutdown.",
			tag.SlotPort(port),
			tag.TopologyID(w.assignment.TopologyID),
			tag.WorkerID(w.handle.ID))
	}
	p.publishUsedPorts()
	return errs
}

func (p *syncProcesses) publishUsedPorts() {
	ports := make([]int, 0, len(p.workers))
	for port := range p.workers {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	p.usedPorts.Store(&ports)
}

// UsedPorts returns the ports running a worker after the last run.
func (p *syncProcesses) UsedPorts() []int {
	ports := p.usedPorts.Load()
	if ports == nil {
		return nil
	}
	return *ports
}

func (p *syncProcesses) publishHeartbeat(ctx context.Context) error {
	now := p.timeSource.Now()
	heartbeat := &types.SupervisorHeartbeat{
		SupervisorID: p.supervisorID,
		TimeSecs:     now.Unix(),
		Slots:        make([]types.SlotHeartbeat, 0, len(p.workers)),
	}
	for port, w := range p.workers {
		heartbeat.Slots = append(heartbeat.Slots, types.SlotHeartbeat{
			Port:       port,
			TopologyID: w.assignment.TopologyID,
			Tasks:      w.assignment.Tasks,
			Version:    w.assignment.Version,
			WorkerID:   w.handle.ID,
			TimeSecs:   now.Unix(),
		})
	}
	sort.Slice(heartbeat.Slots, func(i, j int) bool {
		return heartbeat.Slots[i].Port < heartbeat.Slots[j].Port
	})
	if err := p.state.SetSupervisorHeartbeat(ctx, heartbeat); err != nil {
		return fmt.Errorf("publish heartbeat: %w", err)
	}
	return nil
}
