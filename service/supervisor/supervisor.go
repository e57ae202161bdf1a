package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/uber-go/tally"

	"github.com/yawfe/stormd/common"
	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/cluster"
	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/event"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/types"
)

const (
	syncQueueName      = "supervisor-sync"
	processesQueueName = "supervisor-processes"

	heartbeatLoopName       = "supervisor-heartbeat"
	syncPusherLoopName      = "supervisor-sync-pusher"
	processesPusherLoopName = "supervisor-processes-pusher"
)

type (
	// Params are the dependencies of a Supervisor.
	Params struct {
		Config     config.Supervisor
		State      *cluster.State
		Controller ProcessController
		Logger     log.Logger
		Scope      tally.Scope
		TimeSource clock.TimeSource
		// Kill overrides the fail-fast action of every queue and loop.
		Kill event.KillFunc
	}

	// Supervisor keeps the workers of one node in line with the assignments
	// nimbus publishes. Two queues split the work: sync-supervisor reads the
	// store and sync-processes owns the local workers.
	Supervisor struct {
		status int32
		id     string
		cfg    config.Supervisor
		active atomic.Bool

		state          *cluster.State
		syncQueue      *event.Queue
		processesQueue *event.Queue
		syncSupervisor *syncSupervisor
		syncProcesses  *syncProcesses
		loops          []*event.AsyncLoop

		subscribeCancel context.CancelFunc
		subscribeWG     sync.WaitGroup

		logger log.Logger
	}
)

var _ common.Daemon = (*Supervisor)(nil)

// New creates a Supervisor. It does nothing until Start.
func New(p Params) *Supervisor {
	cfg := p.Config
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	scope := p.Scope
	if scope == nil {
		scope = tally.NoopScope
	}
	logger := p.Logger.WithTags(tag.ComponentSupervisor, tag.SupervisorID(cfg.ID))

	s := &Supervisor{
		status: common.DaemonStatusInitialized,
		id:     cfg.ID,
		cfg:    cfg,
		state:  p.State,
		logger: logger,
	}

	s.syncQueue = event.NewQueue(syncQueueName, logger,
		event.WithFailFast(s.killFunc(syncQueueName, p.Kill)),
		event.WithQueueMetricsScope(scope))
	s.processesQueue = event.NewQueue(processesQueueName, logger,
		event.WithFailFast(s.killFunc(processesQueueName, p.Kill)),
		event.WithQueueMetricsScope(scope))

	desired := &atomic.Pointer[desiredState]{}
	s.syncProcesses = newSyncProcesses(cfg.ID, cfg, desired, p.Controller, p.State, p.TimeSource, logger, scope)
	s.syncSupervisor = newSyncSupervisor(cfg.ID, cfg.Ports, desired, p.State, s.processesQueue, s.syncProcesses, logger, scope)

	hb := &heartbeat{
		info: types.SupervisorInfo{
			ID:       cfg.ID,
			Hostname: cfg.Hostname,
			Ports:    append([]int(nil), cfg.Ports...),
		},
		startedAt:  p.TimeSource.Now(),
		usedPorts:  s.syncProcesses.UsedPorts,
		state:      p.State,
		timeSource: p.TimeSource,
		logger:     logger,
		scope:      scope,
	}

	newLoop := func(name string, cb event.Callback, interval time.Duration) *event.AsyncLoop {
		return event.NewAsyncLoop(name, cb, logger,
			event.WithRepeat(interval),
			event.WithKillFunc(s.killFunc(name, p.Kill)),
			event.WithLoopTimeSource(p.TimeSource),
			event.WithLoopMetricsScope(scope))
	}
	s.loops = []*event.AsyncLoop{
		newLoop(heartbeatLoopName, hb, cfg.HeartbeatInterval),
		newLoop(syncPusherLoopName,
			event.NewPeriodicTicker(s.syncQueue, s.syncSupervisor, cfg.SyncInterval, &s.active),
			cfg.SyncInterval),
		newLoop(processesPusherLoopName,
			event.NewPeriodicTicker(s.processesQueue, s.syncProcesses, cfg.MonitorInterval, &s.active),
			cfg.MonitorInterval),
	}
	return s
}

// ID returns the node id used in assignments.
func (s *Supervisor) ID() string {
	return s.id
}

// Start starts the queues, the periodic loops and the assignment watch.
func (s *Supervisor) Start() {
	if !atomic.CompareAndSwapInt32(&s.status, common.DaemonStatusInitialized, common.DaemonStatusStarted) {
		return
	}

	s.active.Store(true)
	s.syncQueue.Start()
	s.processesQueue.Start()
	for _, loop := range s.loops {
		loop.Start()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.subscribeCancel = cancel
	s.subscribeWG.Add(1)
	go s.watchAssignments(ctx)

	s.logger.Info("Supervisor started.")
}

// Stop deactivates the tickers, stops the loops and drains the queues. Local
// workers keep running unless KillWorkersOnShutdown is set.
func (s *Supervisor) Stop() {
	if !atomic.CompareAndSwapInt32(&s.status, common.DaemonStatusStarted, common.DaemonStatusStopped) {
		return
	}

	s.active.Store(false)
	s.subscribeCancel()
	s.subscribeWG.Wait()
	for _, loop := range s.loops {
		loop.Stop()
	}
	s.syncQueue.Stop()
	s.processesQueue.Stop()

	if s.cfg.KillWorkersOnShutdown {
		if err := s.syncProcesses.stopAll(context.Background()); err != nil {
			s.logger.Error("Failed to stop workers on shutdown.", tag.Error(err))
		}
	}
	s.logger.Info("Supervisor shutdown.")
}

// TriggerSync schedules a sync-supervisor run outside of the periodic ones.
func (s *Supervisor) TriggerSync() error {
	return s.syncQueue.Submit(s.syncSupervisor)
}

func (s *Supervisor) watchAssignments(ctx context.Context) {
	defer s.subscribeWG.Done()

	revisions, err := s.state.SubscribeAssignments(ctx)
	if err != nil {
		s.logger.Warn("Failed to watch assignments, relying on periodic sync.", tag.Error(err))
		return
	}
	for range revisions {
		if !s.active.Load() {
			return
		}
		if err := s.TriggerSync(); err != nil {
			s.logger.Warn("Failed to trigger sync on assignment change.", tag.Error(err))
		}
	}
}

func (s *Supervisor) killFunc(name string, kill event.KillFunc) event.KillFunc {
	if kill != nil {
		return kill
	}
	return event.NewDefaultKillFunc(name, s.logger)
}
