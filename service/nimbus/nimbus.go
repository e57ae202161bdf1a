package nimbus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/multierr"

	"github.com/yawfe/stormd/common"
	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/cluster"
	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/event"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/metrics"
	"github.com/yawfe/stormd/common/types"
)

const (
	transitionsQueueName = "nimbus-transitions"
	delayedEventsLoop    = "nimbus-delayed-events"

	defaultTransitionTimeout = 30 * time.Second
)

// ErrTopologyExists is returned when submitting a topology id that is already in use.
var ErrTopologyExists = errors.New("topology already exists")

type (
	// Rebalancer redistributes a topology once its rebalance delay expired.
	Rebalancer interface {
		Rebalance(ctx context.Context, topologyID string, base *types.TopologyBase) error
	}

	// Params are the dependencies of Nimbus.
	Params struct {
		Config     config.Nimbus
		State      *cluster.State
		Logger     log.Logger
		Scope      tally.Scope
		TimeSource clock.TimeSource
		// Rebalancer is optional; rebalancing only restores the previous status without it.
		Rebalancer Rebalancer
		// Kill is invoked when the delayed event loop fails. Defaults to halting the process.
		Kill event.KillFunc
	}

	// Nimbus owns the lifecycle of topologies. Every transition runs on a
	// single queue, so transitions of the cluster never interleave.
	Nimbus struct {
		status int32

		cfg        config.Nimbus
		state      *cluster.State
		machine    *stateMachine
		queue      *event.Queue
		scheduler  *delayedEventScheduler
		loop       *event.AsyncLoop
		rebalancer Rebalancer
		timeSource clock.TimeSource

		logger log.Logger
		scope  tally.Scope
	}

	transitionResult struct {
		status *types.TopologyStatus
		err    error
	}

	noopRebalancer struct{}
)

var _ common.Daemon = (*Nimbus)(nil)

func (noopRebalancer) Rebalance(context.Context, string, *types.TopologyBase) error {
	return nil
}

// New creates a Nimbus. It does nothing until Start.
func New(p Params) *Nimbus {
	scope := p.Scope
	if scope == nil {
		scope = tally.NoopScope
	}
	rebalancer := p.Rebalancer
	if rebalancer == nil {
		rebalancer = noopRebalancer{}
	}
	if p.Config.TransitionTimeout <= 0 {
		p.Config.TransitionTimeout = defaultTransitionTimeout
	}
	logger := p.Logger.WithTags(tag.ComponentNimbus)

	n := &Nimbus{
		status:     common.DaemonStatusInitialized,
		cfg:        p.Config,
		state:      p.State,
		rebalancer: rebalancer,
		timeSource: p.TimeSource,
		logger:     logger,
		scope:      scope,
	}
	n.machine = &stateMachine{resolveDelay: n.resolveDelay, logger: logger}
	n.queue = event.NewQueue(transitionsQueueName, logger, event.WithQueueMetricsScope(scope))
	n.scheduler = newDelayedEventScheduler(p.TimeSource, n.fireDelayed, logger, scope)

	loopOpts := []event.LoopOption{
		event.WithLoopTimeSource(p.TimeSource),
		event.WithLoopMetricsScope(scope),
	}
	if p.Kill != nil {
		loopOpts = append(loopOpts, event.WithKillFunc(p.Kill))
	}
	n.loop = event.NewAsyncLoop(delayedEventsLoop, event.CallbackFunc(n.scheduler.Run), logger, loopOpts...)
	return n
}

// Start starts the transitions queue and the delayed event loop, then re-arms
// the delayed events of killed and rebalancing topologies.
func (n *Nimbus) Start() {
	if !atomic.CompareAndSwapInt32(&n.status, common.DaemonStatusInitialized, common.DaemonStatusStarted) {
		return
	}

	n.queue.Start()
	n.loop.Start()
	if err := n.queue.Submit(event.CallbackFunc(n.recoverDelayedEvents)); err != nil {
		n.logger.Error("Failed to submit delayed event recovery.", tag.Error(err))
	}
	n.logger.Info("Nimbus started.")
}

// Stop stops the delayed event loop and runs the transitions already submitted.
func (n *Nimbus) Stop() {
	if !atomic.CompareAndSwapInt32(&n.status, common.DaemonStatusStarted, common.DaemonStatusStopped) {
		return
	}

	n.loop.Stop()
	n.queue.Stop()
	n.logger.Info("Nimbus shutdown.")
}

// Transition applies ev to a topology and waits for the outcome. It returns the
// new status, or nil when the topology was removed.
func (n *Nimbus) Transition(ctx context.Context, topologyID string, ev Event, delay Delay) (*types.TopologyStatus, error) {
	resultCh := make(chan transitionResult, 1)
	err := n.queue.Submit(event.CallbackFunc(func(ctx context.Context) error {
		status, err := n.applyTransition(ctx, topologyID, ev, delay)
		resultCh <- transitionResult{status: status, err: err}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.TransitionTimeout)
	defer cancel()
	select {
	case result := <-resultCh:
		return result.status, result.err
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for %s on topology %s: %w", ev, topologyID, ctx.Err())
	}
}

// TransitionAsync submits a transition without waiting for it.
func (n *Nimbus) TransitionAsync(topologyID string, ev Event, delay Delay) error {
	return n.queue.Submit(event.CallbackFunc(func(ctx context.Context) error {
		_, err := n.applyTransition(ctx, topologyID, ev, delay)
		return err
	}))
}

// Kill kills a topology. It is removed once delay expired.
func (n *Nimbus) Kill(ctx context.Context, topologyID string, delay Delay) (*types.TopologyStatus, error) {
	return n.Transition(ctx, topologyID, EventKill, delay)
}

// Rebalance marks a topology as rebalancing. It gets redistributed and
// returns to its current status once delay expired.
func (n *Nimbus) Rebalance(ctx context.Context, topologyID string, delay Delay) (*types.TopologyStatus, error) {
	return n.Transition(ctx, topologyID, EventRebalance, delay)
}

// Activate activates a topology.
func (n *Nimbus) Activate(ctx context.Context, topologyID string) (*types.TopologyStatus, error) {
	return n.Transition(ctx, topologyID, EventActivate, NoDelay)
}

// Inactivate deactivates a topology.
func (n *Nimbus) Inactivate(ctx context.Context, topologyID string) (*types.TopologyStatus, error) {
	return n.Transition(ctx, topologyID, EventInactivate, NoDelay)
}

// SubmitTopology stores a new active topology with its config.
func (n *Nimbus) SubmitTopology(ctx context.Context, topologyID string, base types.TopologyBase, conf types.TopologyConfig) error {
	resultCh := make(chan error, 1)
	err := n.queue.Submit(event.CallbackFunc(func(ctx context.Context) error {
		resultCh <- n.submitTopology(ctx, topologyID, base, conf)
		return nil
	}))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.TransitionTimeout)
	defer cancel()
	select {
	case err := <-resultCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("wait for submission of topology %s: %w", topologyID, ctx.Err())
	}
}

// PendingEvent returns the delayed event waiting for a topology.
func (n *Nimbus) PendingEvent(topologyID string) (DelayedEvent, bool) {
	return n.scheduler.Pending(topologyID)
}

func (n *Nimbus) submitTopology(ctx context.Context, topologyID string, base types.TopologyBase, conf types.TopologyConfig) error {
	_, _, err := n.state.GetTopology(ctx, topologyID)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrTopologyExists, topologyID)
	}
	if !errors.Is(err, cluster.ErrTopologyNotFound) {
		return err
	}

	if base.LaunchTimeSecs == 0 {
		base.LaunchTimeSecs = n.timeSource.Now().Unix()
	}
	base.Status = types.ActiveStatus()
	if conf == nil {
		conf = types.TopologyConfig{}
	}
	// config first, so a visible topology always has one
	if err := n.state.SetTopologyConfig(ctx, topologyID, conf); err != nil {
		return err
	}
	if _, err := n.state.SetTopology(ctx, topologyID, &base); err != nil {
		return err
	}
	n.logger.Info("Topology submitted.", tag.TopologyID(topologyID), tag.TopologyName(base.Name))
	return nil
}

// applyTransition computes, persists and schedules. It only runs on the transitions queue.
func (n *Nimbus) applyTransition(ctx context.Context, topologyID string, ev Event, delay Delay) (*types.TopologyStatus, error) {
	scope := n.scope.Tagged(map[string]string{metrics.EventTag: ev.String()})
	sw := scope.Timer(metrics.TopologyTransitionLatency).Start()
	defer sw.Stop()

	ctx, cancel := context.WithTimeout(ctx, n.cfg.TransitionTimeout)
	defer cancel()

	logger := n.logger.WithTags(tag.TopologyID(topologyID), tag.TopologyEvent(ev.String()))

	base, _, err := n.state.GetTopology(ctx, topologyID)
	if err != nil {
		if !errors.Is(err, cluster.ErrTopologyNotFound) {
			scope.Counter(metrics.TopologyTransitionFailures).Inc(1)
		}
		return nil, fmt.Errorf("transition %s: %w", ev, err)
	}
	logger = logger.WithTags(tag.TopologyStatus(base.Status))

	next, err := n.machine.next(ctx, topologyID, base.Status, ev, delay)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			scope.Counter(metrics.TopologyTransitionRejected).Inc(1)
			logger.Warn("Topology transition rejected.", tag.Error(err))
		} else {
			scope.Counter(metrics.TopologyTransitionFailures).Inc(1)
		}
		return nil, err
	}

	if next == nil {
		if err := n.state.RemoveTopology(ctx, topologyID); err != nil {
			scope.Counter(metrics.TopologyTransitionFailures).Inc(1)
			return nil, err
		}
		n.scheduler.Cancel(topologyID)
		scope.Counter(metrics.TopologyTransitions).Inc(1)
		logger.Info("Topology removed.")
		return nil, nil
	}

	if !next.Equal(base.Status) {
		base.Status = *next
		if _, err := n.state.SetTopology(ctx, topologyID, base); err != nil {
			scope.Counter(metrics.TopologyTransitionFailures).Inc(1)
			return nil, err
		}
	}

	if followEvent, ok := followUp(next.Type); ok {
		delaySecs, ok := next.Delay()
		if !ok {
			delaySecs = defaultDelaySecs
		}
		n.scheduler.Schedule(topologyID, followEvent, delaySecs)
	} else {
		n.scheduler.Cancel(topologyID)
	}

	scope.Counter(metrics.TopologyTransitions).Inc(1)
	logger.Info("Topology transitioned.", tag.TopologyNextStatus(next))
	return next, nil
}

// resolveDelay picks the explicit delay, then the topology message timeout,
// then the default. Negative or unreadable values fall back to the default.
func (n *Nimbus) resolveDelay(ctx context.Context, topologyID string, delay Delay) int {
	if secs, ok := delay.Get(); ok {
		if secs >= 0 {
			return secs
		}
		n.logger.Warn("Negative delay, using default.", tag.TopologyID(topologyID), tag.DelaySecs(secs))
		return defaultDelaySecs
	}

	conf, err := n.state.GetTopologyConfig(ctx, topologyID)
	if err != nil {
		n.logger.Warn("Failed to read topology config, using default delay.", tag.TopologyID(topologyID), tag.Error(err))
		return defaultDelaySecs
	}
	secs, ok, err := conf.Int(types.TopologyMessageTimeoutSecs)
	switch {
	case err != nil:
		n.logger.Warn("Invalid topology message timeout, using default delay.", tag.TopologyID(topologyID), tag.Error(err))
		return defaultDelaySecs
	case !ok, secs < 0:
		return defaultDelaySecs
	}
	return secs
}

func (n *Nimbus) fireDelayed(ev DelayedEvent) {
	err := n.queue.Submit(event.CallbackFunc(func(ctx context.Context) error {
		return n.executeDelayed(ctx, ev)
	}))
	if err != nil {
		n.logger.Warn("Dropping delayed event.",
			tag.TopologyID(ev.TopologyID),
			tag.TopologyEvent(ev.Event.String()),
			tag.Error(err))
	}
}

func (n *Nimbus) executeDelayed(ctx context.Context, ev DelayedEvent) error {
	if !n.scheduler.Claim(ev) {
		n.logger.Debug("Discarding superseded delayed event.",
			tag.TopologyID(ev.TopologyID),
			tag.TopologyEvent(ev.Event.String()))
		return nil
	}

	status, err := n.applyTransition(ctx, ev.TopologyID, ev.Event, NoDelay)
	switch {
	case errors.Is(err, cluster.ErrTopologyNotFound):
		n.logger.Info("Topology already removed, ignoring delayed event.",
			tag.TopologyID(ev.TopologyID),
			tag.TopologyEvent(ev.Event.String()))
		return nil
	case errors.Is(err, ErrInvalidTransition):
		return nil
	case err != nil:
		// retry unless another transition scheduled something meanwhile
		if _, ok := n.scheduler.Pending(ev.TopologyID); !ok {
			n.scheduler.Schedule(ev.TopologyID, ev.Event, defaultDelaySecs)
		}
		return fmt.Errorf("delayed %s on topology %s: %w", ev.Event, ev.TopologyID, err)
	}

	if ev.Event == EventDoRebalance && status != nil {
		base, _, err := n.state.GetTopology(ctx, ev.TopologyID)
		if err != nil {
			return err
		}
		return n.rebalancer.Rebalance(ctx, ev.TopologyID, base)
	}
	return nil
}

func (n *Nimbus) recoverDelayedEvents(ctx context.Context) error {
	topologies, err := n.state.ListTopologies(ctx)
	if err != nil {
		return fmt.Errorf("recover delayed events: %w", err)
	}

	ids := make([]string, 0, len(topologies))
	for id, base := range topologies {
		if _, ok := followUp(base.Status.Type); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var errs error
	for _, id := range ids {
		if _, err := n.applyTransition(ctx, id, EventStartup, NoDelay); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if len(ids) > 0 {
		n.logger.Info("Recovered delayed events.", tag.Counter(len(ids)))
	}
	return errs
}
