package nimbus

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uber-go/tally"

	"github.com/yawfe/stormd/common/clock"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
	"github.com/yawfe/stormd/common/metrics"
)

// DelayedEvent is a transition applied to a topology once its delay expires.
type DelayedEvent struct {
	TopologyID string
	Event      Event
	DelaySecs  int
	FireAt     time.Time

	generation int64
}

type pendingEvent struct {
	DelayedEvent
	fired bool
}

// delayedEventScheduler keeps at most one pending delayed event per topology.
// Scheduling a new event for a topology supersedes the previous one, even if
// the previous one already fired and waits in the transitions queue: claim
// rejects it because its generation is stale.
type delayedEventScheduler struct {
	sync.Mutex
	pending        map[string]*pendingEvent
	nextGeneration int64

	gate       clock.TimerGate
	timeSource clock.TimeSource
	fire       func(DelayedEvent)

	logger log.Logger
	scope  tally.Scope
}

func newDelayedEventScheduler(
	timeSource clock.TimeSource,
	fire func(DelayedEvent),
	logger log.Logger,
	scope tally.Scope,
) *delayedEventScheduler {
	return &delayedEventScheduler{
		pending:    make(map[string]*pendingEvent),
		gate:       clock.NewTimerGate(timeSource),
		timeSource: timeSource,
		fire:       fire,
		logger:     logger.WithTags(tag.ComponentDelayedEvents),
		scope:      scope,
	}
}

// Schedule replaces the pending event of topologyID with ev after delaySecs.
func (s *delayedEventScheduler) Schedule(topologyID string, ev Event, delaySecs int) DelayedEvent {
	s.Lock()
	defer s.Unlock()

	s.supersedeLocked(topologyID)
	s.nextGeneration++
	delayed := DelayedEvent{
		TopologyID: topologyID,
		Event:      ev,
		DelaySecs:  delaySecs,
		FireAt:     s.timeSource.Now().Add(time.Duration(delaySecs) * time.Second),
		generation: s.nextGeneration,
	}
	s.pending[topologyID] = &pendingEvent{DelayedEvent: delayed}
	s.rearmLocked()

	s.scope.Tagged(map[string]string{metrics.EventTag: ev.String()}).Counter(metrics.DelayedEventsScheduled).Inc(1)
	s.logger.Info("Delayed event scheduled.",
		tag.TopologyID(topologyID),
		tag.TopologyEvent(ev.String()),
		tag.DelaySecs(delaySecs),
		tag.FireAt(delayed.FireAt))
	return delayed
}

// Cancel drops the pending event of topologyID, if any.
func (s *delayedEventScheduler) Cancel(topologyID string) {
	s.Lock()
	defer s.Unlock()

	if s.supersedeLocked(topologyID) {
		s.rearmLocked()
	}
}

// Claim reports whether a fired event is still the current one for its
// topology and, if so, consumes it.
func (s *delayedEventScheduler) Claim(ev DelayedEvent) bool {
	s.Lock()
	defer s.Unlock()

	p, ok := s.pending[ev.TopologyID]
	if !ok || p.generation != ev.generation {
		return false
	}
	delete(s.pending, ev.TopologyID)
	return true
}

// Pending returns the pending event of topologyID.
func (s *delayedEventScheduler) Pending(topologyID string) (DelayedEvent, bool) {
	s.Lock()
	defer s.Unlock()

	p, ok := s.pending[topologyID]
	if !ok {
		return DelayedEvent{}, false
	}
	return p.DelayedEvent, true
}

// Run fires due events until ctx is done.
func (s *delayedEventScheduler) Run(ctx context.Context) error {
	defer s.gate.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.gate.Chan():
			s.fireDue()
		}
	}
}

func (s *delayedEventScheduler) fireDue() {
	now := s.timeSource.Now()

	s.Lock()
	var due []DelayedEvent
	for _, p := range s.pending {
		if !p.fired && !p.FireAt.After(now) {
			p.fired = true
			due = append(due, p.DelayedEvent)
		}
	}
	s.rearmLocked()
	s.Unlock()

	sort.Slice(due, func(i, j int) bool {
		return due[i].FireAt.Before(due[j].FireAt)
	})
	for _, ev := range due {
		s.scope.Tagged(map[string]string{metrics.EventTag: ev.Event.String()}).Counter(metrics.DelayedEventsFired).Inc(1)
		s.logger.Debug("Delayed event fired.", tag.TopologyID(ev.TopologyID), tag.TopologyEvent(ev.Event.String()))
		s.fire(ev)
	}
}

// supersedeLocked removes the pending event of topologyID and reports whether there was one.
func (s *delayedEventScheduler) supersedeLocked(topologyID string) bool {
	p, ok := s.pending[topologyID]
	if !ok {
		return false
	}
	delete(s.pending, topologyID)
	s.scope.Tagged(map[string]string{metrics.EventTag: p.Event.String()}).Counter(metrics.DelayedEventsSuperseded).Inc(1)
	s.logger.Info("Delayed event superseded.",
		tag.TopologyID(topologyID),
		tag.TopologyEvent(p.Event.String()),
		tag.FireAt(p.FireAt))
	return true
}

// rearmLocked points the gate at the earliest event that has not fired.
func (s *delayedEventScheduler) rearmLocked() {
	var earliest time.Time
	for _, p := range s.pending {
		if p.fired {
			continue
		}
		if earliest.IsZero() || p.FireAt.Before(earliest) {
			earliest = p.FireAt
		}
	}
	if earliest.IsZero() {
		s.gate.Stop()
		return
	}
	s.gate.Update(earliest)
}
