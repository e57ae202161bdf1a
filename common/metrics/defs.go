// The MIT License (MIT)

// Copyright (c) 2017-2020 Uber Technologies Inc.

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package metrics

// Tag keys
const (
	QueueTag     = "queue"
	LoopTag      = "loop"
	OperationTag = "operation"
	EventTag     = "event"
	ActionTag    = "action"
	StatusTag    = "status"
)

// Event queue and supervisory loop metrics
const (
	EventQueueSubmitted = "event_queue_submitted"
	EventQueueExecuted  = "event_queue_executed"
	EventQueueFailed    = "event_queue_failed"
	EventQueueDropped   = "event_queue_dropped"
	EventQueueLatency   = "event_queue_latency"
	EventQueueLength    = "event_queue_length"

	AsyncLoopRuns   = "async_loop_runs"
	AsyncLoopKilled = "async_loop_killed"
)

// Coordination store metrics
const (
	StoreRequests = "store_requests"
	StoreFailures = "store_failures"
	StoreNotFound = "store_not_found"
	StoreLatency  = "store_latency"
)

// Nimbus metrics
const (
	TopologyTransitions        = "topology_transitions"
	TopologyTransitionRejected = "topology_transition_rejected"
	TopologyTransitionFailures = "topology_transition_failures"
	TopologyTransitionLatency  = "topology_transition_latency"
	DelayedEventsScheduled     = "delayed_events_scheduled"
	DelayedEventsFired         = "delayed_events_fired"
	DelayedEventsSuperseded    = "delayed_events_superseded"
)

// Supervisor metrics
const (
	SupervisorSyncFailures = "supervisor_sync_failures"
	ReconcileRuns          = "reconcile_runs"
	ReconcileActions       = "reconcile_actions"
	ReconcileFailures      = "reconcile_failures"
	ReconcileLatency       = "reconcile_latency"
	WorkerRestarts         = "worker_restarts"
	LocalWorkers           = "local_workers"
	HeartbeatFailures      = "heartbeat_failures"
)
