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

package tag

import (
	"fmt"
	"time"
)

// All logging tags are defined in this file.
// To help finding available tags, we recommend that all tags to be categorized and placed in the corresponding section.
// We currently have those categories:
//   0. Common tags that can't be categorized(or belong to more than one)
//   1. Topology: lifecycle information about a topology
//   2. Supervisor: these tags are about a node agent and the workers it runs
//   3. Internal: these tags are internal information which could be useful for debugging
// The tag names should be in kebab case.

///////////////////  Common tags defined here  ///////////////////

// Error returns tag for Error
func Error(err error) Tag {
	return newErrorTag("error", err)
}

// Timestamp returns tag for Timestamp
func Timestamp(timestamp time.Time) Tag {
	return newTimeTag("timestamp", timestamp)
}

// Counter returns tag for Counter
func Counter(c int) Tag {
	return newInt("counter", c)
}

// Value returns tag for Value
func Value(v any) Tag {
	return newObjectTag("value", v)
}

// Key returns tag for Key
func Key(k string) Tag {
	return newStringTag("key", k)
}

// Dynamic uses reflection based logging for arbitrary values
// for not very performant logging
func Dynamic(key string, v any) Tag {
	return newObjectTag(key, v)
}

// Service returns tag for Service
func Service(sv string) Tag {
	return newStringTag("service", sv)
}

// Operation returns tag for Operation
func Operation(operation string) Tag {
	return newStringTag("operation", operation)
}

///////////////////  Topology tags defined here  ///////////////////

// TopologyID returns tag for TopologyID
func TopologyID(topologyID string) Tag {
	return newStringTag("topology-id", topologyID)
}

// TopologyName returns tag for TopologyName
func TopologyName(name string) Tag {
	return newStringTag("topology-name", name)
}

// TopologyStatus returns tag for TopologyStatus
func TopologyStatus(status fmt.Stringer) Tag {
	return newStringTag("topology-status", status.String())
}

// TopologyNextStatus returns tag for TopologyNextStatus
func TopologyNextStatus(status fmt.Stringer) Tag {
	return newStringTag("topology-next-status", status.String())
}

// TopologyEvent returns tag for TopologyEvent
func TopologyEvent(event string) Tag {
	return newStringTag("topology-event", event)
}

// DelaySecs returns tag for DelaySecs
func DelaySecs(secs int) Tag {
	return newInt("delay-secs", secs)
}

// FireAt returns tag for FireAt
func FireAt(t time.Time) Tag {
	return newTimeTag("fire-at", t)
}

// AssignmentVersion returns tag for AssignmentVersion
func AssignmentVersion(version int64) Tag {
	return newInt64("assignment-version", version)
}

///////////////////  Supervisor tags defined here ///////////////////

// SupervisorID returns tag for SupervisorID
func SupervisorID(id string) Tag {
	return newStringTag("supervisor-id", id)
}

// NodeID returns tag for NodeID
func NodeID(id string) Tag {
	return newStringTag("node-id", id)
}

// SlotPort returns tag for SlotPort
func SlotPort(port int) Tag {
	return newInt("slot-port", port)
}

// WorkerID returns tag for WorkerID
func WorkerID(id string) Tag {
	return newStringTag("worker-id", id)
}

// WorkerPID returns tag for WorkerPID
func WorkerPID(pid int) Tag {
	return newInt("worker-pid", pid)
}

// Tasks returns tag for Tasks
func Tasks(tasks []int) Tag {
	return newObjectTag("tasks", tasks)
}

// ReconcileAction returns tag for ReconcileAction
func ReconcileAction(action fmt.Stringer) Tag {
	return newStringTag("reconcile-action", action.String())
}

// WorkerAlive returns tag for WorkerAlive
func WorkerAlive(alive bool) Tag {
	return newBoolTag("worker-alive", alive)
}

// HeartbeatAge returns tag for HeartbeatAge
func HeartbeatAge(age time.Duration) Tag {
	return newDurationTag("heartbeat-age", age)
}

///////////////////  Internal tags defined here ///////////////////

// Name returns tag for Name
func Name(name string) Tag {
	return newStringTag("name", name)
}

// QueueName returns tag for QueueName
func QueueName(name string) Tag {
	return newStringTag("queue-name", name)
}

// QueueLength returns tag for QueueLength
func QueueLength(length int) Tag {
	return newInt("queue-length", length)
}

// Interval returns tag for Interval
func Interval(d time.Duration) Tag {
	return newDurationTag("interval", d)
}

// Timeout returns tag for Timeout
func Timeout(d time.Duration) Tag {
	return newDurationTag("timeout", d)
}

// Latency returns tag for Latency
func Latency(d time.Duration) Tag {
	return newDurationTag("latency", d)
}

// StoreOperation returns tag for StoreOperation
func StoreOperation(op string) Tag {
	return newStringTag("store-operation", op)
}

// StoreType returns tag for StoreType
func StoreType(t string) Tag {
	return newStringTag("store-type", t)
}

// Address returns tag for Address
func Address(ad string) Tag {
	return newStringTag("address", ad)
}

// Panic returns tag for a recovered panic value
func Panic(v any) Tag {
	return newObjectTag("panic", v)
}

// pre-defined tags

// ComponentNimbus is the tag for the master daemon
var ComponentNimbus = newPredefinedStringTag("component", "nimbus")

// ComponentSupervisor is the tag for the node agent daemon
var ComponentSupervisor = newPredefinedStringTag("component", "supervisor")

// ComponentEventQueue is the tag for event queues
var ComponentEventQueue = newPredefinedStringTag("component", "event-queue")

// ComponentAsyncLoop is the tag for supervisory loops
var ComponentAsyncLoop = newPredefinedStringTag("component", "async-loop")

// ComponentDelayedEvents is the tag for the delayed transition scheduler
var ComponentDelayedEvents = newPredefinedStringTag("component", "delayed-events")

// ComponentStore is the tag for the coordination store
var ComponentStore = newPredefinedStringTag("component", "store")

// ComponentProcessController is the tag for worker process control
var ComponentProcessController = newPredefinedStringTag("component", "process-controller")
