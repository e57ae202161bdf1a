package supervisor

import (
	"context"
	"time"

	"github.com/yawfe/stormd/common/types"
)

//go:generate mockgen -package $GOPACKAGE -source $GOFILE -destination=interfaces_mock.go ProcessController,HeartbeatReader

type (
	// LocalAssignment is the part of an assignment that runs in one local slot.
	LocalAssignment struct {
		TopologyID string
		// Tasks is sorted and free of duplicates.
		Tasks   []int
		Version int64
	}

	// WorkerHandle identifies a worker process started by a ProcessController.
	WorkerHandle struct {
		ID         string
		Port       int
		PID        int
		TopologyID string
		StartedAt  time.Time
	}

	// ProcessController starts, stops and probes worker processes.
	ProcessController interface {
		StartWorker(ctx context.Context, slot types.SlotID, assignment LocalAssignment) (WorkerHandle, error)
		StopWorker(ctx context.Context, handle WorkerHandle) error
		IsAlive(ctx context.Context, handle WorkerHandle) bool
	}

	// HeartbeatReader is implemented by controllers that know when a worker
	// last reported in. Without it only liveness is checked.
	HeartbeatReader interface {
		LastHeartbeat(ctx context.Context, handle WorkerHandle) (time.Time, bool)
	}
)

// SameWork reports whether a and b run the same tasks of the same topology.
func (a LocalAssignment) SameWork(b LocalAssignment) bool {
	return a.TopologyID == b.TopologyID && types.SameTasks(a.Tasks, b.Tasks)
}
