// Package grouping defines how a worker routes an emitted tuple to the tasks
// of the consuming component.
package grouping

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownTask is returned by Route when a grouping picks a task it was not
// prepared with.
var ErrUnknownTask = errors.New("grouping chose a task outside its targets")

type (
	// GlobalStreamID names a stream by the component emitting it.
	GlobalStreamID struct {
		ComponentID string
		StreamID    string
	}

	// WorkerTopologyContext is the static topology view a worker hands to
	// groupings when they are prepared.
	WorkerTopologyContext struct {
		TopologyID string
		// TaskToComponent maps every task of the topology to its component.
		TaskToComponent map[int]string
		// OutputFields lists the declared fields of each stream.
		OutputFields map[GlobalStreamID][]string
		WorkerPort   int
		WorkerTasks  []int
	}

	// CustomStreamGrouping is implemented by topology authors. Prepare is called
	// once per stream binding before any ChooseTasks call.
	CustomStreamGrouping interface {
		Prepare(ctx *WorkerTopologyContext, stream GlobalStreamID, targetTasks []int) error
		ChooseTasks(sourceTask int, values []any) []int
	}

	// Grouper binds a prepared grouping to one stream and its targets.
	Grouper struct {
		stream   GlobalStreamID
		targets  map[int]struct{}
		grouping CustomStreamGrouping
	}
)

// ComponentTasks returns the sorted tasks of componentID.
func (c *WorkerTopologyContext) ComponentTasks(componentID string) []int {
	var tasks []int
	for task, component := range c.TaskToComponent {
		if component == componentID {
			tasks = append(tasks, task)
		}
	}
	sort.Ints(tasks)
	return tasks
}

// Fields returns the declared output fields of stream.
func (c *WorkerTopologyContext) Fields(stream GlobalStreamID) ([]string, bool) {
	fields, ok := c.OutputFields[stream]
	return fields, ok
}

func (s GlobalStreamID) String() string {
	return s.ComponentID + ":" + s.StreamID
}

// NewGrouper prepares g for stream and returns the bound Grouper.
func NewGrouper(ctx *WorkerTopologyContext, stream GlobalStreamID, targetTasks []int, g CustomStreamGrouping) (*Grouper, error) {
	if len(targetTasks) == 0 {
		return nil, fmt.Errorf("stream %v has no target tasks", stream)
	}
	sorted := append([]int(nil), targetTasks...)
	sort.Ints(sorted)
	if err := g.Prepare(ctx, stream, sorted); err != nil {
		return nil, fmt.Errorf("prepare grouping for stream %v: %w", stream, err)
	}

	targets := make(map[int]struct{}, len(sorted))
	for _, t := range sorted {
		targets[t] = struct{}{}
	}
	return &Grouper{
		stream:   stream,
		targets:  targets,
		grouping: g,
	}, nil
}

// Route returns the tasks the tuple emitted by sourceTask goes to.
func (g *Grouper) Route(sourceTask int, values []any) ([]int, error) {
	tasks := g.grouping.ChooseTasks(sourceTask, values)
	for _, t := range tasks {
		if _, ok := g.targets[t]; !ok {
			return nil, fmt.Errorf("%w: task %d on stream %v", ErrUnknownTask, t, g.stream)
		}
	}
	return tasks, nil
}

// Stream returns the stream the grouper was prepared for.
func (g *Grouper) Stream() GlobalStreamID {
	return g.stream
}
