package grouping

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

type (
	shuffleGrouping struct {
		tasks []int
		next  atomic.Uint64
	}

	fieldsGrouping struct {
		fields  []string
		indexes []int
		tasks   []int
	}

	allGrouping struct {
		tasks []int
	}

	globalGrouping struct {
		task int
	}

	noneGrouping struct {
		tasks []int
	}
)

// Shuffle spreads tuples evenly over the targets, in a random order that
// repeats every len(targets) tuples.
func Shuffle() CustomStreamGrouping {
	return &shuffleGrouping{}
}

// Fields sends tuples with equal values in the named fields to the same task.
func Fields(fields ...string) CustomStreamGrouping {
	return &fieldsGrouping{fields: fields}
}

// All replicates every tuple to every target.
func All() CustomStreamGrouping {
	return &allGrouping{}
}

// Global sends every tuple to the lowest target task.
func Global() CustomStreamGrouping {
	return &globalGrouping{}
}

// None leaves the choice to the runtime; currently a random target.
func None() CustomStreamGrouping {
	return &noneGrouping{}
}

func (g *shuffleGrouping) Prepare(_ *WorkerTopologyContext, _ GlobalStreamID, targetTasks []int) error {
	g.tasks = append([]int(nil), targetTasks...)
	rand.Shuffle(len(g.tasks), func(i, j int) {
		g.tasks[i], g.tasks[j] = g.tasks[j], g.tasks[i]
	})
	return nil
}

func (g *shuffleGrouping) ChooseTasks(int, []any) []int {
	i := (g.next.Add(1) - 1) % uint64(len(g.tasks))
	return []int{g.tasks[i]}
}

func (g *fieldsGrouping) Prepare(ctx *WorkerTopologyContext, stream GlobalStreamID, targetTasks []int) error {
	declared, ok := ctx.Fields(stream)
	if !ok {
		return fmt.Errorf("stream %v declares no fields", stream)
	}
	position := make(map[string]int, len(declared))
	for i, f := range declared {
		position[f] = i
	}

	g.indexes = make([]int, 0, len(g.fields))
	for _, f := range g.fields {
		i, ok := position[f]
		if !ok {
			return fmt.Errorf("field %q is not declared by stream %v", f, stream)
		}
		g.indexes = append(g.indexes, i)
	}
	g.tasks = targetTasks
	return nil
}

func (g *fieldsGrouping) ChooseTasks(_ int, values []any) []int {
	d := xxhash.New()
	for _, i := range g.indexes {
		var v any
		if i < len(values) {
			v = values[i]
		}
		// separator keeps ("ab","c") and ("a","bc") apart
		fmt.Fprintf(d, "%v\x00", v)
	}
	return []int{g.tasks[d.Sum64()%uint64(len(g.tasks))]}
}

func (g *allGrouping) Prepare(_ *WorkerTopologyContext, _ GlobalStreamID, targetTasks []int) error {
	g.tasks = targetTasks
	return nil
}

func (g *allGrouping) ChooseTasks(int, []any) []int {
	return append([]int(nil), g.tasks...)
}

func (g *globalGrouping) Prepare(_ *WorkerTopologyContext, _ GlobalStreamID, targetTasks []int) error {
	// targets arrive sorted
	g.task = targetTasks[0]
	return nil
}

func (g *globalGrouping) ChooseTasks(int, []any) []int {
	return []int{g.task}
}

func (g *noneGrouping) Prepare(_ *WorkerTopologyContext, _ GlobalStreamID, targetTasks []int) error {
	g.tasks = targetTasks
	return nil
}

func (g *noneGrouping) ChooseTasks(int, []any) []int {
	return []int{g.tasks[rand.IntN(len(g.tasks))]}
}
