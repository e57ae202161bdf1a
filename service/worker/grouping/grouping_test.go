package grouping

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sentences = GlobalStreamID{ComponentID: "spout", StreamID: "default"}
	testCtx   = &WorkerTopologyContext{
		TopologyID: "wc-1",
		TaskToComponent: map[int]string{
			1: "spout", 2: "spout",
			3: "count", 4: "count", 5: "count",
		},
		OutputFields: map[GlobalStreamID][]string{
			sentences: {"word", "count"},
		},
		WorkerPort:  6700,
		WorkerTasks: []int{1, 3},
	}
)

type badGrouping struct{}

func (badGrouping) Prepare(*WorkerTopologyContext, GlobalStreamID, []int) error { return nil }
func (badGrouping) ChooseTasks(int, []any) []int                              { return []int{42} }

func newTestGrouper(t *testing.T, g CustomStreamGrouping) *Grouper {
	grouper, err := NewGrouper(testCtx, sentences, []int{5, 3, 4}, g)
	require.NoError(t, err)
	return grouper
}

func TestComponentTasks(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, testCtx.ComponentTasks("count"))
	assert.Empty(t, testCtx.ComponentTasks("missing"))
}

func TestShuffle(t *testing.T) {
	g := newTestGrouper(t, Shuffle())

	counts := make(map[int]int)
	for i := 0; i < 30; i++ {
		tasks, err := g.Route(1, []any{"a", 1})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		counts[tasks[0]]++
	}
	assert.Equal(t, map[int]int{3: 10, 4: 10, 5: 10}, counts)
}

func TestFields(t *testing.T) {
	g := newTestGrouper(t, Fields("word"))

	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		word := fmt.Sprintf("word-%d", i)
		first, err := g.Route(1, []any{word, 1})
		require.NoError(t, err)
		second, err := g.Route(2, []any{word, 7})
		require.NoError(t, err)
		assert.Equal(t, first, second, "same word must reach the same task")
		seen[first[0]] = true
	}
	assert.Len(t, seen, 3)
}

func TestFieldsUndeclared(t *testing.T) {
	_, err := NewGrouper(testCtx, sentences, []int{3}, Fields("sentence"))
	assert.ErrorContains(t, err, `field "sentence"`)

	_, err = NewGrouper(testCtx, GlobalStreamID{ComponentID: "spout", StreamID: "errors"}, []int{3}, Fields("word"))
	assert.ErrorContains(t, err, "declares no fields")
}

func TestAllGlobalNone(t *testing.T) {
	tasks, err := newTestGrouper(t, All()).Route(1, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, tasks)

	tasks, err = newTestGrouper(t, Global()).Route(1, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, tasks)

	tasks, err = newTestGrouper(t, None()).Route(1, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Contains(t, []int{3, 4, 5}, tasks[0])
}

func TestRouteRejectsUnknownTask(t *testing.T) {
	g := newTestGrouper(t, badGrouping{})
	_, err := g.Route(1, nil)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestNoTargets(t *testing.T) {
	_, err := NewGrouper(testCtx, sentences, nil, All())
	assert.Error(t, err)
}
