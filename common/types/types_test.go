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

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentJSONUsesSlotKeys(t *testing.T) {
	a := Assignment{
		TopologyID: "wordcount-1",
		Version:    3,
		Slots: map[SlotID][]int{
			{NodeID: "node-a", Port: 6700}:      {1, 2},
			{NodeID: "[::1]:host", Port: 6701}: {3},
		},
	}
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"node-a:6700":[1,2]`)

	var decoded Assignment
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, a, decoded)
	assert.Equal(t, map[int][]int{6700: {1, 2}}, decoded.SlotsOnNode("node-a"))
}

func TestSlotIDUnmarshalInvalid(t *testing.T) {
	var s SlotID
	assert.Error(t, s.UnmarshalText([]byte("no-port")))
	assert.Error(t, s.UnmarshalText([]byte("node:abc")))
	assert.Error(t, s.UnmarshalText([]byte(":6700")))
}

func TestTasks(t *testing.T) {
	assert.Equal(t, []int{1, 2, 5}, SortedTasks([]int{5, 1, 2, 1}))
	assert.True(t, SameTasks([]int{3, 1}, []int{1, 3}))
	assert.False(t, SameTasks([]int{1}, []int{1, 2}))
	assert.True(t, SameTasks(nil, []int{}))
}

func TestTopologyStatus(t *testing.T) {
	killed := KilledStatus(30)
	delay, ok := killed.Delay()
	assert.True(t, ok)
	assert.Equal(t, 30, delay)
	assert.Equal(t, "killed(30s)", killed.String())

	_, ok = ActiveStatus().Delay()
	assert.False(t, ok)

	rebalancing := RebalancingStatus(10, InactiveStatus())
	assert.Equal(t, "rebalancing(10s) from inactive", rebalancing.String())

	assert.True(t, killed.Equal(KilledStatus(30)))
	assert.False(t, killed.Equal(KilledStatus(5)))
	assert.False(t, killed.Equal(ActiveStatus()))
	assert.True(t, rebalancing.Equal(RebalancingStatus(10, InactiveStatus())))
	assert.False(t, rebalancing.Equal(RebalancingStatus(10, ActiveStatus())))

	assert.True(t, StatusRebalancing.IsValid())
	assert.False(t, StatusType("removed").IsValid())
}

func TestTopologyConfigInt(t *testing.T) {
	var conf TopologyConfig
	require.NoError(t, json.Unmarshal([]byte(`{"a": 30, "b": "45", "c": "x", "d": null, "e": [1]}`), &conf))

	v, ok, err := conf.Int("a")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30, v)

	v, ok, err = conf.Int("b")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 45, v)

	_, _, err = conf.Int("c")
	assert.Error(t, err)

	_, ok, err = conf.Int("d")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = conf.Int("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = conf.Int("e")
	assert.Error(t, err)
}
