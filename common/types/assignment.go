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
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SlotID identifies a worker slot: a port on a node.
type SlotID struct {
	NodeID string
	Port   int
}

func (s SlotID) String() string {
	return s.NodeID + ":" + strconv.Itoa(s.Port)
}

// MarshalText lets SlotID be used as a JSON object key.
func (s SlotID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses node:port. The node id may itself contain colons.
func (s *SlotID) UnmarshalText(text []byte) error {
	str := string(text)
	idx := strings.LastIndex(str, ":")
	if idx <= 0 {
		return fmt.Errorf("invalid slot id %q", str)
	}
	port, err := strconv.Atoi(str[idx+1:])
	if err != nil {
		return fmt.Errorf("invalid slot id %q: %w", str, err)
	}
	s.NodeID = str[:idx]
	s.Port = port
	return nil
}

// Assignment is the master's placement of a topology's tasks onto slots.
type Assignment struct {
	TopologyID     string           `json:"topologyId"`
	Version        int64            `json:"version"`
	AssignedAtSecs int64            `json:"assignedAtSecs"`
	Slots          map[SlotID][]int `json:"slots"`
}

// SlotsOnNode returns the slots of the assignment placed on nodeID.
func (a *Assignment) SlotsOnNode(nodeID string) map[int][]int {
	result := make(map[int][]int)
	for slot, tasks := range a.Slots {
		if slot.NodeID == nodeID {
			result[slot.Port] = tasks
		}
	}
	return result
}

// SortedTasks returns a sorted copy of tasks without duplicates.
func SortedTasks(tasks []int) []int {
	sorted := append([]int(nil), tasks...)
	sort.Ints(sorted)
	out := sorted[:0]
	for i, t := range sorted {
		if i == 0 || t != sorted[i-1] {
			out = append(out, t)
		}
	}
	return out
}

// SameTasks reports whether a and b hold the same set of tasks.
func SameTasks(a, b []int) bool {
	sa, sb := SortedTasks(a), SortedTasks(b)
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
