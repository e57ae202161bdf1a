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
	"strconv"
)

// TopologyMessageTimeoutSecs is the topology config key holding the message
// timeout, which is also the default delay of kill and rebalance.
const TopologyMessageTimeoutSecs = "topology.message.timeout.secs"

// StatusType is the lifecycle state of a topology.
type StatusType string

const (
	StatusActive      StatusType = "active"
	StatusInactive    StatusType = "inactive"
	StatusKilled      StatusType = "killed"
	StatusRebalancing StatusType = "rebalancing"
)

// IsValid reports whether s is a known status type.
func (s StatusType) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusKilled, StatusRebalancing:
		return true
	}
	return false
}

func (s StatusType) String() string {
	return string(s)
}

// TopologyStatus is the persisted lifecycle state of a topology. Killed and
// rebalancing carry the delay of their pending follow-up transition, and
// rebalancing remembers the status to return to.
type TopologyStatus struct {
	Type       StatusType      `json:"type"`
	DelaySecs  *int            `json:"delaySecs,omitempty"`
	PrevStatus *TopologyStatus `json:"prevStatus,omitempty"`
}

// ActiveStatus returns the active status.
func ActiveStatus() TopologyStatus {
	return TopologyStatus{Type: StatusActive}
}

// InactiveStatus returns the inactive status.
func InactiveStatus() TopologyStatus {
	return TopologyStatus{Type: StatusInactive}
}

// KilledStatus returns a killed status whose removal is due after delaySecs.
func KilledStatus(delaySecs int) TopologyStatus {
	return TopologyStatus{Type: StatusKilled, DelaySecs: &delaySecs}
}

// RebalancingStatus returns a rebalancing status that returns to prev after delaySecs.
func RebalancingStatus(delaySecs int, prev TopologyStatus) TopologyStatus {
	return TopologyStatus{Type: StatusRebalancing, DelaySecs: &delaySecs, PrevStatus: &prev}
}

// Delay returns the delay carried by the status, if any.
func (s TopologyStatus) Delay() (int, bool) {
	if s.DelaySecs == nil {
		return 0, false
	}
	return *s.DelaySecs, true
}

// Equal compares two statuses by value.
func (s TopologyStatus) Equal(other TopologyStatus) bool {
	if s.Type != other.Type {
		return false
	}
	if (s.DelaySecs == nil) != (other.DelaySecs == nil) {
		return false
	}
	if s.DelaySecs != nil && *s.DelaySecs != *other.DelaySecs {
		return false
	}
	if (s.PrevStatus == nil) != (other.PrevStatus == nil) {
		return false
	}
	return s.PrevStatus == nil || s.PrevStatus.Equal(*other.PrevStatus)
}

func (s TopologyStatus) String() string {
	str := string(s.Type)
	if s.DelaySecs != nil {
		str += "(" + strconv.Itoa(*s.DelaySecs) + "s)"
	}
	if s.PrevStatus != nil {
		str += " from " + s.PrevStatus.String()
	}
	return str
}

// TopologyBase is the durable record of a submitted topology.
type TopologyBase struct {
	Name           string         `json:"name"`
	LaunchTimeSecs int64          `json:"launchTimeSecs"`
	NumWorkers     int            `json:"numWorkers"`
	Owner          string         `json:"owner,omitempty"`
	Status         TopologyStatus `json:"status"`
}

// TopologyConfig is the free-form configuration submitted with a topology.
type TopologyConfig map[string]any

// Int reads key as an integer. JSON numbers and numeric strings are accepted.
func (c TopologyConfig) Int(key string) (int, bool, error) {
	raw, ok := c[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		return int(v), true, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false, fmt.Errorf("config %s: %w", key, err)
		}
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("config %s: unsupported type %T", key, raw)
	}
}
