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

// SupervisorInfo is what a supervisor advertises about itself.
type SupervisorInfo struct {
	ID            string `json:"id"`
	Hostname      string `json:"hostname"`
	Ports         []int  `json:"ports"`
	UsedPorts     []int  `json:"usedPorts,omitempty"`
	UptimeSecs    int64  `json:"uptimeSecs"`
	TimestampSecs int64  `json:"timestampSecs"`
}

// SlotHeartbeat records the assignment a supervisor runs in one of its slots.
type SlotHeartbeat struct {
	Port       int    `json:"port"`
	TopologyID string `json:"topologyId"`
	Tasks      []int  `json:"tasks"`
	Version    int64  `json:"version"`
	WorkerID   string `json:"workerId"`
	TimeSecs   int64  `json:"timeSecs"`
}

// SupervisorHeartbeat is published after every reconciliation.
type SupervisorHeartbeat struct {
	SupervisorID string          `json:"supervisorId"`
	TimeSecs     int64           `json:"timeSecs"`
	Slots        []SlotHeartbeat `json:"slots"`
}
