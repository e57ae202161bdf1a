package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanReconcile(t *testing.T) {
	wc := LocalAssignment{TopologyID: "wc-1", Tasks: []int{1, 2}, Version: 3}
	wcNewVersion := LocalAssignment{TopologyID: "wc-1", Tasks: []int{1, 2}, Version: 4}
	wcOtherTasks := LocalAssignment{TopologyID: "wc-1", Tasks: []int{3}, Version: 4}
	other := LocalAssignment{TopologyID: "other-2", Tasks: []int{1, 2}, Version: 4}

	tests := []struct {
		name      string
		desired   map[int]LocalAssignment
		local     map[int]LocalAssignment
		unhealthy map[int]bool
		want      []reconcileAction
	}{
		{
			name:    "start in empty slot",
			desired: map[int]LocalAssignment{6700: wc},
			want:    []reconcileAction{{Type: actionStart, Port: 6700, Desired: wc}},
		},
		{
			name:    "converged",
			desired: map[int]LocalAssignment{6700: wc},
			local:   map[int]LocalAssignment{6700: wc},
		},
		{
			name:  "stop unassigned slot",
			local: map[int]LocalAssignment{6701: wc},
			want:  []reconcileAction{{Type: actionStop, Port: 6701}},
		},
		{
			name:    "replace on new topology",
			desired: map[int]LocalAssignment{6700: other},
			local:   map[int]LocalAssignment{6700: wc},
			want:    []reconcileAction{{Type: actionReplace, Port: 6700, Desired: other}},
		},
		{
			name:    "replace on new tasks",
			desired: map[int]LocalAssignment{6700: wcOtherTasks},
			local:   map[int]LocalAssignment{6700: wc},
			want:    []reconcileAction{{Type: actionReplace, Port: 6700, Desired: wcOtherTasks}},
		},
		{
			name:    "adopt version only change",
			desired: map[int]LocalAssignment{6700: wcNewVersion},
			local:   map[int]LocalAssignment{6700: wc},
			want:    []reconcileAction{{Type: actionAdopt, Port: 6700, Desired: wcNewVersion}},
		},
		{
			name:      "restart unhealthy worker",
			desired:   map[int]LocalAssignment{6700: wc},
			local:     map[int]LocalAssignment{6700: wc},
			unhealthy: map[int]bool{6700: true},
			want:      []reconcileAction{{Type: actionRestart, Port: 6700, Desired: wc}},
		},
		{
			name:      "unhealthy unassigned worker is stopped",
			local:     map[int]LocalAssignment{6700: wc},
			unhealthy: map[int]bool{6700: true},
			want:      []reconcileAction{{Type: actionStop, Port: 6700}},
		},
		{
			name:    "mixed slots ordered by port",
			desired: map[int]LocalAssignment{6702: other, 6700: wc},
			local:   map[int]LocalAssignment{6701: wc, 6700: wc},
			want: []reconcileAction{
				{Type: actionStop, Port: 6701},
				{Type: actionStart, Port: 6702, Desired: other},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planReconcile(tt.desired, tt.local, tt.unhealthy))
		})
	}
}

func TestActionTypeString(t *testing.T) {
	assert.Equal(t, "start", actionStart.String())
	assert.Equal(t, "adopt", actionAdopt.String())
	assert.Equal(t, "unknown", actionType(0).String())
}
