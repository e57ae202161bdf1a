package nimbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yawfe/stormd/common/log/testlogger"
	"github.com/yawfe/stormd/common/types"
)

func newTestStateMachine(t *testing.T) *stateMachine {
	return &stateMachine{
		resolveDelay: func(_ context.Context, _ string, delay Delay) int {
			if secs, ok := delay.Get(); ok {
				return secs
			}
			return 7
		},
		logger: testlogger.New(t),
	}
}

func TestStateMachine_Transitions(t *testing.T) {
	rebalancingFromInactive := types.RebalancingStatus(10, types.InactiveStatus())

	tests := []struct {
		name    string
		current types.TopologyStatus
		event   Event
		delay   Delay
		want    *types.TopologyStatus
		removed bool
		invalid bool
	}{
		{name: "activate inactive", current: types.InactiveStatus(), event: EventActivate, want: ptr(types.ActiveStatus())},
		{name: "activate active", current: types.ActiveStatus(), event: EventActivate, want: ptr(types.ActiveStatus())},
		{name: "inactivate active", current: types.ActiveStatus(), event: EventInactivate, want: ptr(types.InactiveStatus())},
		{name: "kill active with delay", current: types.ActiveStatus(), event: EventKill, delay: SomeDelay(20), want: ptr(types.KilledStatus(20))},
		{name: "kill active resolves delay", current: types.ActiveStatus(), event: EventKill, want: ptr(types.KilledStatus(7))},
		{name: "kill killed", current: types.KilledStatus(20), event: EventKill, delay: SomeDelay(5), want: ptr(types.KilledStatus(5))},
		{name: "kill rebalancing", current: rebalancingFromInactive, event: EventKill, delay: SomeDelay(3), want: ptr(types.KilledStatus(3))},
		{name: "rebalance inactive", current: types.InactiveStatus(), event: EventRebalance, delay: SomeDelay(10), want: ptr(rebalancingFromInactive)},
		{name: "do rebalance restores previous", current: rebalancingFromInactive, event: EventDoRebalance, want: ptr(types.InactiveStatus())},
		{name: "startup keeps killed", current: types.KilledStatus(30), event: EventStartup, want: ptr(types.KilledStatus(30))},
		{name: "startup keeps rebalancing", current: rebalancingFromInactive, event: EventStartup, want: ptr(rebalancingFromInactive)},
		{name: "remove killed", current: types.KilledStatus(30), event: EventRemove, removed: true},
		{name: "activate killed", current: types.KilledStatus(30), event: EventActivate, invalid: true},
		{name: "inactivate rebalancing", current: rebalancingFromInactive, event: EventInactivate, invalid: true},
		{name: "rebalance rebalancing", current: rebalancingFromInactive, event: EventRebalance, invalid: true},
		{name: "rebalance killed", current: types.KilledStatus(30), event: EventRebalance, invalid: true},
		{name: "remove active", current: types.ActiveStatus(), event: EventRemove, invalid: true},
		{name: "do rebalance active", current: types.ActiveStatus(), event: EventDoRebalance, invalid: true},
		{name: "startup active", current: types.ActiveStatus(), event: EventStartup, invalid: true},
		{name: "unknown event", current: types.ActiveStatus(), event: Event("restart"), invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestStateMachine(t)
			got, err := m.next(context.Background(), "wc-1", tt.current, tt.event, tt.delay)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			if tt.removed {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestFollowUp(t *testing.T) {
	ev, ok := followUp(types.StatusKilled)
	assert.True(t, ok)
	assert.Equal(t, EventRemove, ev)

	ev, ok = followUp(types.StatusRebalancing)
	assert.True(t, ok)
	assert.Equal(t, EventDoRebalance, ev)

	_, ok = followUp(types.StatusActive)
	assert.False(t, ok)
}

func TestDelay(t *testing.T) {
	_, ok := NoDelay.Get()
	assert.False(t, ok)
	assert.Equal(t, "none", NoDelay.String())

	secs, ok := SomeDelay(0).Get()
	assert.True(t, ok)
	assert.Zero(t, secs)
	assert.Equal(t, "0s", SomeDelay(0).String())
}

func ptr[T any](v T) *T {
	return &v
}
