package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLifecycleHappyPath(t *testing.T) {
	ctx := context.Background()
	m := BuildRunStateMachine(StateInitialized)

	require.Equal(t, StateInitialized, m.State())

	require.NoError(t, m.Fire(ctx, TriggerStart))
	assert.Equal(t, StateInProgress, m.State())

	require.NoError(t, m.Fire(ctx, TriggerCompleteSections))
	assert.Equal(t, StateSectionsComplete, m.State())

	require.NoError(t, m.Fire(ctx, TriggerFinalize))
	assert.Equal(t, StateComplete, m.State())
	assert.True(t, m.State().IsTerminal())
}

func TestRunLifecycleRejectsSkips(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		initial State
		trigger Trigger
	}{
		{"finalize from initialized", StateInitialized, TriggerFinalize},
		{"complete sections from initialized", StateInitialized, TriggerCompleteSections},
		{"start from in_progress", StateInProgress, TriggerStart},
		{"finalize from in_progress", StateInProgress, TriggerFinalize},
		{"start from sections_complete", StateSectionsComplete, TriggerStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildRunStateMachine(tt.initial)
			err := m.Fire(ctx, tt.trigger)
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.initial, m.State(), "failed fire must not move the state")
		})
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	ctx := context.Background()
	m := BuildRunStateMachine(StateComplete)

	assert.True(t, m.State().IsTerminal())
	assert.Empty(t, m.PermittedTriggers())

	for _, trig := range []Trigger{TriggerStart, TriggerCompleteSections, TriggerFinalize} {
		assert.False(t, m.CanFire(trig))
		require.Error(t, m.Fire(ctx, trig))
	}
}

func TestCanFireMatchesConfiguration(t *testing.T) {
	m := BuildRunStateMachine(StateInProgress)

	assert.True(t, m.CanFire(TriggerCompleteSections))
	assert.False(t, m.CanFire(TriggerStart))
	assert.False(t, m.CanFire(TriggerFinalize))

	triggers := m.PermittedTriggers()
	require.Len(t, triggers, 1)
	assert.Equal(t, TriggerCompleteSections, triggers[0])
}

func TestStateValidity(t *testing.T) {
	for _, s := range []State{StateInitialized, StateInProgress, StateSectionsComplete, StateComplete} {
		assert.True(t, s.IsValid(), s.String())
	}
	assert.False(t, State("paused").IsValid())
	assert.False(t, StateInProgress.IsTerminal())
}
