package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateSentinelIdsDoNotCollide(t *testing.T) {
	a := NewState(0)
	b := NewState(1)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, sentinelBase, a.ID)
	assert.Equal(t, sentinelBase+1, b.ID)
}

func TestGotoStateTargetIDTracksMutation(t *testing.T) {
	s := NewState(0)
	g := NewGotoState(s)
	require.Equal(t, s.ID, g.TargetID())

	// Folding mutates State.ID in place; GotoState must see the new value
	// without anyone re-pointing the Target, since nothing captures an int
	// before folding runs.
	s.ID = 3
	assert.Equal(t, 3, g.TargetID())
}

func TestGotoStateToExitStateIsMinusOne(t *testing.T) {
	g := NewGotoState(nil)
	assert.Equal(t, -1, g.TargetID())
}

func TestStateRefResolvesTargetOrFallback(t *testing.T) {
	s := NewState(0)
	withTarget := NewStateRef(s, 0)
	withoutTarget := NewStateRef(nil, 7)

	assert.Equal(t, s.ID, withTarget.Value())
	assert.Equal(t, 7, withoutTarget.Value())

	s.ID = 42
	assert.Equal(t, 42, withTarget.Value(), "StateRef must track State.ID mutation the same way GotoState does")
}

func TestEnvTypeAddUniqueFieldDeduplicates(t *testing.T) {
	env := NewEnvType("Env")
	first := env.AddUniqueField(NewIdent("state"))
	second := env.AddUniqueField(NewIdent("state"))
	assert.Same(t, first, second)

	idx, ok := env.FieldIndex("state")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	env.AddUniqueField(NewIdent("curExc"))
	idx, ok = env.FieldIndex("curExc")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = env.FieldIndex("nope")
	assert.False(t, ok)
}
