package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_AllowedMoves(t *testing.T) {
	tests := []struct {
		from, to State
	}{
		{StateActive, StateInactive},
		{StateActive, StateDeleted},
		{StateInactive, StateDeleted},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			got, err := Transition(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestTransition_RejectedMoves(t *testing.T) {
	tests := []struct {
		from, to State
	}{
		{StateDeleted, StateActive},
		{StateDeleted, StateInactive},
		{StateDeleted, StateDeleted},
		{StateInactive, StateActive},
		{StateActive, StateActive},
		{StateInactive, StateInactive},
		{StateActive, StateUnset},
		{StateActive, State("x")},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			got, err := Transition(tt.from, tt.to)
			require.Error(t, err)
			assert.Equal(t, tt.from, got, "rejected transition must leave the state unchanged")
			assert.True(t, errors.Is(err, ErrInvalidTransition))

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.from, te.From)
			assert.Equal(t, tt.to, te.To)
		})
	}
}

func TestState_Codes(t *testing.T) {
	assert.Equal(t, "a", StateActive.Code())
	assert.Equal(t, "i", StateInactive.Code())
	assert.Equal(t, "d", StateDeleted.Code())

	for _, code := range []string{"a", "i", "d"} {
		s, err := ParseState(code)
		require.NoError(t, err)
		assert.Equal(t, code, s.Code())
	}
	_, err := ParseState("A")
	assert.Error(t, err)
	_, err = ParseState("")
	assert.Error(t, err)
}

func TestState_ValueAndScan(t *testing.T) {
	v, err := StateInactive.Value()
	require.NoError(t, err)
	assert.Equal(t, "i", v)

	_, err = StateUnset.Value()
	assert.Error(t, err, "unset state must never reach the store")

	var s State
	require.NoError(t, s.Scan([]byte("d")))
	assert.Equal(t, StateDeleted, s)
	require.NoError(t, s.Scan("a"))
	assert.Equal(t, StateActive, s)
	assert.Error(t, s.Scan("z"))
	assert.Error(t, s.Scan(nil))
	assert.Error(t, s.Scan(42))
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateDeleted.IsTerminal())
	assert.False(t, StateActive.IsTerminal())
	assert.False(t, StateInactive.IsTerminal())
}
