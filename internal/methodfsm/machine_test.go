package methodfsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericDispatchTogglesIdleActive(t *testing.T) {
	g := NewGeneric()
	assert.Equal(t, "IDLE", g.Name())

	var delivered []Outbound
	deliver := func(o Outbound) { delivered = append(delivered, o) }

	require.NoError(t, g.Dispatch(Request{Method: "SET-PARAMS"}, deliver))
	assert.Equal(t, "ACTIVE", g.Name())

	require.NoError(t, g.Dispatch(Request{Method: "GET-PARAMS"}, deliver))
	assert.Equal(t, "IDLE", g.Name())

	assert.Len(t, delivered, 2)
}

func TestGenericDeactivateIsIdempotentAndTerminal(t *testing.T) {
	g := NewGeneric()
	calls := 0
	g.Deactivate(func() { calls++ })
	assert.True(t, g.IsTerminated())
	assert.Equal(t, 1, calls)

	g.Deactivate(func() { calls++ })
	assert.Equal(t, 2, calls)

	err := g.Dispatch(Request{Method: "SET-PARAMS"}, func(Outbound) {})
	assert.ErrorIs(t, err, errTerminated)
}
