package profile

import (
	"testing"

	"firestige.xyz/otus/internal/channel"
	"firestige.xyz/otus/internal/methodfsm"
	"firestige.xyz/otus/internal/termination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveReturnsRegisteredFactory(t *testing.T) {
	p := New("default", 5)
	p.RegisterResource("speechrecog", func(name string) (channel.EngineChannel, error) {
		term := termination.New(termination.KindEngine, name)
		return channel.NewSyncEngineChannel(term, methodfsm.NewGeneric()), nil
	})

	factory, err := p.Resolve("speechrecog")
	require.NoError(t, err)
	eng, err := factory("speechrecog")
	require.NoError(t, err)
	assert.Equal(t, "speechrecog", eng.Termination().Name)
}

func TestResolveUnknownResource(t *testing.T) {
	p := New("default", 5)
	_, err := p.Resolve("nonesuch")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestRegisterResourcePanicsOnDuplicate(t *testing.T) {
	p := New("default", 5)
	factory := func(string) (channel.EngineChannel, error) { return nil, nil }
	p.RegisterResource("speechrecog", factory)

	assert.Panics(t, func() { p.RegisterResource("speechrecog", factory) })
}

func TestResourcesIsSorted(t *testing.T) {
	p := New("default", 5)
	factory := func(string) (channel.EngineChannel, error) { return nil, nil }
	p.RegisterResource("speechsynth", factory)
	p.RegisterResource("speechrecog", factory)

	assert.Equal(t, []string{"speechrecog", "speechsynth"}, p.Resources())
}
