package inference

import (
	"testing"

	"github.com/nvr-ai/go-classify/inference/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct{ name string }

func (b stubBackend) Name() string      { return b.name }
func (b stubBackend) Extension() string { return ".stub" }
func (b stubBackend) Open([]byte, providers.Options) (Engine, error) {
	return nil, ErrUnsupportedModel
}

// TestRegistry validates registration, lookup and duplicate protection.
func TestRegistry(t *testing.T) {
	Register(stubBackend{name: "stub-registry"})

	b, err := Lookup("stub-registry")
	require.NoError(t, err)
	assert.Equal(t, ".stub", b.Extension())
	assert.Contains(t, Engines(), EngineType("stub-registry"))

	assert.Panics(t, func() { Register(stubBackend{name: "stub-registry"}) })
	assert.Panics(t, func() { Register(nil) })

	_, err = Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
