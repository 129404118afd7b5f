package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/connector/core"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()

	err := r.RegisterSource("stub", func(cfg *config.BaseConfig) (core.Source, error) {
		return nil, nil
	})
	require.NoError(t, err)

	t.Run("duplicate registration fails", func(t *testing.T) {
		err := r.RegisterSource("stub", func(cfg *config.BaseConfig) (core.Source, error) {
			return nil, nil
		})
		assert.Error(t, err)
	})

	t.Run("unknown connector fails", func(t *testing.T) {
		_, err := r.CreateSource("missing", config.NewBaseConfig("x", "missing"))
		assert.Error(t, err)
	})

	t.Run("listing is sorted", func(t *testing.T) {
		require.NoError(t, r.RegisterSource("alpha", func(cfg *config.BaseConfig) (core.Source, error) {
			return nil, nil
		}))
		assert.Equal(t, []string{"alpha", "stub"}, r.ListSources())
	})
}
