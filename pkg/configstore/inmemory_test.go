package configstore_test

import (
	"context"
	"testing"

	"github.com/illmade-knight/go-flowtransforms/pkg/configstore"
	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryStore_Get(t *testing.T) {
	ctx := context.Background()
	store := configstore.NewInMemoryStore(map[string]any{
		configstore.KeyStreamPort: 554,
		"unset":                   nil,
	})

	t.Run("Seeded value", func(t *testing.T) {
		assert.True(t, flowvalue.Of(554).Equal(store.Get(ctx, configstore.KeyStreamPort)))
	})

	t.Run("Missing key is absent", func(t *testing.T) {
		assert.False(t, store.Get(ctx, "missing").IsPresent())
	})

	t.Run("Nil seed is absent", func(t *testing.T) {
		assert.False(t, store.Get(ctx, "unset").IsPresent())
	})

	t.Run("Set and Delete are visible immediately", func(t *testing.T) {
		store.Set(configstore.KeyVideoStreamURL, "10.0.0.9")
		assert.Equal(t, "10.0.0.9", store.Get(ctx, configstore.KeyVideoStreamURL).String())

		store.Delete(configstore.KeyVideoStreamURL)
		assert.False(t, store.Get(ctx, configstore.KeyVideoStreamURL).IsPresent())
	})
}
