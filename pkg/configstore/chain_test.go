package configstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/illmade-knight/go-flowtransforms/pkg/configstore"
	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closingStore records Close calls so chain shutdown can be verified.
type closingStore struct {
	configstore.InMemoryStore
	closed   bool
	closeErr error
}

func (c *closingStore) Close() error {
	c.closed = true
	return c.closeErr
}

func TestChainStore_FirstPresentValueWins(t *testing.T) {
	ctx := context.Background()
	override := configstore.NewInMemoryStore(map[string]any{"addr": "override"})
	defaults := configstore.NewInMemoryStore(map[string]any{"addr": "default", "port": 8080})

	chain := configstore.NewChainStore(override, nil, defaults)

	assert.Equal(t, "override", chain.Get(ctx, "addr").String())
	assert.True(t, flowvalue.Of(8080).Equal(chain.Get(ctx, "port")))
	assert.False(t, chain.Get(ctx, "missing").IsPresent())

	// Removing the override falls through to the default on the next lookup.
	override.Delete("addr")
	assert.Equal(t, "default", chain.Get(ctx, "addr").String())
}

func TestChainStore_Empty(t *testing.T) {
	chain := configstore.NewChainStore()
	assert.False(t, chain.Get(context.Background(), "anything").IsPresent())
	assert.NoError(t, chain.Close())
}

func TestChainStore_CloseClosesMembers(t *testing.T) {
	first := &closingStore{}
	second := &closingStore{closeErr: errors.New("boom")}
	chain := configstore.NewChainStore(first, second, configstore.NewInMemoryStore(nil))

	err := chain.Close()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}
