package configstore

import (
	"context"
	"errors"
	"io"

	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
)

// ChainStore asks each store in order and returns the first present value.
// It lets an operator layer overrides (e.g. Redis) over deployment defaults (e.g. a
// YAML file) without the transforms knowing.
type ChainStore struct {
	stores []Store
}

// NewChainStore creates a ChainStore. Nil stores are ignored.
func NewChainStore(stores ...Store) *ChainStore {
	c := &ChainStore{}
	for _, s := range stores {
		if s != nil {
			c.stores = append(c.stores, s)
		}
	}
	return c
}

// Get returns the first present value for key, or absent if no store has one.
func (c *ChainStore) Get(ctx context.Context, key string) flowvalue.Value {
	for _, s := range c.stores {
		if v := s.Get(ctx, key); v.IsPresent() {
			return v
		}
	}
	return flowvalue.Absent()
}

// Close closes every store in the chain that holds resources.
func (c *ChainStore) Close() error {
	var errs []error
	for _, s := range c.stores {
		if closer, ok := s.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
