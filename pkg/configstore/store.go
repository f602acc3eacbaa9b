// Package configstore provides read access to process-wide flow configuration.
//
// A Store answers one question: what is the value for this key right now. Lookups
// never fail; a missing key or an unreachable backend both answer "no value", and
// backend trouble is logged by the backend itself.
package configstore

import (
	"context"

	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
)

// Well-known keys read by the stream descriptor builder.
const (
	KeyStreamServerAddress = "FTH_FTS_URL"
	KeyStreamServerAPIPort = "FTH_FTS_API_Port"
	KeyStreamPort          = "FTH_FTS_STREAM_Port"
	KeyVideoStreamURL      = "FTH_FTS_VIDEO_URL"
)

// Store is a read-only key/value lookup.
type Store interface {
	// Get returns the current value for key, or an absent Value if there is none.
	Get(ctx context.Context, key string) flowvalue.Value
}

// StoreFunc adapts a plain function to the Store interface.
type StoreFunc func(ctx context.Context, key string) flowvalue.Value

// Get calls f(ctx, key).
func (f StoreFunc) Get(ctx context.Context, key string) flowvalue.Value {
	return f(ctx, key)
}
