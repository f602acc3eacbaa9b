// Package streamdescriptor builds the RTSP stream descriptor handed to the stream
// server from an alias/path and the flow's global configuration.
package streamdescriptor

import (
	"context"
	"errors"

	"github.com/illmade-knight/go-flowtransforms/pkg/configstore"
	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/rs/zerolog"
)

// StreamProtocol is the only protocol the descriptor carries. It is not configurable.
const StreamProtocol = "rtsp"

// Names of the route attributes mirrored onto the message.
const (
	AttrAddr          = "addr"
	AttrPort          = "port"
	AttrStreamPort    = "streamPort"
	AttrStreamAddress = "streamAddress"
)

// StreamDescriptor is the payload sent on to the stream server.
type StreamDescriptor struct {
	Alias          flowvalue.Value `json:"alias"`
	StreamProtocol string          `json:"streamProtocol"`
	StreamAddress  flowvalue.Value `json:"streamAddress"`
	StreamPort     flowvalue.Value `json:"streamPort"`
	StreamPath     flowvalue.Value `json:"streamPath"`
}

// RouteAttributes are the looked-up configuration values the flow engine routes on.
type RouteAttributes struct {
	Addr          flowvalue.Value
	Port          flowvalue.Value
	StreamPort    flowvalue.Value
	StreamAddress flowvalue.Value
}

// Builder assembles stream descriptors. It holds no state between calls: every
// Build reads the configuration store afresh.
type Builder struct {
	store  configstore.Store
	logger zerolog.Logger
}

// NewBuilder creates a Builder reading from store.
func NewBuilder(store configstore.Store, logger zerolog.Logger) (*Builder, error) {
	if store == nil {
		return nil, errors.New("config store cannot be nil")
	}
	return &Builder{
		store:  store,
		logger: logger.With().Str("component", "VideoStreamDescriptorBuilder").Logger(),
	}, nil
}

// Build returns the descriptor for input together with the route attributes.
// input is used both as the alias and as the stream path. Configuration values are
// copied as found; a missing value stays absent in the output.
func (b *Builder) Build(ctx context.Context, input flowvalue.Value) (StreamDescriptor, RouteAttributes) {
	route := RouteAttributes{
		Addr:          b.store.Get(ctx, configstore.KeyStreamServerAddress),
		Port:          b.store.Get(ctx, configstore.KeyStreamServerAPIPort),
		StreamPort:    b.store.Get(ctx, configstore.KeyStreamPort),
		StreamAddress: b.store.Get(ctx, configstore.KeyVideoStreamURL),
	}
	if !route.StreamAddress.IsPresent() || !route.StreamPort.IsPresent() {
		b.logger.Debug().
			Bool("stream_address_set", route.StreamAddress.IsPresent()).
			Bool("stream_port_set", route.StreamPort.IsPresent()).
			Msg("Stream configuration incomplete, building descriptor anyway.")
	}

	return StreamDescriptor{
		Alias:          input,
		StreamProtocol: StreamProtocol,
		StreamAddress:  route.StreamAddress,
		StreamPort:     route.StreamPort,
		StreamPath:     input,
	}, route
}

// Values returns the route attributes keyed by attribute name.
func (r RouteAttributes) Values() map[string]flowvalue.Value {
	return map[string]flowvalue.Value{
		AttrAddr:          r.Addr,
		AttrPort:          r.Port,
		AttrStreamPort:    r.StreamPort,
		AttrStreamAddress: r.StreamAddress,
	}
}
