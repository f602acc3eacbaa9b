package streamdescriptor

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
)

// DecodeInput reads the alias/path carried by a message payload. An empty payload is
// absent. A payload that is a JSON string, object or array is decoded, so `"cam7"` and
// cam7 give the same alias. Anything else, including text that happens to parse as a
// JSON number, bool or null, is kept verbatim as a string.
func DecodeInput(payload []byte) flowvalue.Value {
	if len(payload) == 0 {
		return flowvalue.Absent()
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '"', '{', '[':
			var v flowvalue.Value
			if err := json.Unmarshal(trimmed, &v); err == nil {
				return v
			}
		}
	}
	return flowvalue.Of(string(payload))
}

// NewTransformer returns the flow node that replaces an alias payload with its stream
// descriptor. The route values are mirrored onto the message: all four go into
// EnrichmentData as flowvalue.Value, and the present ones into Attributes as strings.
// An absent value removes any attribute of that name. It never skips and never fails.
func NewTransformer(builder *Builder) messagepipeline.MessageTransformer[StreamDescriptor] {
	return func(ctx context.Context, msg *messagepipeline.Message) (*StreamDescriptor, bool, error) {
		descriptor, route := builder.Build(ctx, DecodeInput(msg.Payload))

		for name, v := range route.Values() {
			msg.SetEnrichment(name, v)
			if v.IsPresent() {
				msg.SetAttribute(name, v.String())
			} else {
				delete(msg.Attributes, name)
			}
		}
		return &descriptor, false, nil
	}
}
