// Package gateway is the boundary to the external event source: the
// live stream of platform events and the outbound send path.  The
// clients here are I/O wrappers with no algorithmic weight; the
// dispatcher only sees the Gateway interface.
package gateway

import (
	"context"
	"encoding/json"
)

// Event is one arriving external event: a kind plus its declared
// parameter tuple, as decoded from the wire.
type Event struct {
	Kind   string                 `json:"event"`
	Params map[string]interface{} `json:"params"`
}

// ParseEvent decodes a wire message.
func ParseEvent(bs []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(bs, &e)
	return e, err
}

// Handler consumes one arriving event.  Listen calls it sequentially;
// concurrency is the consumer's business.
type Handler func(ctx context.Context, e Event)

// Gateway supplies the event stream and the outbound send path.
type Gateway interface {
	// Listen delivers events to h until ctx is done or the
	// connection fails.
	Listen(ctx context.Context, h Handler) error

	// Send delivers text to a channel.
	Send(ctx context.Context, channel, text string) error
}

type outbound struct {
	Op      string `json:"op"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
}
