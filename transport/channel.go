package transport

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rallyscore/go-rallysync/codec"
	"github.com/rallyscore/go-rallysync/wire"
)

const channelBuffer = 256

// Channel is an in-process loopback transport endpoint. Pair returns two
// cross-connected endpoints so two coordinators can be exercised in one
// process without sockets. Frames round-trip through the codec so the byte
// path is the same as a real link's.
type Channel struct {
	peer  *Channel
	state atomic.Uint32
	inbox chan wire.Envelope
	links chan LinkState
}

// Pair creates two connected endpoints, both starting with the link down.
func Pair() (*Channel, *Channel) {
	a := &Channel{
		inbox: make(chan wire.Envelope, channelBuffer),
		links: make(chan LinkState, channelBuffer),
	}
	b := &Channel{
		inbox: make(chan wire.Envelope, channelBuffer),
		links: make(chan LinkState, channelBuffer),
	}
	a.peer = b
	b.peer = a
	return a, b
}

func (c *Channel) Start(context.Context) error { return nil }

func (c *Channel) Stop() {}

// SetLink drives this endpoint's link state and notifies its Links channel.
// Tests and simulations call it on both endpoints to model connectivity.
func (c *Channel) SetLink(s LinkState) {
	c.state.Store(uint32(s))
	c.links <- s
}

func (c *Channel) Send(ctx context.Context, env wire.Envelope) error {
	if LinkState(c.state.Load()) != LinkUp {
		return ErrLinkDown
	}
	buf, err := codec.EncodeFrame(env)
	if err != nil {
		return fmt.Errorf("channel send: %w", err)
	}
	out, err := codec.DecodeFrame(buf)
	if err != nil {
		return fmt.Errorf("channel send: %w", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.peer.inbox <- out:
		return nil
	}
}

func (c *Channel) Links() <-chan LinkState     { return c.links }
func (c *Channel) Inbox() <-chan wire.Envelope { return c.inbox }
