// Package transport defines the peer-link capability the sync coordinator
// depends on. The real radio/IPC link lives outside this module; anything
// that can move envelopes and report link state satisfies Transport.
package transport

import (
	"context"
	"errors"

	"github.com/rallyscore/go-rallysync/wire"
)

// ErrLinkDown is returned by Send while the link cannot carry messages.
var ErrLinkDown = errors.New("peer link down")

// LinkState is the transport's view of the peer link.
type LinkState uint32

const (
	LinkDown LinkState = iota
	LinkConnecting
	LinkUp
)

func (s LinkState) String() string {
	switch s {
	case LinkDown:
		return "down"
	case LinkConnecting:
		return "connecting"
	case LinkUp:
		return "up"
	default:
		return "unknown"
	}
}

// Transport moves envelopes to and from one peer over a reliable, in-order
// channel. Implementations deliver inbound envelopes and link-state changes
// on the returned channels; they may do so from background goroutines.
type Transport interface {
	Start(ctx context.Context) error
	Stop()
	// Send transmits one envelope; it fails with ErrLinkDown while the link
	// is not up. Send may suspend awaiting delivery confirmation.
	Send(ctx context.Context, env wire.Envelope) error
	// Links streams link-state transitions.
	Links() <-chan LinkState
	// Inbox streams inbound envelopes in arrival order.
	Inbox() <-chan wire.Envelope
}
