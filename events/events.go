// Package events delivers applied-state and reachability notifications to
// registered observers over per-kind channels. A Bus is constructed per
// coordinator; there is no process-wide singleton.
package events

import (
	"sync"
	"time"

	"github.com/rallyscore/go-rallysync/common/types"
)

// ReachabilityChanged reports a peer-link state transition.
type ReachabilityChanged struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

// LiveApplied reports a snapshot or delta applied to a live-game projection.
type LiveApplied struct {
	GameID   types.GameID `json:"gameId"`
	Snapshot bool         `json:"snapshot"`
	Op       types.OpKind `json:"op,omitempty"`
	At       time.Time    `json:"at"`
}

// RosterApplied reports an applied roster snapshot, upsert or prune.
type RosterApplied struct {
	Upserted int       `json:"upserted"`
	Pruned   int       `json:"pruned"`
	Replaced bool      `json:"replaced"`
	At       time.Time `json:"at"`
}

// HistoryReceived carries completed-game summaries received from the peer.
type HistoryReceived struct {
	Summaries []types.GameSummary `json:"summaries"`
}

// StartRequested reports a remote request to start or configure a game.
type StartRequested struct {
	Config  *types.GameStartConfig  `json:"config,omitempty"`
	Request *types.StartGameRequest `json:"request,omitempty"`
}

// SyncError is the user-visible error descriptor: a code and message, never a
// raw wire error.
type SyncError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// topic fans one event type out to its subscribers. Delivery to a subscriber
// whose buffer is full is dropped and counted rather than blocking the
// coordinator.
type topic[T any] struct {
	mu   sync.RWMutex
	subs []chan T
}

func (t *topic[T]) subscribe(buffer int) <-chan T {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan T, buffer)
	t.subs = append(t.subs, ch)
	return ch
}

func (t *topic[T]) publish(ev T) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			droppedEvents.Inc()
		}
	}
}

func (t *topic[T]) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		close(ch)
	}
	t.subs = nil
}

// Bus is the per-coordinator event hub.
type Bus struct {
	reachability topic[ReachabilityChanged]
	live         topic[LiveApplied]
	roster       topic[RosterApplied]
	history      topic[HistoryReceived]
	start        topic[StartRequested]
	errs         topic[SyncError]
}

// NewBus creates an empty event bus.
func NewBus() *Bus { return &Bus{} }

// DefaultBuffer is the subscription buffer used when callers pass 0.
const DefaultBuffer = 16

func buffer(n int) int {
	if n <= 0 {
		return DefaultBuffer
	}
	return n
}

func (b *Bus) SubscribeReachability(n int) <-chan ReachabilityChanged {
	return b.reachability.subscribe(buffer(n))
}

func (b *Bus) SubscribeLiveApplied(n int) <-chan LiveApplied {
	return b.live.subscribe(buffer(n))
}

func (b *Bus) SubscribeRosterApplied(n int) <-chan RosterApplied {
	return b.roster.subscribe(buffer(n))
}

func (b *Bus) SubscribeHistory(n int) <-chan HistoryReceived {
	return b.history.subscribe(buffer(n))
}

func (b *Bus) SubscribeStart(n int) <-chan StartRequested {
	return b.start.subscribe(buffer(n))
}

func (b *Bus) SubscribeErrors(n int) <-chan SyncError {
	return b.errs.subscribe(buffer(n))
}

func (b *Bus) PublishReachability(ev ReachabilityChanged) { b.reachability.publish(ev) }
func (b *Bus) PublishLiveApplied(ev LiveApplied)          { b.live.publish(ev) }
func (b *Bus) PublishRosterApplied(ev RosterApplied)      { b.roster.publish(ev) }
func (b *Bus) PublishHistory(ev HistoryReceived)          { b.history.publish(ev) }
func (b *Bus) PublishStart(ev StartRequested)             { b.start.publish(ev) }
func (b *Bus) PublishError(ev SyncError)                  { b.errs.publish(ev) }

// Close closes every subscription channel. Publishing after Close panics;
// the owning coordinator closes the bus only after its loops have stopped.
func (b *Bus) Close() {
	b.reachability.close()
	b.live.close()
	b.roster.close()
	b.history.close()
	b.start.close()
	b.errs.close()
}
