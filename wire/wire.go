// Package wire defines the versioned envelope and the closed catalog of
// message types exchanged between peers. The catalog is append-only: the
// string encoding of an existing tag never changes.
package wire

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rallyscore/go-rallysync/common/types"
)

// ProtocolVersion is the wire version stamped on outbound envelopes.
// Receivers on a newer version keep accepting version-1 envelopes for every
// tag that existed in version 1.
const ProtocolVersion = 1

// MessageType tags the payload carried by an envelope.
type MessageType string

const (
	TypeLiveSnapshot      MessageType = "liveSnapshot"
	TypeLiveDelta         MessageType = "liveDelta"
	TypeRosterSnapshot    MessageType = "rosterSnapshot"
	TypeRosterInventory   MessageType = "rosterInventory"
	TypeRosterUpsert      MessageType = "rosterUpsert"
	TypeRosterPrune       MessageType = "rosterPrune"
	TypeRosterRequest     MessageType = "rosterRequest"
	TypeHistorySummaries  MessageType = "historySummaries"
	TypeHistoryRequest    MessageType = "historyRequest"
	TypeStartConfig       MessageType = "startConfig"
	TypeStartRequest      MessageType = "startRequest"
	TypeLiveStatusRequest MessageType = "liveStatusRequest"
	TypeAck               MessageType = "ack"
	TypeError             MessageType = "error"
)

// Catalog lists every tag known to this build, in catalog order.
func Catalog() []MessageType {
	return []MessageType{
		TypeLiveSnapshot,
		TypeLiveDelta,
		TypeRosterSnapshot,
		TypeRosterInventory,
		TypeRosterUpsert,
		TypeRosterPrune,
		TypeRosterRequest,
		TypeHistorySummaries,
		TypeHistoryRequest,
		TypeStartConfig,
		TypeStartRequest,
		TypeLiveStatusRequest,
		TypeAck,
		TypeError,
	}
}

// Valid reports whether the tag is in the catalog known to this build.
func (t MessageType) Valid() bool {
	_, ok := payloadFactories[t]
	return ok
}

// Durable reports whether messages of this type survive an unreachable peer
// link in the outbound queue. Ephemeral types are dropped instead; they only
// make sense at the moment they are sent.
func (t MessageType) Durable() bool {
	switch t {
	case TypeLiveDelta, TypeRosterUpsert, TypeRosterPrune, TypeStartConfig:
		return true
	}
	return false
}

// Empty reports whether the tag carries no payload body.
func (t MessageType) Empty() bool {
	switch t {
	case TypeRosterRequest, TypeHistoryRequest, TypeLiveStatusRequest:
		return true
	}
	return false
}

// ExpectsReply reports whether a sender of this type awaits an answer and
// should arm a timeout.
func (t MessageType) ExpectsReply() bool {
	switch t {
	case TypeRosterRequest, TypeHistoryRequest, TypeLiveStatusRequest:
		return true
	}
	return false
}

// payloadFactories maps each tag to a constructor of its payload shape,
// exactly one shape per tag.
var payloadFactories = map[MessageType]func() any{
	TypeLiveSnapshot:      func() any { return &types.LiveGameSnapshot{} },
	TypeLiveDelta:         func() any { return &types.LiveGameDelta{} },
	TypeRosterSnapshot:    func() any { return &types.RosterSnapshot{} },
	TypeRosterInventory:   func() any { return &types.RosterInventory{} },
	TypeRosterUpsert:      func() any { return &types.RosterUpsert{} },
	TypeRosterPrune:       func() any { return &types.RosterPrune{} },
	TypeRosterRequest:     func() any { return &Empty{} },
	TypeHistorySummaries:  func() any { return &types.HistorySummaries{} },
	TypeHistoryRequest:    func() any { return &Empty{} },
	TypeStartConfig:       func() any { return &types.GameStartConfig{} },
	TypeStartRequest:      func() any { return &types.StartGameRequest{} },
	TypeLiveStatusRequest: func() any { return &Empty{} },
	TypeAck:               func() any { return &Ack{} },
	TypeError:             func() any { return &Error{} },
}

// NewPayload returns a zero value of the payload shape for the tag, or false
// if the tag is not in the catalog.
func NewPayload(t MessageType) (any, bool) {
	f, ok := payloadFactories[t]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Empty is the body of request tags that carry no data.
type Empty struct{}

// Ack acknowledges receipt of the referenced envelope.
type Ack struct {
	RefID uuid.UUID `json:"refId"`
}

// Error codes surfaced between peers. Raw codec or transport errors never
// cross the wire; only these.
const (
	ErrorCodeUnsupportedType = "unsupported_type"
	ErrorCodeDecodeFailed    = "decode_failed"
	ErrorCodeNoActiveGame    = "no_active_game"
	ErrorCodeNeedsSnapshot   = "needs_snapshot"
)

// Error reports a peer-visible failure, referencing the envelope that caused
// it when known.
type Error struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	RefID   uuid.UUID `json:"refId,omitempty"`
}

// Envelope is the wire unit: a versioned, timestamped, session-scoped wrapper
// around one serialized payload.
type Envelope struct {
	ID              uuid.UUID       `json:"id"`
	ProtocolVersion int             `json:"protocolVersion"`
	Type            MessageType     `json:"messageType"`
	SentAt          time.Time       `json:"sentAt"`
	SessionID       *uuid.UUID      `json:"sessionId,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}
