package types

import (
	"time"

	"github.com/google/uuid"
)

// OpKind is the closed set of incremental live-game operations. The string
// encoding of existing kinds never changes; new kinds are appended.
type OpKind string

const (
	OpScore               OpKind = "score"
	OpDecrement           OpKind = "decrement"
	OpUndoLastPoint       OpKind = "undoLastPoint"
	OpSetGameState        OpKind = "setGameState"
	OpSwitchServer        OpKind = "switchServer"
	OpSetServer           OpKind = "setServer"
	OpSwitchServingPlayer OpKind = "switchServingPlayer"
	OpStartSecondServe    OpKind = "startSecondServe"
	OpServiceFault        OpKind = "serviceFault"
	OpNonServingTeamTap   OpKind = "nonServingTeamTap"
	OpReset               OpKind = "reset"
	OpSetElapsedTime      OpKind = "setElapsedTime"
)

// Valid reports whether the kind is known to this build.
func (k OpKind) Valid() bool {
	switch k {
	case OpScore, OpDecrement, OpUndoLastPoint, OpSetGameState, OpSwitchServer,
		OpSetServer, OpSwitchServingPlayer, OpStartSecondServe, OpServiceFault,
		OpNonServingTeamTap, OpReset, OpSetElapsedTime:
		return true
	}
	return false
}

// NeedsTeam reports whether the kind carries a team argument.
func (k OpKind) NeedsTeam() bool {
	switch k {
	case OpScore, OpDecrement, OpSetServer, OpNonServingTeamTap:
		return true
	}
	return false
}

// LiveGameDelta is one idempotent incremental operation on a live game.
// LogicalTime is the elapsed game time at the moment the delta was created on
// the sender; it orders deltas of the same operation identity across
// retransmissions and reconnects.
type LiveGameDelta struct {
	ID          uuid.UUID     `json:"id"`
	GameID      GameID        `json:"gameId"`
	Op          OpKind        `json:"op"`
	Team        Team          `json:"team,omitempty"`
	State       GameState     `json:"state,omitempty"`
	Elapsed     time.Duration `json:"elapsed,omitempty"`
	Running     bool          `json:"running,omitempty"`
	LogicalTime time.Duration `json:"logicalTime"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// NewDelta builds a delta with a fresh id and creation timestamp.
func NewDelta(gameID GameID, op OpKind, logical time.Duration) LiveGameDelta {
	return LiveGameDelta{
		ID:          uuid.New(),
		GameID:      gameID,
		Op:          op,
		LogicalTime: logical,
		CreatedAt:   time.Now().UTC(),
	}
}

// WithTeam returns a copy of the delta carrying a team argument.
func (d LiveGameDelta) WithTeam(t Team) LiveGameDelta {
	d.Team = t
	return d
}
