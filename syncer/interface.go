package syncer

import (
	"github.com/rallyscore/go-rallysync/common/types"
)

//go:generate mockgen -package=mocks -destination=./mocks/mocks.go -source=./interface.go

// gameProvider exposes the locally authoritative live game, used to answer
// live-status requests and to push snapshots during catch-up.
type gameProvider interface {
	ActiveGame() (types.LiveGameSnapshot, bool)
}

// historyProvider exposes completed-game summaries for history requests.
type historyProvider interface {
	Summaries() ([]types.GameSummary, error)
}
