package reconciler

import (
	"github.com/rallyscore/go-rallysync/common/types"
)

// RuleEngine is the game-rules collaborator the reconciler delegates to when
// applying score and serve deltas. Rule logic is defined once and shared with
// local play; the reconciler never reimplements it.
type RuleEngine interface {
	ScorePoint(*types.LiveGameSnapshot, types.Team)
	SwitchServer(*types.LiveGameSnapshot)
	SetServer(*types.LiveGameSnapshot, types.Team)
	SwitchServingPlayer(*types.LiveGameSnapshot)
	StartSecondServe(*types.LiveGameSnapshot)
	ServiceFault(*types.LiveGameSnapshot)
	NonServingTeamTap(*types.LiveGameSnapshot, types.Team)
}
