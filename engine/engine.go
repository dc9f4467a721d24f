// Package engine implements game-rule evaluation: win detection, side-switch
// triggers and serve rotation. Local play and sync-applied play share this
// one implementation, so a delta applied by the reconciler lands on exactly
// the same state a local tap would have produced.
package engine

import (
	"github.com/rallyscore/go-rallysync/common/types"
)

// Engine is stateless; every method mutates the snapshot it is given.
type Engine struct{}

// New creates a rule engine.
func New() *Engine { return &Engine{} }

// ScorePoint awards one point to team and evaluates the rule set: win
// condition, rally cap, midpoint side switch and server positioning.
func (e *Engine) ScorePoint(s *types.LiveGameSnapshot, team types.Team) {
	if s.State == types.GameStateCompleted {
		return
	}
	before := maxScore(s)
	s.SetScore(team, s.Score.Of(team)+1)

	if s.Rules.Scoring == types.ScoringRally && team != s.Serve.ServingTeam {
		// rally scoring: the receiving team winning the rally also takes the serve
		e.SwitchServer(s)
	} else if team == s.Serve.ServingTeam {
		togglePosition(&s.Serve)
	}

	if won(s, team) {
		s.State = types.GameStateCompleted
		return
	}
	if s.Rules.MaxRallies != nil && s.Score.Team1+s.Score.Team2 >= *s.Rules.MaxRallies {
		s.State = types.GameStateCompleted
		return
	}

	mid := (s.Rules.WinningScore + 1) / 2
	if s.Rules.SideSwitching == types.SideSwitchMidpoint && before < mid && s.Score.Of(team) == mid {
		toggleSide(&s.Serve)
	}
}

// SwitchServer hands the serve to the other team (side out).
func (e *Engine) SwitchServer(s *types.LiveGameSnapshot) {
	s.Serve.ServingTeam = s.Serve.ServingTeam.Opponent()
	s.Serve.ServerNumber = 1
	s.Serve.ServerPosition = types.PositionRight
}

// SetServer gives the serve to the named team directly.
func (e *Engine) SetServer(s *types.LiveGameSnapshot, team types.Team) {
	if !team.Valid() {
		return
	}
	s.Serve.ServingTeam = team
	s.Serve.ServerNumber = 1
	s.Serve.ServerPosition = types.PositionRight
}

// SwitchServingPlayer swaps the serving position within the serving team.
func (e *Engine) SwitchServingPlayer(s *types.LiveGameSnapshot) {
	togglePosition(&s.Serve)
}

// StartSecondServe moves the serving team to its second server.
func (e *Engine) StartSecondServe(s *types.LiveGameSnapshot) {
	if s.Rules.ServingRotation == types.RotationTwoServers {
		s.Serve.ServerNumber = 2
	}
}

// ServiceFault advances the rotation after a lost serve: second server if the
// rotation has one left, side out otherwise. Under rally scoring a fault is a
// point for the receiving team.
func (e *Engine) ServiceFault(s *types.LiveGameSnapshot) {
	if s.State == types.GameStateCompleted {
		return
	}
	if s.Rules.Scoring == types.ScoringRally {
		e.ScorePoint(s, s.Serve.ServingTeam.Opponent())
		return
	}
	if s.Rules.ServingRotation == types.RotationTwoServers && s.Serve.ServerNumber == 1 {
		s.Serve.ServerNumber = 2
		return
	}
	e.SwitchServer(s)
}

// NonServingTeamTap handles a score tap on the side that is not serving. In
// side-out scoring the non-serving team cannot score, so the tap records a
// fault against the server; in rally scoring it is a regular point.
func (e *Engine) NonServingTeamTap(s *types.LiveGameSnapshot, team types.Team) {
	if !team.Valid() || team == s.Serve.ServingTeam {
		return
	}
	if s.Rules.Scoring == types.ScoringRally {
		e.ScorePoint(s, team)
		return
	}
	e.ServiceFault(s)
}

func won(s *types.LiveGameSnapshot, team types.Team) bool {
	mine, theirs := s.Score.Of(team), s.Score.Of(team.Opponent())
	if mine < s.Rules.WinningScore {
		return false
	}
	if s.Rules.WinByTwo && mine-theirs < 2 {
		return false
	}
	return true
}

func maxScore(s *types.LiveGameSnapshot) int {
	if s.Score.Team1 > s.Score.Team2 {
		return s.Score.Team1
	}
	return s.Score.Team2
}

func togglePosition(sv *types.ServeState) {
	if sv.ServerPosition == types.PositionRight {
		sv.ServerPosition = types.PositionLeft
	} else {
		sv.ServerPosition = types.PositionRight
	}
}

func toggleSide(sv *types.ServeState) {
	if sv.Side == types.CourtSideA {
		sv.Side = types.CourtSideB
	} else {
		sv.Side = types.CourtSideA
	}
}
