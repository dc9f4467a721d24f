// Package types defines the domain model shared by the sync core: live game
// state, deltas, roster records and the payloads exchanged between peers.
package types

import "time"

// Team names one of the two sides in a game.
type Team uint8

const (
	Team1 Team = 1
	Team2 Team = 2
)

func (t Team) String() string {
	switch t {
	case Team1:
		return "team1"
	case Team2:
		return "team2"
	default:
		return "unknown"
	}
}

// Valid returns true for the two playable sides.
func (t Team) Valid() bool { return t == Team1 || t == Team2 }

// Opponent returns the other side.
func (t Team) Opponent() Team {
	if t == Team1 {
		return Team2
	}
	return Team1
}

// GameState is the lifecycle state of a live game.
type GameState string

const (
	GameStateInitial   GameState = "initial"
	GameStatePlaying   GameState = "playing"
	GameStatePaused    GameState = "paused"
	GameStateCompleted GameState = "completed"
)

// Valid reports whether the state is one of the known lifecycle states.
func (s GameState) Valid() bool {
	switch s {
	case GameStateInitial, GameStatePlaying, GameStatePaused, GameStateCompleted:
		return true
	}
	return false
}

// ServerPosition is the court position the current server serves from.
type ServerPosition string

const (
	PositionRight ServerPosition = "right"
	PositionLeft  ServerPosition = "left"
)

// CourtSide tracks which physical side of the court team 1 currently occupies,
// so side switches survive a resync.
type CourtSide string

const (
	CourtSideA CourtSide = "a"
	CourtSideB CourtSide = "b"
)

// ServeState captures everything about who serves next.
type ServeState struct {
	ServingTeam    Team           `json:"servingTeam"`
	ServerNumber   int            `json:"serverNumber"` // 1 or 2, doubles rotation
	ServerPosition ServerPosition `json:"serverPosition"`
	Side           CourtSide      `json:"side"`
}

// SideSwitchRule controls when teams change court sides.
type SideSwitchRule string

const (
	SideSwitchNone     SideSwitchRule = "none"
	SideSwitchMidpoint SideSwitchRule = "midpoint"
)

// ServingRotation selects the doubles serving rotation.
type ServingRotation string

const (
	RotationSingleServer ServingRotation = "singleServer"
	RotationTwoServers   ServingRotation = "twoServers"
)

// ScoringType selects side-out or rally scoring.
type ScoringType string

const (
	ScoringSideOut ScoringType = "sideOut"
	ScoringRally   ScoringType = "rally"
)

// RuleSet is the immutable rule configuration of one game.
type RuleSet struct {
	WinningScore    int             `json:"winningScore"`
	WinByTwo        bool            `json:"winByTwo"`
	DoubleBounce    bool            `json:"doubleBounce"` // kitchen / two-bounce rule
	SideSwitching   SideSwitchRule  `json:"sideSwitching"`
	ServingRotation ServingRotation `json:"servingRotation"`
	Scoring         ScoringType     `json:"scoring"`
	TimeLimit       *time.Duration  `json:"timeLimit,omitempty"`
	MaxRallies      *int            `json:"maxRallies,omitempty"`
}

// DefaultRuleSet is the standard configuration: first to 11, win by two,
// two-bounce rule, two-server rotation, side-out scoring.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		WinningScore:    11,
		WinByTwo:        true,
		DoubleBounce:    true,
		SideSwitching:   SideSwitchMidpoint,
		ServingRotation: RotationTwoServers,
		Scoring:         ScoringSideOut,
	}
}

// ParticipantMode describes how sides are identified.
type ParticipantMode string

const (
	ModeAnonymous ParticipantMode = "anonymous"
	ModePlayers   ParticipantMode = "players"
	ModeTeams     ParticipantMode = "teams"
)

// Participants describes who is playing on each side.
type Participants struct {
	Mode         ParticipantMode `json:"mode"`
	Side1Players []PlayerID      `json:"side1Players,omitempty"`
	Side2Players []PlayerID      `json:"side2Players,omitempty"`
	Side1Team    *TeamID         `json:"side1Team,omitempty"`
	Side2Team    *TeamID         `json:"side2Team,omitempty"`
}

// Score is the score pair of a game.
type Score struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Of returns the score of the named team.
func (s Score) Of(t Team) int {
	if t == Team1 {
		return s.Team1
	}
	return s.Team2
}

// LiveGameSnapshot is the full authoritative state of one live game at a
// point in time. Applying a snapshot fully overwrites the receiver's view of
// that game.
type LiveGameSnapshot struct {
	GameID       GameID        `json:"gameId"`
	Elapsed      time.Duration `json:"elapsed"`
	TimerRunning bool          `json:"timerRunning"`
	Score        Score         `json:"score"`
	Serve        ServeState    `json:"serve"`
	State        GameState     `json:"state"`
	Rules        RuleSet       `json:"rules"`
	Participants Participants  `json:"participants"`
	TakenAt      time.Time     `json:"takenAt"`
}

// SetScore sets the score of the named team.
func (s *LiveGameSnapshot) SetScore(t Team, v int) {
	if t == Team1 {
		s.Score.Team1 = v
	} else {
		s.Score.Team2 = v
	}
}
