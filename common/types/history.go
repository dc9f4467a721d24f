package types

import "time"

// GameSummary is the compact record of a completed game, enough for the
// companion to render history without the full game payload.
type GameSummary struct {
	GameID       GameID       `json:"gameId"`
	CompletedAt  time.Time    `json:"completedAt"`
	Score        Score        `json:"score"`
	Winner       Team         `json:"winner,omitempty"`
	Participants Participants `json:"participants"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// HistorySummaries is the payload answering a history request.
type HistorySummaries struct {
	Summaries []GameSummary `json:"summaries"`
}

// GameStartConfig is the pending configuration the primary shares before a
// game starts, so the companion can mirror the setup screen.
type GameStartConfig struct {
	Rules        RuleSet      `json:"rules"`
	Participants Participants `json:"participants"`
}

// StartGameRequest asks the primary to start a game of the given type.
type StartGameRequest struct {
	GameType string `json:"gameType"`
}
