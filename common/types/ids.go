package types

import "github.com/google/uuid"

// GameID identifies one live or completed game.
type GameID uuid.UUID

func (id GameID) String() string { return uuid.UUID(id).String() }

// IsEmpty returns true if the id is all zeroes.
func (id GameID) IsEmpty() bool { return id == GameID(uuid.Nil) }

// RandomGameID generates a random GameID for testing.
func RandomGameID() GameID { return GameID(uuid.New()) }

// PlayerID identifies a roster player.
type PlayerID uuid.UUID

func (id PlayerID) String() string { return uuid.UUID(id).String() }

// RandomPlayerID generates a random PlayerID for testing.
func RandomPlayerID() PlayerID { return PlayerID(uuid.New()) }

// TeamID identifies a saved roster team.
type TeamID uuid.UUID

func (id TeamID) String() string { return uuid.UUID(id).String() }

// RandomTeamID generates a random TeamID for testing.
func RandomTeamID() TeamID { return TeamID(uuid.New()) }

// PresetID identifies a saved game preset.
type PresetID uuid.UUID

func (id PresetID) String() string { return uuid.UUID(id).String() }

// RandomPresetID generates a random PresetID for testing.
func RandomPresetID() PresetID { return PresetID(uuid.New()) }

// MarshalText implements encoding.TextMarshaler so ids can key JSON maps.
func (id GameID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *GameID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id PlayerID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *PlayerID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id TeamID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *TeamID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id PresetID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *PresetID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
