package types

import "time"

// Player is a roster player record. Identity is the id, never the name.
type Player struct {
	ID           PlayerID  `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color,omitempty"`
	Archived     bool      `json:"archived,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// TeamRecord is a saved pairing of players under a team name.
type TeamRecord struct {
	ID           TeamID     `json:"id"`
	Name         string     `json:"name"`
	PlayerIDs    []PlayerID `json:"playerIds"`
	Archived     bool       `json:"archived,omitempty"`
	LastModified time.Time  `json:"lastModified"`
}

// Preset is a saved game configuration.
type Preset struct {
	ID           PresetID  `json:"id"`
	Name         string    `json:"name"`
	Rules        RuleSet   `json:"rules"`
	Archived     bool      `json:"archived,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// RosterInventory is a compact id to last-modified map used purely for
// diffing. It never hydrates records.
type RosterInventory struct {
	Players     map[PlayerID]time.Time `json:"players"`
	Teams       map[TeamID]time.Time   `json:"teams"`
	Presets     map[PresetID]time.Time `json:"presets"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// IsEmpty reports whether the inventory describes an empty roster. Presets do
// not count: a factory-fresh install still carries built-in presets.
func (inv RosterInventory) IsEmpty() bool {
	return len(inv.Players) == 0 && len(inv.Teams) == 0
}

// RosterSnapshot is the full roster payload used for first-contact bootstrap
// or full resync.
type RosterSnapshot struct {
	Players []Player     `json:"players"`
	Teams   []TeamRecord `json:"teams"`
	Presets []Preset     `json:"presets"`
	TakenAt time.Time    `json:"takenAt"`
}

// RosterUpsert carries only entities that are new or newer than the
// receiver's last known modification time.
type RosterUpsert struct {
	Players []Player     `json:"players,omitempty"`
	Teams   []TeamRecord `json:"teams,omitempty"`
	Presets []Preset     `json:"presets,omitempty"`
}

// IsEmpty reports whether the upsert carries no entities at all.
func (u RosterUpsert) IsEmpty() bool {
	return len(u.Players) == 0 && len(u.Teams) == 0 && len(u.Presets) == 0
}

// RosterPrune lists entity ids the receiver must delete or archive.
type RosterPrune struct {
	Players []PlayerID `json:"players,omitempty"`
	Teams   []TeamID   `json:"teams,omitempty"`
	Presets []PresetID `json:"presets,omitempty"`
}

// IsEmpty reports whether the prune names no entities.
func (p RosterPrune) IsEmpty() bool {
	return len(p.Players) == 0 && len(p.Teams) == 0 && len(p.Presets) == 0
}

// UpsertMode selects how incoming roster entities overwrite local ones.
type UpsertMode string

const (
	// UpsertMerge overwrites only when the incoming record is strictly newer
	// or the entity does not exist locally.
	UpsertMerge UpsertMode = "merge"
	// UpsertReplace overwrites unconditionally.
	UpsertReplace UpsertMode = "replace"
)
