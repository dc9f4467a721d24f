package roster

import (
	"github.com/rallyscore/go-rallysync/common/types"
)

// Store is the roster persistence collaborator: CRUD plus the last-modified
// and history-reference queries the diff/apply steps need. The synchronizer
// holds no persistent state of its own.
type Store interface {
	Players() ([]types.Player, error)
	Teams() ([]types.TeamRecord, error)
	Presets() ([]types.Preset, error)

	GetPlayer(types.PlayerID) (types.Player, bool, error)
	GetTeam(types.TeamID) (types.TeamRecord, bool, error)
	GetPreset(types.PresetID) (types.Preset, bool, error)

	PutPlayer(types.Player) error
	PutTeam(types.TeamRecord) error
	PutPreset(types.Preset) error

	DeletePlayer(types.PlayerID) error
	DeleteTeam(types.TeamID) error
	DeletePreset(types.PresetID) error

	ArchivePlayer(types.PlayerID) error
	ArchiveTeam(types.TeamID) error
	ArchivePreset(types.PresetID) error

	// History-reference queries guard pruning: referenced entities are
	// archived instead of deleted to keep past games intact.
	PlayerInHistory(types.PlayerID) (bool, error)
	TeamInHistory(types.TeamID) (bool, error)
	PresetInHistory(types.PresetID) (bool, error)
}
