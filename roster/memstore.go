package roster

import (
	"sync"

	"github.com/rallyscore/go-rallysync/common/types"
)

// MemStore is an in-memory Store. The production roster lives in the app's
// persistence layer; this implementation backs tests and two-peer
// simulations.
type MemStore struct {
	mu      sync.RWMutex
	players map[types.PlayerID]types.Player
	teams   map[types.TeamID]types.TeamRecord
	presets map[types.PresetID]types.Preset

	historyPlayers map[types.PlayerID]struct{}
	historyTeams   map[types.TeamID]struct{}
	historyPresets map[types.PresetID]struct{}
}

// NewMemStore creates an empty in-memory roster store.
func NewMemStore() *MemStore {
	return &MemStore{
		players:        make(map[types.PlayerID]types.Player),
		teams:          make(map[types.TeamID]types.TeamRecord),
		presets:        make(map[types.PresetID]types.Preset),
		historyPlayers: make(map[types.PlayerID]struct{}),
		historyTeams:   make(map[types.TeamID]struct{}),
		historyPresets: make(map[types.PresetID]struct{}),
	}
}

func (m *MemStore) Players() ([]types.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	return out, nil
}

func (m *MemStore) Teams() ([]types.TeamRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.TeamRecord, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	return out, nil
}

func (m *MemStore) Presets() ([]types.Preset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Preset, 0, len(m.presets))
	for _, p := range m.presets {
		out = append(out, p)
	}
	return out, nil
}

func (m *MemStore) GetPlayer(id types.PlayerID) (types.Player, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	return p, ok, nil
}

func (m *MemStore) GetTeam(id types.TeamID) (types.TeamRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	return t, ok, nil
}

func (m *MemStore) GetPreset(id types.PresetID) (types.Preset, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presets[id]
	return p, ok, nil
}

func (m *MemStore) PutPlayer(p types.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.ID] = p
	return nil
}

func (m *MemStore) PutTeam(t types.TeamRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.ID] = t
	return nil
}

func (m *MemStore) PutPreset(p types.Preset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets[p.ID] = p
	return nil
}

func (m *MemStore) DeletePlayer(id types.PlayerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, id)
	return nil
}

func (m *MemStore) DeleteTeam(id types.TeamID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.teams, id)
	return nil
}

func (m *MemStore) DeletePreset(id types.PresetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presets, id)
	return nil
}

func (m *MemStore) ArchivePlayer(id types.PlayerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[id]; ok {
		p.Archived = true
		m.players[id] = p
	}
	return nil
}

func (m *MemStore) ArchiveTeam(id types.TeamID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teams[id]; ok {
		t.Archived = true
		m.teams[id] = t
	}
	return nil
}

func (m *MemStore) ArchivePreset(id types.PresetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.presets[id]; ok {
		p.Archived = true
		m.presets[id] = p
	}
	return nil
}

func (m *MemStore) PlayerInHistory(id types.PlayerID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.historyPlayers[id]
	return ok, nil
}

func (m *MemStore) TeamInHistory(id types.TeamID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.historyTeams[id]
	return ok, nil
}

func (m *MemStore) PresetInHistory(id types.PresetID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.historyPresets[id]
	return ok, nil
}

// MarkPlayerInHistory records that a completed game references the player.
func (m *MemStore) MarkPlayerInHistory(id types.PlayerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyPlayers[id] = struct{}{}
}

// MarkTeamInHistory records that a completed game references the team.
func (m *MemStore) MarkTeamInHistory(id types.TeamID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyTeams[id] = struct{}{}
}

// MarkPresetInHistory records that a completed game references the preset.
func (m *MemStore) MarkPresetInHistory(id types.PresetID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyPresets[id] = struct{}{}
}
