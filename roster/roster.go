// Package roster computes minimal diffs between two peers' rosters and
// applies incoming roster changes with merge or replace semantics. It is a
// pure diff/apply engine over an injected store.
package roster

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rallyscore/go-rallysync/common/types"
	"github.com/rallyscore/go-rallysync/log"
)

// Opt configures a Synchronizer.
type Opt func(*Synchronizer)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Synchronizer) { s.logger = logger }
}

// Synchronizer keeps players, teams and presets eventually consistent across
// peers while transferring as little as possible.
type Synchronizer struct {
	logger *zap.Logger
	store  Store
}

// New creates a synchronizer over store.
func New(store Store, opts ...Opt) *Synchronizer {
	s := &Synchronizer{
		logger: zap.NewNop(),
		store:  store,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeInventory builds the id to last-modified map of the local roster.
// Pure read, O(n) over local entities, never hydrates full records.
func (s *Synchronizer) ComputeInventory() (types.RosterInventory, error) {
	inv := types.RosterInventory{
		Players:     make(map[types.PlayerID]time.Time),
		Teams:       make(map[types.TeamID]time.Time),
		Presets:     make(map[types.PresetID]time.Time),
		GeneratedAt: time.Now().UTC(),
	}
	players, err := s.store.Players()
	if err != nil {
		return types.RosterInventory{}, fmt.Errorf("list players: %w", err)
	}
	for _, p := range players {
		inv.Players[p.ID] = p.LastModified
	}
	teams, err := s.store.Teams()
	if err != nil {
		return types.RosterInventory{}, fmt.Errorf("list teams: %w", err)
	}
	for _, t := range teams {
		inv.Teams[t.ID] = t.LastModified
	}
	presets, err := s.store.Presets()
	if err != nil {
		return types.RosterInventory{}, fmt.Errorf("list presets: %w", err)
	}
	for _, p := range presets {
		inv.Presets[p.ID] = p.LastModified
	}
	return inv, nil
}

// NeedsBootstrap reports whether the local roster is entirely empty, in which
// case a full snapshot is requested instead of an inventory exchange.
func (s *Synchronizer) NeedsBootstrap() (bool, error) {
	inv, err := s.ComputeInventory()
	if err != nil {
		return false, err
	}
	return inv.IsEmpty(), nil
}

// Diff is the outcome of comparing a local inventory against a remote one:
// ids to send as upserts, and ids the remote should prune.
type Diff struct {
	UpsertPlayers []types.PlayerID
	UpsertTeams   []types.TeamID
	UpsertPresets []types.PresetID
	PrunePlayers  []types.PlayerID
	PruneTeams    []types.TeamID
	PrunePresets  []types.PresetID
}

// IsEmpty reports whether the diff requires no messages at all.
func (d Diff) IsEmpty() bool {
	return len(d.UpsertPlayers) == 0 && len(d.UpsertTeams) == 0 && len(d.UpsertPresets) == 0 &&
		len(d.PrunePlayers) == 0 && len(d.PruneTeams) == 0 && len(d.PrunePresets) == 0
}

// DiffInventories compares the local inventory with the remote one. An id
// goes to upsert when it is absent remotely or strictly newer locally. Ids
// present remotely but absent locally become prune candidates only when the
// local side is the authoritative source; the non-authoritative side never
// prunes speculatively, it requests those ids from the remote instead.
func DiffInventories(local, remote types.RosterInventory, authoritative bool) Diff {
	var d Diff
	for id, mod := range local.Players {
		if rmod, ok := remote.Players[id]; !ok || mod.After(rmod) {
			d.UpsertPlayers = append(d.UpsertPlayers, id)
		}
	}
	for id, mod := range local.Teams {
		if rmod, ok := remote.Teams[id]; !ok || mod.After(rmod) {
			d.UpsertTeams = append(d.UpsertTeams, id)
		}
	}
	for id, mod := range local.Presets {
		if rmod, ok := remote.Presets[id]; !ok || mod.After(rmod) {
			d.UpsertPresets = append(d.UpsertPresets, id)
		}
	}
	if authoritative {
		for id := range remote.Players {
			if _, ok := local.Players[id]; !ok {
				d.PrunePlayers = append(d.PrunePlayers, id)
			}
		}
		for id := range remote.Teams {
			if _, ok := local.Teams[id]; !ok {
				d.PruneTeams = append(d.PruneTeams, id)
			}
		}
		for id := range remote.Presets {
			if _, ok := local.Presets[id]; !ok {
				d.PrunePresets = append(d.PrunePresets, id)
			}
		}
	}
	return d
}

// BuildUpsert hydrates the diff's upsert ids into full records.
func (s *Synchronizer) BuildUpsert(d Diff) (types.RosterUpsert, error) {
	var up types.RosterUpsert
	for _, id := range d.UpsertPlayers {
		p, ok, err := s.store.GetPlayer(id)
		if err != nil {
			return types.RosterUpsert{}, fmt.Errorf("get player %s: %w", id, err)
		}
		if ok {
			up.Players = append(up.Players, p)
		}
	}
	for _, id := range d.UpsertTeams {
		t, ok, err := s.store.GetTeam(id)
		if err != nil {
			return types.RosterUpsert{}, fmt.Errorf("get team %s: %w", id, err)
		}
		if ok {
			up.Teams = append(up.Teams, t)
		}
	}
	for _, id := range d.UpsertPresets {
		p, ok, err := s.store.GetPreset(id)
		if err != nil {
			return types.RosterUpsert{}, fmt.Errorf("get preset %s: %w", id, err)
		}
		if ok {
			up.Presets = append(up.Presets, p)
		}
	}
	return up, nil
}

// Prune converts the diff's prune ids into a prune message for the remote.
func (d Diff) Prune() types.RosterPrune {
	return types.RosterPrune{
		Players: d.PrunePlayers,
		Teams:   d.PruneTeams,
		Presets: d.PrunePresets,
	}
}

// BuildSnapshot hydrates the whole roster for bootstrap or full resync.
func (s *Synchronizer) BuildSnapshot() (types.RosterSnapshot, error) {
	players, err := s.store.Players()
	if err != nil {
		return types.RosterSnapshot{}, fmt.Errorf("list players: %w", err)
	}
	teams, err := s.store.Teams()
	if err != nil {
		return types.RosterSnapshot{}, fmt.Errorf("list teams: %w", err)
	}
	presets, err := s.store.Presets()
	if err != nil {
		return types.RosterSnapshot{}, fmt.Errorf("list presets: %w", err)
	}
	return types.RosterSnapshot{
		Players: players,
		Teams:   teams,
		Presets: presets,
		TakenAt: time.Now().UTC(),
	}, nil
}

// ApplyUpsert applies incoming entities. In merge mode an entity overwrites
// its local counterpart only when strictly newer or locally absent; in
// replace mode it always overwrites. Identity is by id, never by name.
// Returns the number of entities written.
func (s *Synchronizer) ApplyUpsert(ctx context.Context, up types.RosterUpsert, mode types.UpsertMode) (int, error) {
	applied := 0
	for _, in := range up.Players {
		cur, ok, err := s.store.GetPlayer(in.ID)
		if err != nil {
			return applied, fmt.Errorf("get player %s: %w", in.ID, err)
		}
		if mode == types.UpsertMerge && ok && !in.LastModified.After(cur.LastModified) {
			continue
		}
		if err := s.store.PutPlayer(in); err != nil {
			return applied, fmt.Errorf("put player %s: %w", in.ID, err)
		}
		applied++
	}
	for _, in := range up.Teams {
		cur, ok, err := s.store.GetTeam(in.ID)
		if err != nil {
			return applied, fmt.Errorf("get team %s: %w", in.ID, err)
		}
		if mode == types.UpsertMerge && ok && !in.LastModified.After(cur.LastModified) {
			continue
		}
		if err := s.store.PutTeam(in); err != nil {
			return applied, fmt.Errorf("put team %s: %w", in.ID, err)
		}
		applied++
	}
	for _, in := range up.Presets {
		cur, ok, err := s.store.GetPreset(in.ID)
		if err != nil {
			return applied, fmt.Errorf("get preset %s: %w", in.ID, err)
		}
		if mode == types.UpsertMerge && ok && !in.LastModified.After(cur.LastModified) {
			continue
		}
		if err := s.store.PutPreset(in); err != nil {
			return applied, fmt.Errorf("put preset %s: %w", in.ID, err)
		}
		applied++
	}
	if applied > 0 {
		s.logger.Debug("applied roster upsert",
			log.ZContext(ctx),
			zap.Int("entities", applied),
			zap.String("mode", string(mode)),
		)
		upsertsApplied.Add(float64(applied))
	}
	return applied, nil
}

// ApplyPrune removes the named entities. Entities referenced by historical
// game records are archived instead of deleted to preserve referential
// integrity in past games. Returns the number of entities touched.
func (s *Synchronizer) ApplyPrune(ctx context.Context, p types.RosterPrune) (int, error) {
	pruned := 0
	for _, id := range p.Players {
		referenced, err := s.store.PlayerInHistory(id)
		if err != nil {
			return pruned, fmt.Errorf("history check player %s: %w", id, err)
		}
		if referenced {
			err = s.store.ArchivePlayer(id)
		} else {
			err = s.store.DeletePlayer(id)
		}
		if err != nil {
			return pruned, fmt.Errorf("prune player %s: %w", id, err)
		}
		pruned++
	}
	for _, id := range p.Teams {
		referenced, err := s.store.TeamInHistory(id)
		if err != nil {
			return pruned, fmt.Errorf("history check team %s: %w", id, err)
		}
		if referenced {
			err = s.store.ArchiveTeam(id)
		} else {
			err = s.store.DeleteTeam(id)
		}
		if err != nil {
			return pruned, fmt.Errorf("prune team %s: %w", id, err)
		}
		pruned++
	}
	for _, id := range p.Presets {
		referenced, err := s.store.PresetInHistory(id)
		if err != nil {
			return pruned, fmt.Errorf("history check preset %s: %w", id, err)
		}
		if referenced {
			err = s.store.ArchivePreset(id)
		} else {
			err = s.store.DeletePreset(id)
		}
		if err != nil {
			return pruned, fmt.Errorf("prune preset %s: %w", id, err)
		}
		pruned++
	}
	if pruned > 0 {
		s.logger.Debug("applied roster prune", log.ZContext(ctx), zap.Int("entities", pruned))
		prunesApplied.Add(float64(pruned))
	}
	return pruned, nil
}

// ApplySnapshot overwrites the local roster with the snapshot: every record
// is written with replace semantics and local entities absent from the
// snapshot are pruned (archived when referenced by history).
func (s *Synchronizer) ApplySnapshot(ctx context.Context, snap types.RosterSnapshot) error {
	up := types.RosterUpsert{Players: snap.Players, Teams: snap.Teams, Presets: snap.Presets}
	if _, err := s.ApplyUpsert(ctx, up, types.UpsertReplace); err != nil {
		return err
	}
	inv, err := s.ComputeInventory()
	if err != nil {
		return err
	}
	var prune types.RosterPrune
	inSnap := make(map[types.PlayerID]struct{}, len(snap.Players))
	for _, p := range snap.Players {
		inSnap[p.ID] = struct{}{}
	}
	for id := range inv.Players {
		if _, ok := inSnap[id]; !ok {
			prune.Players = append(prune.Players, id)
		}
	}
	teamInSnap := make(map[types.TeamID]struct{}, len(snap.Teams))
	for _, t := range snap.Teams {
		teamInSnap[t.ID] = struct{}{}
	}
	for id := range inv.Teams {
		if _, ok := teamInSnap[id]; !ok {
			prune.Teams = append(prune.Teams, id)
		}
	}
	presetInSnap := make(map[types.PresetID]struct{}, len(snap.Presets))
	for _, p := range snap.Presets {
		presetInSnap[p.ID] = struct{}{}
	}
	for id := range inv.Presets {
		if _, ok := presetInSnap[id]; !ok {
			prune.Presets = append(prune.Presets, id)
		}
	}
	if _, err := s.ApplyPrune(ctx, prune); err != nil {
		return err
	}
	return nil
}
