// Package reconciler merges authoritative snapshots and idempotent deltas
// into one consistent live-game projection per game id.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/rallyscore/go-rallysync/common/types"
	"github.com/rallyscore/go-rallysync/log"
)

var (
	// ErrNeedsSnapshot is returned when a delta arrives for a game with no
	// current projection. The caller must obtain a snapshot and retry; a
	// baseline is never fabricated.
	ErrNeedsSnapshot = errors.New("needs snapshot")
	// ErrCorruptDelta is returned for malformed operation payloads. The delta
	// is dropped; the projection is untouched.
	ErrCorruptDelta = errors.New("corrupt delta")
)

// Config holds the reconciler parameters.
type Config struct {
	// DedupWindow is the number of recently applied delta ids remembered for
	// retransmission suppression.
	DedupWindow int `mapstructure:"dedup-window"`
}

// DefaultConfig returns the default reconciler configuration.
func DefaultConfig() Config {
	return Config{DedupWindow: 1024}
}

// Opt configures a Reconciler.
type Opt func(*Reconciler)

func WithLogger(logger *zap.Logger) Opt {
	return func(r *Reconciler) { r.logger = logger }
}

func WithConfig(cfg Config) Opt {
	return func(r *Reconciler) { r.cfg = cfg }
}

// opIdentity keys the logical-timestamp watermark: operation kind plus its
// team argument. Deltas of the same identity must carry strictly increasing
// logical times; different identities at the same time are commutative.
type opIdentity struct {
	op   types.OpKind
	team types.Team
}

// undoRecord remembers the fields a scoring delta changed so undoLastPoint
// can revert exactly one point.
type undoRecord struct {
	score types.Score
	serve types.ServeState
	state types.GameState
}

// projection is the per-game single-writer critical section: snapshot and
// delta application for one game id never interleave.
type projection struct {
	mu    sync.Mutex
	snap  types.LiveGameSnapshot
	marks map[opIdentity]time.Duration
	undo  *undoRecord
}

// Reconciler owns the authoritative in-memory live-game projections.
type Reconciler struct {
	logger *zap.Logger
	cfg    Config
	engine RuleEngine

	mu    sync.RWMutex
	games map[types.GameID]*projection
	seen  *lru.Cache[uuid.UUID, struct{}]
}

// New creates a reconciler delegating rule evaluation to engine.
func New(engine RuleEngine, opts ...Opt) *Reconciler {
	r := &Reconciler{
		logger: zap.NewNop(),
		cfg:    DefaultConfig(),
		engine: engine,
		games:  make(map[types.GameID]*projection),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.DedupWindow < 1 {
		r.cfg.DedupWindow = DefaultConfig().DedupWindow
	}
	r.seen, _ = lru.New[uuid.UUID, struct{}](r.cfg.DedupWindow)
	return r
}

// ApplySnapshot unconditionally replaces the local projection for the
// snapshot's game id. Watermarks and undo state restart from the snapshot.
func (r *Reconciler) ApplySnapshot(ctx context.Context, snap types.LiveGameSnapshot) error {
	if snap.GameID.IsEmpty() {
		return fmt.Errorf("%w: snapshot without game id", ErrCorruptDelta)
	}
	proj := r.getOrCreate(snap.GameID)
	proj.mu.Lock()
	defer proj.mu.Unlock()
	proj.snap = snap
	proj.marks = make(map[opIdentity]time.Duration)
	proj.undo = nil
	appliedSnapshots.Inc()
	r.logger.Debug("applied snapshot",
		log.ZContext(ctx),
		zap.Stringer("game", snap.GameID),
		zap.Int("score1", snap.Score.Team1),
		zap.Int("score2", snap.Score.Team2),
	)
	return nil
}

// ApplyDelta applies one incremental operation. Redelivered ids and stale
// logical timestamps of the same operation identity are discarded as
// duplicates with no error; a missing projection fails with ErrNeedsSnapshot.
func (r *Reconciler) ApplyDelta(ctx context.Context, d types.LiveGameDelta) error {
	if err := validate(d); err != nil {
		corruptDeltas.Inc()
		r.logger.Warn("dropping corrupt delta",
			log.ZContext(ctx),
			zap.String("op", string(d.Op)),
			zap.Error(err),
		)
		return err
	}
	proj, ok := r.get(d.GameID)
	if !ok {
		needsSnapshot.Inc()
		return fmt.Errorf("%w: game %s", ErrNeedsSnapshot, d.GameID)
	}

	proj.mu.Lock()
	defer proj.mu.Unlock()

	if r.seen.Contains(d.ID) {
		discardedReplays.Inc()
		return nil
	}
	ident := opIdentity{op: d.Op, team: d.Team}
	if mark, ok := proj.marks[ident]; ok && d.LogicalTime <= mark {
		discardedStale.Inc()
		r.logger.Debug("discarding stale delta",
			log.ZContext(ctx),
			zap.Stringer("game", d.GameID),
			zap.String("op", string(d.Op)),
			zap.Duration("logical", d.LogicalTime),
			zap.Duration("mark", mark),
		)
		return nil
	}

	r.applyOp(&proj.snap, proj, d)
	proj.marks[ident] = d.LogicalTime
	r.seen.Add(d.ID, struct{}{})
	appliedDeltas.Inc()
	r.logger.Debug("applied delta",
		log.ZContext(ctx),
		zap.Stringer("game", d.GameID),
		zap.String("op", string(d.Op)),
		zap.Duration("logical", d.LogicalTime),
	)
	return nil
}

// Projection returns a copy of the current projection for the game id.
func (r *Reconciler) Projection(id types.GameID) (types.LiveGameSnapshot, bool) {
	proj, ok := r.get(id)
	if !ok {
		return types.LiveGameSnapshot{}, false
	}
	proj.mu.Lock()
	defer proj.mu.Unlock()
	return proj.snap, true
}

// Games lists the game ids with a live projection.
func (r *Reconciler) Games() []types.GameID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.GameID, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}
	return ids
}

// Forget drops the projection for a finished game.
func (r *Reconciler) Forget(id types.GameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, id)
}

func (r *Reconciler) get(id types.GameID) (*projection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	proj, ok := r.games[id]
	return proj, ok
}

func (r *Reconciler) getOrCreate(id types.GameID) *projection {
	r.mu.Lock()
	defer r.mu.Unlock()
	proj, ok := r.games[id]
	if !ok {
		proj = &projection{marks: make(map[opIdentity]time.Duration)}
		r.games[id] = proj
	}
	return proj
}

func validate(d types.LiveGameDelta) error {
	if d.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrCorruptDelta)
	}
	if d.GameID.IsEmpty() {
		return fmt.Errorf("%w: missing game id", ErrCorruptDelta)
	}
	if !d.Op.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrCorruptDelta, d.Op)
	}
	if d.Op.NeedsTeam() && !d.Team.Valid() {
		return fmt.Errorf("%w: %q without team", ErrCorruptDelta, d.Op)
	}
	if d.Op == types.OpSetGameState && !d.State.Valid() {
		return fmt.Errorf("%w: unknown game state %q", ErrCorruptDelta, d.State)
	}
	return nil
}

// applyOp mutates the snapshot per operation kind. Rule evaluation is
// delegated to the engine collaborator; the reconciler only applies the
// bookkeeping that is sync-specific (undo tracking, timer overwrite, reset).
func (r *Reconciler) applyOp(s *types.LiveGameSnapshot, proj *projection, d types.LiveGameDelta) {
	switch d.Op {
	case types.OpScore:
		proj.undo = &undoRecord{score: s.Score, serve: s.Serve, state: s.State}
		r.engine.ScorePoint(s, d.Team)
	case types.OpDecrement:
		if v := s.Score.Of(d.Team); v > 0 {
			s.SetScore(d.Team, v-1)
		}
		proj.undo = nil
	case types.OpUndoLastPoint:
		if proj.undo != nil {
			s.Score = proj.undo.score
			s.Serve = proj.undo.serve
			s.State = proj.undo.state
			proj.undo = nil
		}
	case types.OpSetGameState:
		s.State = d.State
		proj.undo = nil
	case types.OpSwitchServer:
		r.engine.SwitchServer(s)
		proj.undo = nil
	case types.OpSetServer:
		r.engine.SetServer(s, d.Team)
		proj.undo = nil
	case types.OpSwitchServingPlayer:
		r.engine.SwitchServingPlayer(s)
		proj.undo = nil
	case types.OpStartSecondServe:
		r.engine.StartSecondServe(s)
		proj.undo = nil
	case types.OpServiceFault:
		r.engine.ServiceFault(s)
		proj.undo = nil
	case types.OpNonServingTeamTap:
		r.engine.NonServingTeamTap(s, d.Team)
		proj.undo = nil
	case types.OpReset:
		s.Score = types.Score{}
		s.Serve = initialServe(s.Rules)
		s.Elapsed = 0
		s.TimerRunning = false
		s.State = types.GameStateInitial
		proj.undo = nil
	case types.OpSetElapsedTime:
		// the receiver always takes the sender's timer, no extrapolation
		s.Elapsed = d.Elapsed
		s.TimerRunning = d.Running
	}
}

// initialServe is the 0-0 serve state: team 1 serves from the right, and in
// the two-server rotation the opening team starts on its second server.
func initialServe(rules types.RuleSet) types.ServeState {
	sv := types.ServeState{
		ServingTeam:    types.Team1,
		ServerNumber:   1,
		ServerPosition: types.PositionRight,
		Side:           types.CourtSideA,
	}
	if rules.ServingRotation == types.RotationTwoServers {
		sv.ServerNumber = 2
	}
	return sv
}
