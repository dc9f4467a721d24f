package syncer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rallyscore/go-rallysync/codec"
	"github.com/rallyscore/go-rallysync/common/types"
	"github.com/rallyscore/go-rallysync/events"
	"github.com/rallyscore/go-rallysync/log"
	"github.com/rallyscore/go-rallysync/reconciler"
	"github.com/rallyscore/go-rallysync/roster"
	"github.com/rallyscore/go-rallysync/wire"
)

// onReceive decodes, classifies and routes one inbound envelope. Unknown or
// malformed envelopes get a best-effort error reply so the sender can detect
// version skew; they never crash the receiver.
func (s *Syncer) onReceive(ctx context.Context, env wire.Envelope) {
	ctx = log.WithRequestID(ctx, env.ID)
	if env.SessionID != nil {
		ctx = log.WithSessionID(ctx, *env.SessionID)
	}

	payload, err := codec.Decode(env)
	if err != nil {
		code := wire.ErrorCodeDecodeFailed
		if errors.Is(err, codec.ErrUnsupportedType) || errors.Is(err, codec.ErrUnsupportedVersion) {
			code = wire.ErrorCodeUnsupportedType
		}
		s.logger.Warn("undecodable envelope",
			log.ZContext(ctx),
			zap.String("type", string(env.Type)),
			zap.Int("version", env.ProtocolVersion),
			zap.Error(err),
		)
		s.replyError(ctx, env, code, "cannot decode envelope")
		return
	}

	switch p := payload.(type) {
	case *types.LiveGameSnapshot:
		s.handleLiveSnapshot(ctx, env, *p)
	case *types.LiveGameDelta:
		s.handleLiveDelta(ctx, env, *p)
	case *types.RosterSnapshot:
		s.handleRosterSnapshot(ctx, *p)
	case *types.RosterInventory:
		s.handleRosterInventory(ctx, *p)
	case *types.RosterUpsert:
		s.handleRosterUpsert(ctx, env, *p)
	case *types.RosterPrune:
		s.handleRosterPrune(ctx, env, *p)
	case *types.HistorySummaries:
		s.clearPendingByRequestType(wire.TypeHistoryRequest)
		s.bus.PublishHistory(events.HistoryReceived{Summaries: p.Summaries})
	case *types.GameStartConfig:
		s.bus.PublishStart(events.StartRequested{Config: p})
		s.ack(ctx, env)
	case *types.StartGameRequest:
		s.bus.PublishStart(events.StartRequested{Request: p})
	case *wire.Empty:
		s.handleRequest(ctx, env)
	case *wire.Ack:
		s.clearUnacked(p.RefID)
	case *wire.Error:
		s.handlePeerError(ctx, *p)
	default:
		// catalog and decoder agree on shapes; this is unreachable unless a
		// new tag is added without a handler
		s.logger.Warn("unrouted payload", log.ZContext(ctx), zap.String("type", string(env.Type)))
	}
}

func (s *Syncer) handleLiveSnapshot(ctx context.Context, env wire.Envelope, snap types.LiveGameSnapshot) {
	s.clearPendingByRequestType(wire.TypeLiveStatusRequest)
	if err := s.recon.ApplySnapshot(ctx, snap); err != nil {
		s.logger.Warn("snapshot rejected", log.ZContext(ctx), zap.Error(err))
		return
	}
	s.bus.PublishLiveApplied(events.LiveApplied{
		GameID:   snap.GameID,
		Snapshot: true,
		At:       s.clock.Now(),
	})
}

func (s *Syncer) handleLiveDelta(ctx context.Context, env wire.Envelope, d types.LiveGameDelta) {
	err := s.recon.ApplyDelta(ctx, d)
	switch {
	case err == nil:
		s.ack(ctx, env)
		s.bus.PublishLiveApplied(events.LiveApplied{
			GameID: d.GameID,
			Op:     d.Op,
			At:     s.clock.Now(),
		})
	case errors.Is(err, reconciler.ErrNeedsSnapshot):
		// never fabricate a baseline: tell the sender we need its snapshot
		s.replyError(ctx, env, wire.ErrorCodeNeedsSnapshot, "no projection for game")
	case errors.Is(err, reconciler.ErrCorruptDelta):
		// dropped and counted by the reconciler; not fatal
		s.recordError("corrupt_delta", "a malformed delta was dropped")
	default:
		s.logger.Warn("delta rejected", log.ZContext(ctx), zap.Error(err))
	}
}

func (s *Syncer) handleRosterSnapshot(ctx context.Context, snap types.RosterSnapshot) {
	s.clearPendingByRequestType(wire.TypeRosterRequest)
	if err := s.roster.ApplySnapshot(ctx, snap); err != nil {
		s.logger.Warn("roster snapshot failed", log.ZContext(ctx), zap.Error(err))
		s.recordError("roster_apply_failed", "could not apply roster snapshot")
		return
	}
	s.bus.PublishRosterApplied(events.RosterApplied{
		Upserted: len(snap.Players) + len(snap.Teams) + len(snap.Presets),
		Replaced: true,
		At:       s.clock.Now(),
	})
}

// handleRosterInventory answers the peer's inventory with the entities we
// hold newer versions of, plus prune instructions when we are the
// authoritative roster source.
func (s *Syncer) handleRosterInventory(ctx context.Context, remote types.RosterInventory) {
	local, err := s.roster.ComputeInventory()
	if err != nil {
		s.logger.Warn("cannot compute inventory", log.ZContext(ctx), zap.Error(err))
		return
	}
	diff := roster.DiffInventories(local, remote, s.cfg.RosterAuthority)
	if diff.IsEmpty() {
		return
	}
	up, err := s.roster.BuildUpsert(diff)
	if err != nil {
		s.logger.Warn("cannot hydrate upsert", log.ZContext(ctx), zap.Error(err))
		return
	}
	if !up.IsEmpty() {
		s.encodeAndSend(ctx, wire.TypeRosterUpsert, &up)
	}
	if prune := diff.Prune(); s.cfg.RosterAuthority && !prune.IsEmpty() {
		s.encodeAndSend(ctx, wire.TypeRosterPrune, &prune)
	}
}

func (s *Syncer) handleRosterUpsert(ctx context.Context, env wire.Envelope, up types.RosterUpsert) {
	applied, err := s.roster.ApplyUpsert(ctx, up, types.UpsertMerge)
	if err != nil {
		s.logger.Warn("roster upsert failed", log.ZContext(ctx), zap.Error(err))
		s.recordError("roster_apply_failed", "could not apply roster upsert")
		return
	}
	s.ack(ctx, env)
	if applied > 0 {
		s.bus.PublishRosterApplied(events.RosterApplied{Upserted: applied, At: s.clock.Now()})
	}
}

func (s *Syncer) handleRosterPrune(ctx context.Context, env wire.Envelope, p types.RosterPrune) {
	pruned, err := s.roster.ApplyPrune(ctx, p)
	if err != nil {
		s.logger.Warn("roster prune failed", log.ZContext(ctx), zap.Error(err))
		s.recordError("roster_apply_failed", "could not apply roster prune")
		return
	}
	s.ack(ctx, env)
	if pruned > 0 {
		s.bus.PublishRosterApplied(events.RosterApplied{Pruned: pruned, At: s.clock.Now()})
	}
}

// handleRequest serves the empty-bodied request tags.
func (s *Syncer) handleRequest(ctx context.Context, env wire.Envelope) {
	switch env.Type {
	case wire.TypeRosterRequest:
		snap, err := s.roster.BuildSnapshot()
		if err != nil {
			s.logger.Warn("cannot build roster snapshot", log.ZContext(ctx), zap.Error(err))
			return
		}
		s.encodeAndSend(ctx, wire.TypeRosterSnapshot, &snap)
	case wire.TypeHistoryRequest:
		if s.history == nil {
			return
		}
		sums, err := s.history.Summaries()
		if err != nil {
			s.logger.Warn("cannot list history", log.ZContext(ctx), zap.Error(err))
			return
		}
		s.encodeAndSend(ctx, wire.TypeHistorySummaries, &types.HistorySummaries{Summaries: sums})
	case wire.TypeLiveStatusRequest:
		if s.games != nil {
			if snap, ok := s.games.ActiveGame(); ok {
				s.encodeAndSend(ctx, wire.TypeLiveSnapshot, &snap)
				return
			}
		}
		s.replyError(ctx, env, wire.ErrorCodeNoActiveGame, "no live game")
	}
}

func (s *Syncer) handlePeerError(ctx context.Context, e wire.Error) {
	errorsReceived.Inc()
	s.recordError(e.Code, e.Message)
	s.logger.Info("peer reported error",
		log.ZContext(ctx),
		zap.String("code", e.Code),
		zap.String("message", e.Message),
	)
	if e.Code == wire.ErrorCodeNeedsSnapshot && s.games != nil {
		if snap, ok := s.games.ActiveGame(); ok {
			s.encodeAndSend(ctx, wire.TypeLiveSnapshot, &snap)
		}
	}
}

func (s *Syncer) ack(ctx context.Context, env wire.Envelope) {
	s.encodeAndSend(ctx, wire.TypeAck, &wire.Ack{RefID: env.ID})
}

// replyError is best effort: it must never recurse into more error replies.
func (s *Syncer) replyError(ctx context.Context, env wire.Envelope, code, msg string) {
	s.recordError(code, msg)
	if env.Type == wire.TypeError {
		return
	}
	errorsSent.Inc()
	s.encodeAndSend(ctx, wire.TypeError, &wire.Error{Code: code, Message: msg, RefID: env.ID})
}
