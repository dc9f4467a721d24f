package syncer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rallyscore/go-rallysync/codec"
	"github.com/rallyscore/go-rallysync/common/types"
	"github.com/rallyscore/go-rallysync/log"
	"github.com/rallyscore/go-rallysync/transport"
	"github.com/rallyscore/go-rallysync/wire"
)

// Send encodes payload and transmits it when the peer is reachable. While
// unreachable, durable message types are queued for delivery on reconnect and
// ephemeral ones are dropped with ErrUnreachable. The durable/ephemeral split
// is a property of the message catalog, not a per-call decision.
func (s *Syncer) Send(ctx context.Context, mtype wire.MessageType, payload any) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	env, err := codec.EncodeSession(mtype, payload, &s.sessionID)
	if err != nil {
		return fmt.Errorf("send %q: %w", mtype, err)
	}
	return s.dispatchOutbound(ctx, env)
}

// SendDelta transmits one live-game delta.
func (s *Syncer) SendDelta(ctx context.Context, d types.LiveGameDelta) error {
	return s.Send(ctx, wire.TypeLiveDelta, &d)
}

// SendSnapshot pushes the full live-game state to the peer.
func (s *Syncer) SendSnapshot(ctx context.Context, snap types.LiveGameSnapshot) error {
	return s.Send(ctx, wire.TypeLiveSnapshot, &snap)
}

// SendStartConfig shares the pending game configuration with the peer.
func (s *Syncer) SendStartConfig(ctx context.Context, cfg types.GameStartConfig) error {
	return s.Send(ctx, wire.TypeStartConfig, &cfg)
}

// RequestStart asks the peer to start a game of the given type.
func (s *Syncer) RequestStart(ctx context.Context, gameType string) error {
	return s.Send(ctx, wire.TypeStartRequest, &types.StartGameRequest{GameType: gameType})
}

// RequestHistory asks the peer for its completed-game summaries.
func (s *Syncer) RequestHistory(ctx context.Context) error {
	return s.Send(ctx, wire.TypeHistoryRequest, nil)
}

func (s *Syncer) dispatchOutbound(ctx context.Context, env wire.Envelope) error {
	if s.Reachability() == Reachable {
		err := s.sendNow(ctx, env)
		if err == nil {
			return nil
		}
		s.logger.Debug("immediate send failed",
			log.ZContext(ctx),
			zap.String("type", string(env.Type)),
			zap.Error(err),
		)
	}
	if env.Type.Durable() {
		s.enqueue(env)
		return nil
	}
	droppedEphemeral.Inc()
	return fmt.Errorf("%w: dropping ephemeral %q", ErrUnreachable, env.Type)
}

// sendNow transmits one envelope and arms the bookkeeping that outlives the
// send: durable envelopes await an ack, requests await their reply.
func (s *Syncer) sendNow(ctx context.Context, env wire.Envelope) error {
	if err := s.tr.Send(ctx, env); err != nil {
		return err
	}
	sentDirect.Inc()
	if env.Type.Durable() {
		s.trackUnacked(env)
	}
	if env.Type.ExpectsReply() {
		s.mu.Lock()
		s.pending[env.ID] = pendingRequest{
			env:      env,
			deadline: s.clock.Now().Add(s.cfg.RequestTimeout),
		}
		s.mu.Unlock()
	}
	return nil
}

// encodeAndSend is the loop-internal send for protocol messages: failures
// queue durables and drop the rest, they never propagate.
func (s *Syncer) encodeAndSend(ctx context.Context, mtype wire.MessageType, payload any) {
	env, err := codec.EncodeSession(mtype, payload, &s.sessionID)
	if err != nil {
		s.logger.Warn("cannot encode outbound message",
			log.ZContext(ctx),
			zap.String("type", string(mtype)),
			zap.Error(err),
		)
		return
	}
	if err := s.dispatchOutbound(ctx, env); err != nil {
		s.logger.Debug("outbound message dropped",
			log.ZContext(ctx),
			zap.String("type", string(mtype)),
			zap.Error(err),
		)
	}
}

func (s *Syncer) enqueue(env wire.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) >= s.cfg.QueueSize {
		droppedOverflow.Inc()
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, env)
	sentQueued.Inc()
}

func (s *Syncer) trackUnacked(env wire.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.unacked {
		if e.ID == env.ID {
			return
		}
	}
	if len(s.unacked) >= s.cfg.QueueSize {
		s.unacked = s.unacked[1:]
	}
	s.unacked = append(s.unacked, env)
}

func (s *Syncer) clearUnacked(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.unacked {
		if e.ID == id {
			s.unacked = append(s.unacked[:i], s.unacked[i+1:]...)
			return
		}
	}
}

// clearPendingByRequestType resolves pending requests answered by a reply
// that carries no explicit reference id (snapshots, summaries).
func (s *Syncer) clearPendingByRequestType(reqType wire.MessageType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, req := range s.pending {
		if req.env.Type == reqType {
			delete(s.pending, id)
		}
	}
}

// linkUp reports whether the transport last announced a usable link.
func (s *Syncer) linkUp() bool {
	return transport.LinkState(s.lastLink.Load()) == transport.LinkUp
}
