// Package syncer owns the peer connection lifecycle: it queues outbound
// messages, routes inbound envelopes to the reconciler and roster
// synchronizer, and drives the catch-up protocol when the peer link comes
// back after an outage.
package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rallyscore/go-rallysync/events"
	"github.com/rallyscore/go-rallysync/log"
	"github.com/rallyscore/go-rallysync/reconciler"
	"github.com/rallyscore/go-rallysync/roster"
	"github.com/rallyscore/go-rallysync/transport"
	"github.com/rallyscore/go-rallysync/wire"
)

var (
	// ErrNotStarted is a contract violation: Send before Start.
	ErrNotStarted = errors.New("syncer not started")
	// ErrUnreachable is returned when an ephemeral message is dropped because
	// the peer link cannot carry it right now. Durable messages are queued
	// instead and never produce this error.
	ErrUnreachable = errors.New("peer unreachable")
)

// Reachability is the coordinator's live view of the peer link.
type Reachability uint32

const (
	// Unavailable means no peer link.
	Unavailable Reachability = iota
	// Connecting means a link attempt is in progress.
	Connecting
	// Reachable means bidirectional messaging is possible.
	Reachable
)

func (r Reachability) String() string {
	switch r {
	case Unavailable:
		return "unavailable"
	case Connecting:
		return "connecting"
	case Reachable:
		return "reachable"
	default:
		return "unknown"
	}
}

// Config holds the coordinator parameters.
type Config struct {
	// QuietPeriod is the outage duration beyond which reconnecting triggers a
	// full catch-up instead of relying on queued deltas alone.
	QuietPeriod time.Duration `mapstructure:"quiet-period"`
	// RequestTimeout bounds how long a request awaits its reply.
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	// RetryBackoffMin and RetryBackoffMax bound the exponential backoff used
	// between catch-up retries after timeouts.
	RetryBackoffMin time.Duration `mapstructure:"retry-backoff-min"`
	RetryBackoffMax time.Duration `mapstructure:"retry-backoff-max"`
	// SweepInterval is how often pending request deadlines are checked.
	SweepInterval time.Duration `mapstructure:"sweep-interval"`
	// QueueSize caps the durable outbound queue; overflow drops the oldest.
	QueueSize int `mapstructure:"queue-size"`
	// RosterAuthority marks this peer as the authoritative roster source,
	// allowing it to instruct prunes on the remote.
	RosterAuthority bool `mapstructure:"roster-authority"`
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		QuietPeriod:     10 * time.Second,
		RequestTimeout:  5 * time.Second,
		RetryBackoffMin: time.Second,
		RetryBackoffMax: 30 * time.Second,
		SweepInterval:   time.Second,
		QueueSize:       512,
	}
}

// Opt configures a Syncer.
type Opt func(*Syncer)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Syncer) { s.logger = logger }
}

func WithConfig(cfg Config) Opt {
	return func(s *Syncer) { s.cfg = cfg }
}

func WithClock(clock clockwork.Clock) Opt {
	return func(s *Syncer) { s.clock = clock }
}

// WithGameProvider wires the locally authoritative live game.
func WithGameProvider(gp gameProvider) Opt {
	return func(s *Syncer) { s.games = gp }
}

// WithHistoryProvider wires completed-game summaries for history requests.
func WithHistoryProvider(hp historyProvider) Opt {
	return func(s *Syncer) { s.history = hp }
}

// WithSessionID fixes the live-game session correlation id stamped on
// outbound envelopes.
func WithSessionID(id uuid.UUID) Opt {
	return func(s *Syncer) { s.sessionID = id }
}

// pendingRequest is an outbound request awaiting its reply.
type pendingRequest struct {
	env      wire.Envelope
	deadline time.Time
}

// Syncer is the sync coordinator. Construct with New, bracket with Start and
// Stop. All mutation of sync state happens on the single run goroutine;
// Send only encodes and hands off.
type Syncer struct {
	logger  *zap.Logger
	cfg     Config
	clock   clockwork.Clock
	tr      transport.Transport
	recon   *reconciler.Reconciler
	roster  *roster.Synchronizer
	games   gameProvider
	history historyProvider
	bus     *events.Bus

	sessionID uuid.UUID

	state    atomic.Uint32
	lastLink atomic.Uint32

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	queue    []wire.Envelope
	unacked  []wire.Envelope
	pending  map[uuid.UUID]pendingRequest
	lastDown time.Time
	lastErr  *events.SyncError

	// loop-goroutine state, no locking needed
	backoff      time.Duration
	retryAt      time.Time
	forceCatchup bool

	awaitMu        sync.Mutex
	awaitReachable []chan struct{}

	eg errgroup.Group
}

// New creates a coordinator over the given transport and collaborators.
// Multiple independent coordinators can coexist in one process.
func New(tr transport.Transport, recon *reconciler.Reconciler, ros *roster.Synchronizer, opts ...Opt) *Syncer {
	s := &Syncer{
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		clock:     clockwork.NewRealClock(),
		tr:        tr,
		recon:     recon,
		roster:    ros,
		bus:       events.NewBus(),
		sessionID: uuid.New(),
		pending:   make(map[uuid.UUID]pendingRequest),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.backoff = s.cfg.RetryBackoffMin
	return s
}

// Events returns the coordinator's event bus for observer registration.
func (s *Syncer) Events() *events.Bus { return s.bus }

// Reachability returns the current peer reachability.
func (s *Syncer) Reachability() Reachability {
	return Reachability(s.state.Load())
}

// LastSyncError returns the most recent user-visible sync error, if any.
func (s *Syncer) LastSyncError() *events.SyncError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// RegisterChForReachable registers ch for close-notification when the peer
// becomes reachable. Already-reachable closes immediately.
func (s *Syncer) RegisterChForReachable(ch chan struct{}) {
	if s.Reachability() == Reachable {
		close(ch)
		return
	}
	s.awaitMu.Lock()
	defer s.awaitMu.Unlock()
	s.awaitReachable = append(s.awaitReachable, ch)
}

// Start arms inbound routing and reachability observation. Calling Start on
// a started coordinator is a no-op.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.tr.Start(runCtx); err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		cancel()
		return err
	}
	s.eg.Go(func() error {
		s.run(runCtx)
		return nil
	})
	return nil
}

// Stop tears down observation and drops queued outbound work. Stop is
// idempotent and terminal.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	s.queue = nil
	s.unacked = nil
	s.pending = make(map[uuid.UUID]pendingRequest)
	s.mu.Unlock()

	cancel()
	s.tr.Stop()
	s.eg.Wait()
	s.bus.Close()
}

func (s *Syncer) isStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// run is the single writer for all sync state. Transitions are driven
// exclusively by transport notifications; the coordinator never polls.
func (s *Syncer) run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-s.tr.Links():
			if !ok {
				return
			}
			s.onLink(ctx, st)
		case env, ok := <-s.tr.Inbox():
			if !ok {
				return
			}
			s.onReceive(ctx, env)
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *Syncer) onLink(ctx context.Context, st transport.LinkState) {
	s.lastLink.Store(uint32(st))
	switch st {
	case transport.LinkUp:
		if s.Reachability() == Unavailable {
			// establishing never skips connecting
			s.setState(ctx, Connecting)
		}
		s.setState(ctx, Reachable)
	case transport.LinkConnecting:
		if s.Reachability() == Reachable {
			s.setState(ctx, Unavailable)
		}
		s.setState(ctx, Connecting)
	case transport.LinkDown:
		s.setState(ctx, Unavailable)
	}
}

func (s *Syncer) setState(ctx context.Context, to Reachability) {
	old := Reachability(s.state.Swap(uint32(to)))
	if old == to {
		return
	}
	stateUnavailable.Set(boolGauge(to == Unavailable))
	stateConnecting.Set(boolGauge(to == Connecting))
	stateReachable.Set(boolGauge(to == Reachable))
	s.logger.Info("reachability change",
		log.ZContext(ctx),
		zap.Stringer("from", old),
		zap.Stringer("to", to),
	)
	s.bus.PublishReachability(events.ReachabilityChanged{
		From: old.String(),
		To:   to.String(),
		At:   s.clock.Now(),
	})
	switch to {
	case Unavailable:
		s.mu.Lock()
		s.lastDown = s.clock.Now()
		s.mu.Unlock()
	case Reachable:
		s.notifyReachable()
		s.onReachable(ctx)
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (s *Syncer) notifyReachable() {
	s.awaitMu.Lock()
	defer s.awaitMu.Unlock()
	for _, ch := range s.awaitReachable {
		close(ch)
	}
	s.awaitReachable = nil
}

// onReachable flushes queued durable work and, after a long enough outage,
// runs the catch-up protocol to bound staleness.
func (s *Syncer) onReachable(ctx context.Context) {
	s.backoff = s.cfg.RetryBackoffMin
	s.mu.Lock()
	lastDown := s.lastDown
	resend := append(s.unacked[:0:0], s.unacked...)
	resend = append(resend, s.queue...)
	s.queue = nil
	s.unacked = nil
	s.mu.Unlock()

	for i, env := range resend {
		if err := s.sendNow(ctx, env); err != nil {
			s.logger.Warn("flush interrupted, re-queueing remainder",
				log.ZContext(ctx),
				zap.Int("remaining", len(resend)-i),
				zap.Error(err),
			)
			s.mu.Lock()
			s.queue = append(s.queue, resend[i:]...)
			s.mu.Unlock()
			return
		}
	}

	quiet := lastDown.IsZero() || s.clock.Now().Sub(lastDown) > s.cfg.QuietPeriod
	if quiet || s.forceCatchup {
		s.forceCatchup = false
		s.catchUp(ctx)
	}
}

// catchUp proactively exchanges full state: push our active game, request
// the peer's, and run the roster inventory exchange (or a full snapshot
// request when our roster is empty).
func (s *Syncer) catchUp(ctx context.Context) {
	catchupRuns.Inc()
	s.logger.Info("running catch-up", log.ZContext(ctx))

	if s.games != nil {
		if snap, ok := s.games.ActiveGame(); ok {
			s.encodeAndSend(ctx, wire.TypeLiveSnapshot, &snap)
		}
	}
	s.encodeAndSend(ctx, wire.TypeLiveStatusRequest, nil)

	bootstrap, err := s.roster.NeedsBootstrap()
	if err != nil {
		s.recordError(wire.ErrorCodeDecodeFailed, "roster inspection failed")
		s.logger.Warn("cannot inspect roster for catch-up", log.ZContext(ctx), zap.Error(err))
		return
	}
	if bootstrap {
		s.encodeAndSend(ctx, wire.TypeRosterRequest, nil)
		return
	}
	inv, err := s.roster.ComputeInventory()
	if err != nil {
		s.logger.Warn("cannot compute roster inventory", log.ZContext(ctx), zap.Error(err))
		return
	}
	s.encodeAndSend(ctx, wire.TypeRosterInventory, &inv)
}

// sweep expires pending requests. A timeout means the peer regressed: drop
// back to connecting and retry the catch-up protocol after a backoff, so a
// recovering transport is not stormed.
func (s *Syncer) sweep(ctx context.Context) {
	now := s.clock.Now()
	s.mu.Lock()
	var expired []pendingRequest
	for id, req := range s.pending {
		if now.After(req.deadline) {
			expired = append(expired, req)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	if len(expired) > 0 && s.Reachability() == Reachable {
		for _, req := range expired {
			requestTimeouts.Inc()
			s.logger.Warn("request timed out",
				log.ZContext(ctx),
				zap.String("type", string(req.env.Type)),
			)
		}
		s.recordError("timeout", "peer did not answer in time")
		s.setState(ctx, Connecting)
		s.retryAt = now.Add(s.backoff)
		s.backoff = min(s.backoff*2, s.cfg.RetryBackoffMax)
		s.forceCatchup = true
		return
	}

	// retry once the backoff elapses, but only while the transport still
	// reports a usable link
	if s.Reachability() == Connecting && !s.retryAt.IsZero() && now.After(s.retryAt) && s.linkUp() {
		s.retryAt = time.Time{}
		s.setState(ctx, Reachable)
	}
}

func (s *Syncer) recordError(code, msg string) {
	ev := events.SyncError{Code: code, Message: msg, At: s.clock.Now()}
	s.mu.Lock()
	s.lastErr = &ev
	s.mu.Unlock()
	s.bus.PublishError(ev)
}
