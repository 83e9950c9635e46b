// Package confirm holds a connection between the login state and the state
// that follows it until the client acknowledged the login.
//
// The Handler is installed as the session handler once the login succeeded.
// Packets that arrive after the wire already switched to the next state but
// before the transition was confirmed are buffered and replayed, in arrival
// order, into whatever session handler is active after confirmation.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"

	"go.minekube.com/limbo/pkg/edition/java/netmc"
	"go.minekube.com/limbo/pkg/edition/java/proto/packet"
	"go.minekube.com/limbo/pkg/edition/java/proto/state"
	"go.minekube.com/limbo/pkg/edition/java/proto/util/queue"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/internal/future"
)

// ErrTeardown wraps failures of Player.Teardown.
var ErrTeardown = errors.New("player teardown failed")

// ErrAlreadyConfirmed is logged when the transition is confirmed more than once.
var ErrAlreadyConfirmed = errors.New("phase transition already confirmed")

// Player is the session that is torn down when the connection
// disconnects during the transition.
type Player interface {
	Teardown() error
	fmt.Stringer
}

// Dispatcher is the connection the Handler is attached to.
// netmc.MinecraftConn implements it.
type Dispatcher interface {
	Context() context.Context
	Close() error
	State() *state.Registry
	SetState(*state.Registry)
	SessionHandler() netmc.SessionHandler
	Redeliver(pc *proto.PacketContext) error
}

type phase uint8

const (
	pending phase = iota
	completed
	closed
)

func (p phase) String() string {
	switch p {
	case pending:
		return "pending"
	case completed:
		return "completed"
	}
	return "closed"
}

// Handler is the session handler guarding the transition from the
// login state to the next state.
type Handler struct {
	conn     Dispatcher
	log      logr.Logger
	eventMgr event.Manager
	next     *state.Registry

	signal     future.Signal
	disconnect sync.Once

	mu     sync.Mutex // Protects following fields
	phase  phase
	player Player
	queue  *queue.PacketQueue
}

var _ netmc.SessionHandler = (*Handler)(nil)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. Defaults to the logger of the connection's context.
func WithLogger(log logr.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// WithEventManager sets the manager TransitionCompletedEvent and
// TransitionAbortedEvent are fired with. Defaults to event.Nop.
func WithEventManager(mgr event.Manager) Option {
	return func(h *Handler) { h.eventMgr = mgr }
}

// WithNextState sets the state the connection advances to on confirmation.
// Defaults to state.Config.
func WithNextState(next *state.Registry) Option {
	return func(h *Handler) { h.next = next }
}

// New returns a pending Handler for the connection.
func New(conn Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		conn:     conn,
		eventMgr: event.Nop,
		next:     state.Config,
		queue:    queue.NewPacketQueue(),
	}
	h.log = logr.FromContextOrDiscard(conn.Context())
	for _, o := range opts {
		o(h)
	}
	h.log = h.log.WithName("confirm")
	return h
}

// SetPlayer sets the player torn down on disconnect. The last call wins.
func (h *Handler) SetPlayer(p Player) {
	h.mu.Lock()
	h.player = p
	h.mu.Unlock()
}

func (h *Handler) getPlayer() Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.player
}

// Done reports whether the transition was confirmed.
func (h *Handler) Done() bool { return h.signal.Done() }

// Buffered returns the number of packets waiting for replay.
func (h *Handler) Buffered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queue.Len()
}

// ThenRun runs fn once the transition is confirmed, after the connection
// advanced to the next state and before buffered packets are replayed.
// Functions run in registration order on the confirming goroutine.
// If the transition is already confirmed fn runs immediately.
// A panic in fn is recovered and logged.
func (h *Handler) ThenRun(fn func()) {
	h.signal.ThenRun(func() { h.runContinuation(fn) })
}

func (h *Handler) runContinuation(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error(fmt.Errorf("panic: %v", r), "continuation of phase transition failed",
				"player", h.getPlayer())
		}
	}()
	fn()
}

// PhaseConfirmed completes the transition: it advances the connection to the
// next state, runs the functions registered with ThenRun and replays the
// buffered packets into the connection's current session handler.
//
// Only the first call on a pending Handler has an effect and returns true.
// It may be called from any goroutine.
func (h *Handler) PhaseConfirmed() bool {
	h.mu.Lock()
	if h.phase != pending {
		ph := h.phase
		h.mu.Unlock()
		if ph == completed {
			h.log.Error(ErrAlreadyConfirmed, "ignoring repeated confirmation", "player", h.getPlayer())
		} else {
			h.log.V(1).Info("ignoring confirmation of closed connection")
		}
		return false
	}
	h.phase = completed
	h.mu.Unlock()

	h.conn.SetState(h.next)
	h.signal.Complete()
	replayed := h.drain()

	h.log.V(1).Info("phase transition confirmed", "state", h.next.State, "replayed", replayed)
	h.eventMgr.Fire(&TransitionCompletedEvent{handler: h, Replayed: replayed})
	return true
}

// drain replays buffered packets in arrival order. It stops early if the
// connection disconnects, Disconnected then releases the rest.
func (h *Handler) drain() (replayed int) {
	for {
		h.mu.Lock()
		if h.phase == closed {
			h.mu.Unlock()
			return
		}
		pc, ok := h.queue.Pop()
		h.mu.Unlock()
		if !ok {
			return
		}
		if h.deliver(pc) {
			replayed++
		}
	}
}

// deliver hands pc over to the connection's active session handler.
// Ownership of pc passes to the connection in every case.
func (h *Handler) deliver(pc *proto.PacketContext) bool {
	next := h.conn.SessionHandler()
	if next == nil || next == netmc.SessionHandler(h) {
		h.log.Error(errors.New("no session handler replaced the transition handler"),
			"dropping buffered packet", "packet", pc.String())
		pc.Release()
		return false
	}
	if err := h.conn.Redeliver(pc); err != nil {
		h.log.Error(err, "could not replay buffered packet",
			"packet", pc.String(), "handler", fmt.Sprintf("%T", next))
		return false
	}
	return true
}

// HandleGeneric buffers pc if the connection's declared state already is the
// next state and the transition is still pending. Otherwise pc belongs to the
// login state and is not retained.
func (h *Handler) HandleGeneric(pc *proto.PacketContext, declared *state.Registry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.phase != pending:
		h.log.V(1).Info("dropping packet received after phase transition",
			"packet", pc.String(), "phase", h.phase)
	case declared == nil || declared.State != h.next.State:
		h.log.V(1).Info("dropping packet of previous state", "packet", pc.String())
	default:
		h.queue.Push(pc)
	}
}

// HandleUnknown closes the connection. Unknown packets can not be
// skipped safely while the state changes.
func (h *Handler) HandleUnknown(pc *proto.PacketContext) {
	h.log.V(1).Info("received unknown packet during phase transition, closing connection",
		"packet", pc.String())
	_ = h.conn.Close()
}

// HandlePacket implements netmc.SessionHandler.
func (h *Handler) HandlePacket(pc *proto.PacketContext) {
	if !pc.KnownPacket() {
		h.HandleUnknown(pc)
		return
	}
	if _, ok := pc.Packet.(*packet.LoginAcknowledged); ok {
		h.PhaseConfirmed()
		return
	}
	h.HandleGeneric(pc, h.conn.State())
}

// Disconnected tears down the player and releases all buffered packets.
// Only the first call has an effect.
func (h *Handler) Disconnected() {
	h.disconnect.Do(func() {
		h.mu.Lock()
		wasPending := h.phase == pending
		h.phase = closed
		player := h.player
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			released := h.queue.ReleaseAll()
			h.mu.Unlock()
			if released != 0 {
				h.log.V(1).Info("released buffered packets", "count", released)
			}
			if wasPending {
				h.eventMgr.Fire(&TransitionAbortedEvent{handler: h, Released: released})
			}
		}()

		if player == nil {
			return
		}
		if err := teardown(player); err != nil {
			h.log.Error(err, "could not tear down player", "player", player)
		}
	})
}

func teardown(p Player) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrTeardown, p, r)
		}
	}()
	if err = p.Teardown(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTeardown, p, err)
	}
	return nil
}

func (h *Handler) Activated()   {}
func (h *Handler) Deactivated() {}
