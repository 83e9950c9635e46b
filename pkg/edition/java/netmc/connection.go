package netmc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/rs/xid"
	"go.uber.org/atomic"

	"go.minekube.com/limbo/pkg/edition/java/proto/packet"
	"go.minekube.com/limbo/pkg/edition/java/proto/state"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/util/errs"
)

// MinecraftConn is a Minecraft client connection.
// The connection is unusable after Close was called and must be recreated.
type MinecraftConn interface {
	// Context returns the context of the connection.
	// This Context is canceled on Close and can be used to attach more context values to a connection.
	Context() context.Context
	// Close closes the connection, if not already, and calls SessionHandler.Disconnected.
	// It is okay to call this method multiple times.
	// If the connection is in a closing state Close blocks until the connection completed the close.
	// To check whether a connection is closed use Closed.
	Close() error

	// ID returns the unique id of the connection used in logs.
	ID() xid.ID
	// State returns the current state of the connection.
	State() *state.Registry
	// Protocol returns the protocol version of the connection.
	Protocol() proto.Protocol
	// RemoteAddr returns the remote address of the connection.
	RemoteAddr() net.Addr
	// LocalAddr returns the local address of the connection.
	LocalAddr() net.Addr
	// SessionHandler returns the session handler of the connection.
	SessionHandler() SessionHandler

	// SetSessionHandler sets the session handler for this connection
	// and calls Deactivated() on the old handler and Activated() on the new handler.
	SetSessionHandler(SessionHandler)
	// Redeliver hands a packet received earlier to the current session handler
	// as if it was just read. The connection takes ownership of pc and releases
	// it after handling unless the handler retains it.
	// A panicking handler is recovered and reported as ErrHandlerPanic.
	Redeliver(pc *proto.PacketContext) error

	StateChanger
	PacketWriter
}

// Closed returns true if the connection is closed.
func Closed(c interface{ Context() context.Context }) bool {
	return c.Context().Err() != nil
}

// PacketWriter is the interface for writing packets to the underlying connection.
type PacketWriter interface {
	// WritePacket writes a packet to the connection's
	// write buffer and flushes the complete buffer afterwards.
	//
	// The connection will be closed on any error encountered!
	WritePacket(p proto.Packet) (err error)
	// Write encodes and writes payload to the connection's
	// write buffer and flushes the complete buffer afterwards.
	Write(payload []byte) (err error)

	// BufferPacket writes a packet into the connection's write buffer.
	BufferPacket(packet proto.Packet) (err error)
	// Flush flushes the buffered data to the connection.
	Flush() error
}

// StateChanger updates state of a connection.
type StateChanger interface {
	// SetProtocol switches the connection's protocol version.
	SetProtocol(proto.Protocol)
	// SetState switches the connection's state.
	SetState(state *state.Registry)
	// SetCompressionThreshold sets the compression threshold of the connection.
	// packet.SetCompression should be sent beforehand.
	SetCompressionThreshold(threshold int) error
}

// SessionHandler handles received packets from the associated connection.
//
// Since connections transition between states packets need to be handled differently,
// this behaviour is divided between sessions by session handlers.
//
// The PacketContext passed to HandlePacket is released after the call returns
// unless the handler called PacketContext.Retain, which makes the handler its owner.
type SessionHandler interface {
	HandlePacket(pc *proto.PacketContext) // Called to handle incoming known or unknown packet.
	Disconnected()                        // Called when connection is closing, to teardown the session.

	Activated()   // Called when the connection is now managed by this SessionHandler.
	Deactivated() // Called when the connection is no longer managed by this SessionHandler.
}

// ErrHandlerPanic is returned by Redeliver when the session handler panicked.
var ErrHandlerPanic = errors.New("session handler panicked")

// NewMinecraftConn returns a new MinecraftConn and the func to start the blocking read-loop.
func NewMinecraftConn(
	ctx context.Context,
	base net.Conn,
	readTimeout time.Duration,
	writeTimeout time.Duration,
	compressionLevel int,
) (conn MinecraftConn, startReadLoop func()) {
	id := xid.New()
	log := logr.FromContextOrDiscard(ctx).WithName("client").WithValues("conn", id.String())
	ctx = logr.NewContext(ctx, log)

	ctx, cancel := context.WithCancel(ctx)
	c := &minecraftConn{
		id:        id,
		log:       log,
		c:         base,
		ctx:       ctx,
		cancelCtx: cancel,
		// reads from client are server bound, writes to client are client bound
		rd:       NewReader(base, proto.ServerBound, readTimeout, log),
		wr:       NewWriter(base, proto.ClientBound, writeTimeout, compressionLevel, log),
		state:    state.Handshake,
		protocol: version.Minecraft_1_7_2.Protocol,
	}
	return c, c.startReadLoop
}

// minecraftConn is a Minecraft client connection.
type minecraftConn struct {
	id  xid.ID
	c   net.Conn    // underlying connection
	log logr.Logger // connections own logger

	rd Reader
	wr Writer

	ctx             context.Context // is canceled when connection closed
	cancelCtx       context.CancelFunc
	closeOnce       sync.Once   // Makes sure the connection is closed once, while blocking proceeding calls.
	knownDisconnect atomic.Bool // Silences disconnect (any error is known)

	protocol atomic.Int32 // Client's protocol version.

	mu    sync.RWMutex    // Protects following fields
	state *state.Registry // Client state.

	sessionHandlerMu struct {
		sync.RWMutex
		SessionHandler // The current session handler.
	}
}

// StartReadLoop is the main goroutine of this connection and
// reads packets to pass them further to the current SessionHandler.
// Close will be called on method return.
func (c *minecraftConn) startReadLoop() {
	// Make sure to close connection on return, if not already closed
	defer func() { _ = c.closeKnown(false) }()

	for !Closed(c) {
		pc, err := c.rd.ReadPacket()
		if err != nil {
			if errors.Is(err, ErrReadPacketRetry) {
				// Sleep briefly and try again
				time.Sleep(time.Millisecond * 5)
				continue
			}
			return
		}
		if err = c.dispatch(pc); err != nil {
			c.log.Error(err, "recovered panic in packets read loop", "packet", pc.String())
		}
	}
}

// dispatch hands pc to the current session handler and
// releases it afterwards unless the handler retained it.
func (c *minecraftConn) dispatch(pc *proto.PacketContext) (err error) {
	handler := c.SessionHandler()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %T: %v", ErrHandlerPanic, handler, r)
		}
		if !pc.Retained() {
			pc.Release()
		}
	}()
	if handler == nil {
		return nil
	}
	handler.HandlePacket(pc)
	return nil
}

func (c *minecraftConn) Redeliver(pc *proto.PacketContext) error {
	pc.ResetRetain()
	if Closed(c) {
		pc.Release()
		return ErrClosedConn
	}
	return c.dispatch(pc)
}

func (c *minecraftConn) Context() context.Context { return c.ctx }

func (c *minecraftConn) ID() xid.ID { return c.id }

func (c *minecraftConn) Flush() error {
	err := c.wr.Flush()
	if err != nil {
		c.closeOnErr(err)
	}
	return err
}

func (c *minecraftConn) WritePacket(p proto.Packet) (err error) {
	if Closed(c) {
		return ErrClosedConn
	}
	defer func() { c.closeOnErr(err) }()
	if err = c.BufferPacket(p); err != nil {
		return err
	}
	return c.Flush()
}

func (c *minecraftConn) Write(payload []byte) (err error) {
	if Closed(c) {
		return ErrClosedConn
	}
	defer func() { c.closeOnErr(err) }()
	if _, err = c.wr.Write(payload); err != nil {
		return err
	}
	return c.Flush()
}

func (c *minecraftConn) BufferPacket(packet proto.Packet) (err error) {
	if Closed(c) {
		return ErrClosedConn
	}
	defer func() { c.closeOnErr(err) }()
	_, err = c.wr.WritePacket(packet)
	return err
}

func (c *minecraftConn) closeOnErr(err error) {
	if err == nil {
		return
	}
	_ = c.Close()
	if errors.Is(err, ErrClosedConn) || errs.IsConnClosedErr(err) {
		return // Don't log this error
	}
	c.log.V(1).Info("error writing packet, closing connection", "error", err)
}

func (c *minecraftConn) Close() error {
	return c.closeKnown(true)
}

// ErrClosedConn indicates a connection is already closed.
var ErrClosedConn = errors.New("connection is closed")

func (c *minecraftConn) closeKnown(markKnown bool) (err error) {
	alreadyClosed := true
	c.closeOnce.Do(func() {
		alreadyClosed = false
		if markKnown {
			c.knownDisconnect.Store(true)
		}

		c.cancelCtx()
		err = c.c.Close()

		if sh := c.SessionHandler(); sh != nil {
			sh.Disconnected()
		}
		if !c.knownDisconnect.Load() {
			c.log.V(1).Info("client has disconnected", "state", c.State().State)
		}
	})
	if alreadyClosed {
		err = ErrClosedConn
	}
	return err
}

// CloseWith closes the connection after writing the packet.
func CloseWith(c MinecraftConn, packet proto.Packet) (err error) {
	if Closed(c) {
		return ErrClosedConn
	}
	defer func() {
		err = c.Close()
	}()
	if mc, ok := c.(*minecraftConn); ok {
		mc.knownDisconnect.Store(true)
	}
	_ = c.WritePacket(packet)
	return
}

// KnownDisconnect returns true if the connection was or will be expectedly closed by the server.
func KnownDisconnect(c MinecraftConn) bool {
	if mc, ok := c.(*minecraftConn); ok {
		return mc.knownDisconnect.Load()
	}
	return false
}

// CloseUnknown closes the connection on for an unexpected disconnect.
// Use MinecraftConn.Close to prevent logging of disconnects that are expected.
func CloseUnknown(c MinecraftConn) error {
	if mc, ok := c.(*minecraftConn); ok {
		return mc.closeKnown(false)
	}
	return c.Close()
}

func (c *minecraftConn) RemoteAddr() net.Addr {
	return c.c.RemoteAddr()
}

func (c *minecraftConn) LocalAddr() net.Addr {
	return c.c.LocalAddr()
}

func (c *minecraftConn) Protocol() proto.Protocol {
	return proto.Protocol(c.protocol.Load())
}

func (c *minecraftConn) SetProtocol(protocol proto.Protocol) {
	c.protocol.Store(int32(protocol))
	c.rd.SetProtocol(protocol)
	c.wr.SetProtocol(protocol)
}

func (c *minecraftConn) State() *state.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *minecraftConn) SetState(state *state.Registry) {
	c.mu.Lock()
	c.state = state
	c.rd.SetState(state)
	c.wr.SetState(state)
	c.mu.Unlock()
	c.log.V(1).Info("switched state", "state", state.State)
}

func (c *minecraftConn) SessionHandler() SessionHandler {
	c.sessionHandlerMu.RLock()
	defer c.sessionHandlerMu.RUnlock()
	return c.sessionHandlerMu.SessionHandler
}

func (c *minecraftConn) SetSessionHandler(handler SessionHandler) {
	c.sessionHandlerMu.Lock()
	old := c.sessionHandlerMu.SessionHandler
	c.sessionHandlerMu.SessionHandler = handler
	c.sessionHandlerMu.Unlock()
	if old != nil {
		old.Deactivated()
	}
	handler.Activated()
}

// SetCompressionThreshold sets the compression threshold on the connection.
// You are responsible for sending packet.SetCompression beforehand.
func (c *minecraftConn) SetCompressionThreshold(threshold int) error {
	c.log.V(1).Info("update compression", "threshold", threshold)
	err := c.rd.SetCompressionThreshold(threshold)
	if err != nil {
		return err
	}
	return c.wr.SetCompressionThreshold(threshold)
}

// SendKeepAlive sends a keep-alive packet to the connection if in Play or Config state.
// This prevents a connection timeout.
func SendKeepAlive(c interface {
	State() *state.Registry
	WritePacket(proto.Packet) error
}) error {
	if s := c.State(); s == state.Play || s == state.Config {
		return c.WritePacket(&packet.KeepAlive{
			RandomID: rand.Int64(),
		})
	}
	return nil
}
