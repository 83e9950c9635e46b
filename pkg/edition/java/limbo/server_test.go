package limbo

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/limbo/pkg/edition/java/config"
	"go.minekube.com/limbo/pkg/edition/java/proto/codec"
	"go.minekube.com/limbo/pkg/edition/java/proto/packet"
	"go.minekube.com/limbo/pkg/edition/java/proto/state"
	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/edition/java/proxy/confirm"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/util/errs"
	"go.minekube.com/limbo/pkg/util/uuid"
)

const waitFor = 2 * time.Second

func newTestServer(t *testing.T, modify ...func(c *config.Config)) *Server {
	t.Helper()
	c := config.DefaultConfig
	c.KeepAliveInterval = int(time.Hour / time.Millisecond)
	for _, m := range modify {
		m(&c)
	}
	s, err := New(Options{Config: &c})
	require.NoError(t, err)
	return s
}

// testClient speaks the client side of the protocol over a pipe.
type testClient struct {
	t        *testing.T
	conn     net.Conn
	enc      *codec.Encoder
	dec      *codec.Decoder
	protocol proto.Protocol
	packets  chan proto.Packet
}

func connect(t *testing.T, s *Server, v *proto.Version) *testClient {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.HandleConn(ctx, serverSide)
	}()
	t.Cleanup(func() {
		cancel()
		_ = clientSide.Close()
		<-done
	})

	c := &testClient{
		t:        t,
		conn:     clientSide,
		enc:      codec.NewEncoder(clientSide, proto.ServerBound, logr.Discard()),
		dec:      codec.NewDecoder(clientSide, proto.ClientBound, logr.Discard()),
		protocol: v.Protocol,
		packets:  make(chan proto.Packet, 16),
	}
	c.enc.SetProtocol(v.Protocol)
	c.dec.SetProtocol(v.Protocol)
	return c
}

// handshake sends the handshake and starts reading packets in the next state.
func (c *testClient) handshake(intent int, next *state.Registry) {
	c.write(&packet.Handshake{
		ProtocolVersion: int(c.protocol),
		ServerAddress:   "localhost",
		Port:            25565,
		NextStatus:      intent,
	})
	c.enc.SetState(next)
	c.dec.SetState(next)
	go c.readLoop()
}

// readLoop follows the state changes the server initiates.
func (c *testClient) readLoop() {
	defer close(c.packets)
	for {
		pc, err := c.dec.Decode()
		if err != nil {
			if pc != nil {
				pc.Release()
			}
			if errs.IsSilent(err) {
				continue
			}
			return
		}
		p := pc.Packet
		pc.Release()
		switch typed := p.(type) {
		case nil:
			continue
		case *packet.SetCompression:
			c.dec.SetCompressionThreshold(typed.Threshold)
			_ = c.enc.SetCompression(typed.Threshold, -1)
		case *packet.ServerLoginSuccess:
			if c.protocol.GreaterEqual(version.Minecraft_1_20_2) {
				c.dec.SetState(state.Config)
			} else {
				c.dec.SetState(state.Play)
			}
		case *packet.FinishedUpdate:
			c.dec.SetState(state.Play)
		}
		c.packets <- p
	}
}

func (c *testClient) write(p proto.Packet) {
	c.t.Helper()
	_, err := c.enc.WritePacket(p)
	require.NoError(c.t, err)
}

// writeMove sends a movement packet. flags is the on ground byte,
// or the flags byte (bit0 on ground, bit1 collide) since 1.21.2.
func (c *testClient) writeMove(x, y, z float64, flags byte) {
	c.t.Helper()
	id, ok := state.FromDirection(proto.ServerBound, state.Play, c.protocol).PacketID(&packet.MovePositionOnly{})
	require.True(c.t, ok)
	var payload bytes.Buffer
	require.NoError(c.t, util.WriteVarInt(&payload, int(id)))
	for _, f := range []float64{x, y, z} {
		require.NoError(c.t, util.WriteFloat64(&payload, f))
	}
	require.NoError(c.t, util.WriteByte(&payload, flags))
	_, err := c.enc.Write(payload.Bytes())
	require.NoError(c.t, err)
}

func (c *testClient) receive() proto.Packet {
	c.t.Helper()
	select {
	case p, ok := <-c.packets:
		require.True(c.t, ok, "connection closed")
		return p
	case <-time.After(waitFor):
		c.t.Fatal("timed out waiting for packet")
		return nil
	}
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	for {
		select {
		case _, ok := <-c.packets:
			if !ok {
				return
			}
		case <-time.After(waitFor):
			c.t.Fatal("connection was not closed")
		}
	}
}

// login runs the login until the server sent the login success.
func (c *testClient) login(username string) *packet.ServerLoginSuccess {
	c.t.Helper()
	c.handshake(packet.LoginHandshakeIntent, state.Login)
	c.write(&packet.ServerLogin{Username: username, HolderID: uuid.OfflinePlayerUUID(username)})
	for {
		switch p := c.receive().(type) {
		case *packet.SetCompression:
			continue
		case *packet.ServerLoginSuccess:
			return p
		default:
			c.t.Fatalf("unexpected packet %T", p)
		}
	}
}

func TestNew_MissingConfig(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, errs.ErrMissingConfig)
}

func TestNew_InvalidMotd(t *testing.T) {
	c := config.DefaultConfig
	c.Status.Motd = `{"text":`
	_, err := New(Options{Config: &c})
	assert.Error(t, err)
}

func TestNew_MissingFavicon(t *testing.T) {
	c := config.DefaultConfig
	c.Status.Favicon = filepath.Join(t.TempDir(), "missing.png")
	_, err := New(Options{Config: &c})
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Status.ShowMaxPlayers = 42 })
	c := connect(t, s, version.Minecraft_1_20_5)
	c.handshake(packet.StatusHandshakeIntent, state.Status)

	c.write(&packet.StatusRequest{})
	res, ok := c.receive().(*packet.StatusResponse)
	require.True(t, ok)
	assert.Contains(t, res.Status, `"max":42`)
	assert.Contains(t, res.Status, `"protocol":766`)

	c.write(&packet.StatusPing{RandomID: 1337})
	pong, ok := c.receive().(*packet.StatusPing)
	require.True(t, ok)
	assert.Equal(t, int64(1337), pong.RandomID)
	c.expectClosed()
}

func TestLogin_ConfigState(t *testing.T) {
	s := newTestServer(t)
	var (
		joined    = make(chan *Player, 1)
		left      = make(chan *Player, 1)
		moved     = make(chan *PlayerMoveEvent, 1)
		completed = make(chan *confirm.TransitionCompletedEvent, 1)
	)
	event.Subscribe(s.Event(), 0, func(e *PlayerJoinEvent) { joined <- e.Player() })
	event.Subscribe(s.Event(), 0, func(e *PlayerLeaveEvent) { left <- e.Player() })
	event.Subscribe(s.Event(), 0, func(e *PlayerMoveEvent) { moved <- e })
	event.Subscribe(s.Event(), 0, func(e *confirm.TransitionCompletedEvent) { completed <- e })

	c := connect(t, s, version.Minecraft_1_21_4)
	success := c.login("Steve")
	assert.Equal(t, uuid.OfflinePlayerUUID("Steve"), success.UUID)
	assert.Equal(t, "Steve", success.Username)
	assert.Zero(t, s.PlayerCount(), "player must not join before acknowledging the login")

	c.write(&packet.LoginAcknowledged{})
	c.enc.SetState(state.Config)

	_, ok := c.receive().(*packet.FinishedUpdate)
	require.True(t, ok)

	var player *Player
	select {
	case player = <-joined:
	case <-time.After(waitFor):
		t.Fatal("player did not join")
	}
	assert.Same(t, player, s.PlayerByName("steve"))
	assert.Same(t, player, s.Player(success.UUID))
	select {
	case e := <-completed:
		assert.Zero(t, e.Replayed)
	case <-time.After(waitFor):
		t.Fatal("transition was not completed")
	}

	var brand bytes.Buffer
	require.NoError(t, util.WriteString(&brand, "vanilla"))
	c.write(&packet.ClientSettings{Locale: "en_us", ViewDistance: 8})
	c.write(&packet.PluginMessage{Channel: brandChannel, Data: brand.Bytes()})
	c.write(&packet.FinishedUpdate{})
	c.enc.SetState(state.Play)

	c.writeMove(1.5, 64, -3, 0x03)
	select {
	case e := <-moved:
		assert.Equal(t, Position{X: 1.5, Y: 64, Z: -3, OnGround: true, CollideHorizontally: true}, e.To())
		assert.Equal(t, Position{}, e.From())
	case <-time.After(waitFor):
		t.Fatal("no move event")
	}
	assert.Equal(t, Position{X: 1.5, Y: 64, Z: -3, OnGround: true, CollideHorizontally: true}, player.Position())
	assert.Equal(t, "vanilla", player.ClientBrand())
	require.NotNil(t, player.Settings())
	assert.Equal(t, "en_us", player.Settings().Locale)

	_ = c.conn.Close()
	select {
	case p := <-left:
		assert.Same(t, player, p)
	case <-time.After(waitFor):
		t.Fatal("player did not leave")
	}
	assert.Zero(t, s.PlayerCount())
	assert.False(t, player.Online())
}

func TestLogin_LegacyGoesToPlay(t *testing.T) {
	s := newTestServer(t)
	moved := make(chan *PlayerMoveEvent, 1)
	event.Subscribe(s.Event(), 0, func(e *PlayerMoveEvent) { moved <- e })

	c := connect(t, s, version.Minecraft_1_8)
	c.login("Alex")
	c.enc.SetState(state.Play)

	assert.Eventually(t, func() bool { return s.PlayerByName("alex") != nil }, waitFor, 5*time.Millisecond)

	c.writeMove(10, 70, 10, 0)
	select {
	case e := <-moved:
		assert.Equal(t, "Alex", e.Player().Username())
		assert.Equal(t, Position{X: 10, Y: 70, Z: 10}, e.To())
	case <-time.After(waitFor):
		t.Fatal("no move event")
	}
}

func TestLogin_WithoutCompression(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Compression.Threshold = -1 })
	c := connect(t, s, version.Minecraft_1_20_2)
	c.handshake(packet.LoginHandshakeIntent, state.Login)
	c.write(&packet.ServerLogin{Username: "Steve", HolderID: uuid.OfflinePlayerUUID("Steve")})
	_, ok := c.receive().(*packet.ServerLoginSuccess)
	assert.True(t, ok, "expected login success without compression")
}

func TestLogin_DuplicateName(t *testing.T) {
	s := newTestServer(t)
	first := connect(t, s, version.Minecraft_1_8)
	first.login("Steve")
	require.Eventually(t, func() bool { return s.PlayerCount() == 1 }, waitFor, 5*time.Millisecond)

	second := connect(t, s, version.Minecraft_1_8)
	second.handshake(packet.LoginHandshakeIntent, state.Login)
	second.write(&packet.ServerLogin{Username: "steve"})
	_, ok := second.receive().(*packet.Disconnect)
	assert.True(t, ok)
	second.expectClosed()
	assert.Equal(t, 1, s.PlayerCount())
}

func TestLogin_UnsupportedVersion(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s, version.Minecraft_1_8)
	c.protocol = 1 // client advertises an unknown protocol
	c.handshake(packet.LoginHandshakeIntent, state.Login)

	d, ok := c.receive().(*packet.Disconnect)
	require.True(t, ok)
	assert.NotNil(t, d.Reason)
	c.expectClosed()
}

func TestHandshake_InvalidIntent(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s, version.Minecraft_1_8)
	c.handshake(42, state.Login)
	c.expectClosed()
}

func TestServe(t *testing.T) {
	s := newTestServer(t)
	ready := make(chan net.Addr, 1)
	shutdown := make(chan struct{}, 1)
	event.Subscribe(s.Event(), 0, func(e *ReadyEvent) { ready <- e.Addr() })
	event.Subscribe(s.Event(), 0, func(*ShutdownEvent) { shutdown <- struct{}{} })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()

	var addr net.Addr
	select {
	case addr = <-ready:
	case <-time.After(waitFor):
		t.Fatal("server not ready")
	}
	assert.True(t, strings.HasPrefix(addr.String(), "127.0.0.1:"))

	// an idle connection is closed on shutdown
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	cancel()
	select {
	case err = <-served:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("server did not stop")
	}
	select {
	case <-shutdown:
	default:
		t.Fatal("no shutdown event")
	}
	assert.True(t, s.Closing())

	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Serve(context.Background(), ln2), ErrServerAlreadyRun)
}
