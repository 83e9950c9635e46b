package limbo

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"go.minekube.com/limbo/pkg/edition/java/netmc"
	"go.minekube.com/limbo/pkg/edition/java/proto/packet"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/util/uuid"
)

// Position is a player position in the world.
type Position struct {
	X, Y, Z             float64
	OnGround            bool
	CollideHorizontally bool // Sent by 1.21.2 and newer clients
}

// Player is a client that completed the login.
type Player struct {
	conn     netmc.MinecraftConn
	server   *Server
	log      logr.Logger
	id       uuid.UUID
	username string

	teardown sync.Once

	mu         sync.RWMutex // Protects following fields
	registered bool
	tornDown   bool
	settings   *packet.ClientSettings
	brand      string
	pos        Position
}

func newPlayer(s *Server, conn netmc.MinecraftConn, username string, id uuid.UUID) *Player {
	return &Player{
		conn:     conn,
		server:   s,
		log:      logr.FromContextOrDiscard(conn.Context()).WithValues("player", username),
		id:       id,
		username: username,
	}
}

// ID returns the player's offline mode uuid.
func (p *Player) ID() uuid.UUID { return p.id }

// Username returns the player's name.
func (p *Player) Username() string { return p.username }

// Protocol returns the protocol version of the player's client.
func (p *Player) Protocol() proto.Protocol { return p.conn.Protocol() }

// Disconnect closes the player's connection.
func (p *Player) Disconnect() { _ = p.conn.Close() }

func (p *Player) String() string { return fmt.Sprintf("%s (%s)", p.username, p.id) }

// Position returns the last position the player reported.
func (p *Player) Position() Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

// Settings returns the client settings the player sent, or nil.
func (p *Player) Settings() *packet.ClientSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// ClientBrand returns the client brand the player sent, or empty.
func (p *Player) ClientBrand() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.brand
}

// Online reports whether the player is registered on the server.
func (p *Player) Online() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.registered
}

func (p *Player) setSettings(s *packet.ClientSettings) {
	p.mu.Lock()
	p.settings = s
	p.mu.Unlock()
}

func (p *Player) setBrand(brand string) {
	p.mu.Lock()
	p.brand = brand
	p.mu.Unlock()
}

// move updates the position and returns the previous one.
func (p *Player) move(to Position) (from Position) {
	p.mu.Lock()
	from = p.pos
	p.pos = to
	p.mu.Unlock()
	return from
}

// join registers the player on the server.
// A player that is already online under the same name or id is kept,
// and the connection of the joining player is closed.
// A player that was torn down before it joined is not registered.
func (p *Player) join() bool {
	p.mu.Lock()
	if p.tornDown {
		p.mu.Unlock()
		p.log.V(1).Info("player disconnected before joining")
		return false
	}
	if !p.server.register(p) {
		p.mu.Unlock()
		p.log.Info("player with the same name is already connected, closing connection")
		_ = p.conn.Close()
		return false
	}
	p.registered = true
	p.mu.Unlock()
	p.log.Info("player joined", "protocol", p.Protocol())
	p.server.event.Fire(&PlayerJoinEvent{player: p})
	return true
}

// Teardown unregisters the player from the server.
// Only the first call has an effect, a later join is refused.
func (p *Player) Teardown() error {
	p.teardown.Do(func() {
		p.mu.Lock()
		registered := p.registered
		p.registered = false
		p.tornDown = true
		p.mu.Unlock()
		if !registered || !p.server.unregister(p) {
			return
		}
		p.log.Info("player left")
		p.server.event.Fire(&PlayerLeaveEvent{player: p})
	})
	return nil
}
