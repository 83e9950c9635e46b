package limbo

import "net"

// ReadyEvent is fired once the server accepts connections.
type ReadyEvent struct {
	addr net.Addr
}

// Addr returns the address the server listens on.
func (r *ReadyEvent) Addr() net.Addr { return r.addr }

// ShutdownEvent is fired after the server stopped and all connections closed.
type ShutdownEvent struct{}

// PlayerJoinEvent is fired once a player confirmed the login
// and was registered on the server.
type PlayerJoinEvent struct {
	player *Player
}

func (e *PlayerJoinEvent) Player() *Player { return e.player }

// PlayerLeaveEvent is fired after a registered player disconnected.
type PlayerLeaveEvent struct {
	player *Player
}

func (e *PlayerLeaveEvent) Player() *Player { return e.player }

// PlayerMoveEvent is fired when a player in the play state reports a new position.
type PlayerMoveEvent struct {
	player   *Player
	from, to Position
}

func (e *PlayerMoveEvent) Player() *Player { return e.player }

// From returns the position before the move.
func (e *PlayerMoveEvent) From() Position { return e.from }

// To returns the reported position.
func (e *PlayerMoveEvent) To() Position { return e.to }
