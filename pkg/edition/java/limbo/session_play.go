package limbo

import (
	"go.minekube.com/limbo/pkg/edition/java/netmc"
	"go.minekube.com/limbo/pkg/edition/java/proto/packet"
	"go.minekube.com/limbo/pkg/gate/proto"
)

// playSessionHandler keeps a player alive in the play state
// and tracks the positions the client reports.
type playSessionHandler struct {
	player *Player
	keepAlive
}

func newPlaySessionHandler(p *Player) netmc.SessionHandler {
	return &playSessionHandler{player: p, keepAlive: keepAlive{player: p}}
}

func (h *playSessionHandler) Activated()   { h.keepAlive.start() }
func (h *playSessionHandler) Deactivated() { h.keepAlive.stop() }

func (h *playSessionHandler) Disconnected() {
	h.keepAlive.stop()
	_ = h.player.Teardown()
}

func (h *playSessionHandler) HandlePacket(pc *proto.PacketContext) {
	switch p := pc.Packet.(type) {
	case *packet.MovePositionOnly:
		h.handleMove(p)
	case *packet.KeepAlive:
	default:
		h.player.log.V(2).Info("ignoring packet in play state", "packet", pc.String())
	}
}

func (h *playSessionHandler) handleMove(m *packet.MovePositionOnly) {
	to := Position{
		X: m.X, Y: m.Y, Z: m.Z,
		OnGround:            m.OnGround,
		CollideHorizontally: m.CollideHorizontally,
	}
	from := h.player.move(to)
	h.player.server.event.Fire(&PlayerMoveEvent{player: h.player, from: from, to: to})
}
