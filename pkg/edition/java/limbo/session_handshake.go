package limbo

import (
	"github.com/go-logr/logr"
	"go.minekube.com/common/minecraft/color"
	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/limbo/pkg/edition/java/netmc"
	"go.minekube.com/limbo/pkg/edition/java/proto/packet"
	"go.minekube.com/limbo/pkg/edition/java/proto/state"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
)

type handshakeSessionHandler struct {
	server *Server
	conn   netmc.MinecraftConn
	log    logr.Logger

	nopSessionHandler
}

// newHandshakeSessionHandler returns a handler used for clients in the handshake state.
func newHandshakeSessionHandler(s *Server, conn netmc.MinecraftConn) netmc.SessionHandler {
	return &handshakeSessionHandler{
		server: s,
		conn:   conn,
		log:    logr.FromContextOrDiscard(conn.Context()).WithName("handshakeSession"),
	}
}

func (h *handshakeSessionHandler) HandlePacket(pc *proto.PacketContext) {
	handshake, ok := pc.Packet.(*packet.Handshake)
	if !ok {
		// Unknown packet received.
		// Better to close the connection.
		_ = netmc.CloseUnknown(h.conn)
		return
	}
	h.handleHandshake(handshake)
}

func (h *handshakeSessionHandler) handleHandshake(handshake *packet.Handshake) {
	// The client sends the next wanted state in the Handshake packet.
	nextState := stateForIntent(handshake.NextStatus)
	if nextState == nil {
		h.log.V(1).Info("client provided invalid next status state, closing connection",
			"nextStatus", handshake.NextStatus)
		_ = netmc.CloseUnknown(h.conn)
		return
	}

	// Update connection to requested state and protocol sent in the packet.
	h.conn.SetProtocol(proto.Protocol(handshake.ProtocolVersion))
	h.conn.SetState(nextState)

	switch nextState {
	case state.Status:
		// Wait for the StatusRequest packet.
		h.conn.SetSessionHandler(newStatusSessionHandler(h.server, h.conn))
	case state.Login:
		h.handleLogin(handshake)
	}
}

func (h *handshakeSessionHandler) handleLogin(p *packet.Handshake) {
	// Check for supported client version.
	if !version.Protocol(p.ProtocolVersion).Supported() {
		_ = netmc.CloseWith(h.conn, &packet.Disconnect{Reason: &component.Translation{
			Key: "multiplayer.disconnect.outdated_client",
			With: []component.Component{
				&component.Text{Content: version.SupportedVersionsString},
			},
		}})
		return
	}

	// Client IP-block rate limiter preventing too fast logins.
	if h.server.loginsQuota.Blocked(h.conn.RemoteAddr()) {
		_ = netmc.CloseWith(h.conn, &packet.Disconnect{Reason: &component.Text{
			Content: "You are logging in too fast, please calm down and retry.",
			S:       component.Style{Color: color.Red},
		}})
		return
	}

	h.conn.SetSessionHandler(newLoginSessionHandler(h.server, h.conn))
}

// stateForIntent returns the state a client asks for in the handshake or nil.
// Transferred clients log in like any other.
func stateForIntent(intent int) *state.Registry {
	switch intent {
	case packet.StatusHandshakeIntent:
		return state.Status
	case packet.LoginHandshakeIntent, packet.TransferHandshakeIntent:
		return state.Login
	}
	return nil
}

// A no-operation session handler can be wrapped to
// implement the netmc.SessionHandler interface.
type nopSessionHandler struct{}

var _ netmc.SessionHandler = (*nopSessionHandler)(nil)

func (nopSessionHandler) HandlePacket(*proto.PacketContext) {}
func (nopSessionHandler) Disconnected()                     {}
func (nopSessionHandler) Deactivated()                      {}
func (nopSessionHandler) Activated()                        {}
