package limbo

import (
	"encoding/json"

	"github.com/go-logr/logr"

	"go.minekube.com/limbo/pkg/edition/java/netmc"
	"go.minekube.com/limbo/pkg/edition/java/ping"
	"go.minekube.com/limbo/pkg/edition/java/proto/packet"
	"go.minekube.com/limbo/pkg/gate/proto"
)

type statusSessionHandler struct {
	server *Server
	conn   netmc.MinecraftConn
	log    logr.Logger

	receivedRequest bool

	nopSessionHandler
}

func newStatusSessionHandler(s *Server, conn netmc.MinecraftConn) netmc.SessionHandler {
	return &statusSessionHandler{
		server: s,
		conn:   conn,
		log:    logr.FromContextOrDiscard(conn.Context()).WithName("statusSession"),
	}
}

func (h *statusSessionHandler) HandlePacket(pc *proto.PacketContext) {
	switch p := pc.Packet.(type) {
	case *packet.StatusRequest:
		h.handleStatusRequest()
	case *packet.StatusPing:
		// Answer and close, the client is done.
		_ = netmc.CloseWith(h.conn, p)
	default:
		// Unexpected packet, simply close the connection.
		_ = netmc.CloseUnknown(h.conn)
	}
}

func (h *statusSessionHandler) handleStatusRequest() {
	if h.receivedRequest {
		// Already sent response
		_ = netmc.CloseUnknown(h.conn)
		return
	}
	h.receivedRequest = true

	pong := ping.New(h.conn.Protocol(), h.server.motd,
		h.server.PlayerCount(), h.server.config.Status.ShowMaxPlayers)
	pong.Favicon = h.server.favicon
	b, err := json.Marshal(pong)
	if err != nil {
		h.log.Error(err, "error marshaling status response")
		_ = netmc.CloseUnknown(h.conn)
		return
	}
	_ = h.conn.WritePacket(&packet.StatusResponse{Status: string(b)})
}
