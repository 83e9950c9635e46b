package limbo

import (
	"github.com/go-logr/logr"
	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/limbo/pkg/edition/java/netmc"
	"go.minekube.com/limbo/pkg/edition/java/proto/packet"
	"go.minekube.com/limbo/pkg/edition/java/proto/state"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/edition/java/proxy/confirm"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/util/uuid"
)

type loginSessionHandler struct {
	server *Server
	conn   netmc.MinecraftConn
	log    logr.Logger

	receivedLogin bool

	nopSessionHandler
}

func newLoginSessionHandler(s *Server, conn netmc.MinecraftConn) netmc.SessionHandler {
	return &loginSessionHandler{
		server: s,
		conn:   conn,
		log:    logr.FromContextOrDiscard(conn.Context()).WithName("loginSession"),
	}
}

func (l *loginSessionHandler) HandlePacket(pc *proto.PacketContext) {
	switch p := pc.Packet.(type) {
	case *packet.ServerLogin:
		l.handleServerLogin(p)
	default:
		_ = netmc.CloseUnknown(l.conn)
	}
}

func (l *loginSessionHandler) handleServerLogin(login *packet.ServerLogin) {
	if l.receivedLogin {
		_ = netmc.CloseUnknown(l.conn)
		return
	}
	l.receivedLogin = true

	if l.server.Closing() {
		_ = netmc.CloseWith(l.conn, &packet.Disconnect{Reason: l.server.shutdownReason})
		return
	}
	if l.server.PlayerByName(login.Username) != nil {
		_ = netmc.CloseWith(l.conn, &packet.Disconnect{Reason: &component.Translation{
			Key: "multiplayer.disconnect.duplicate_login",
		}})
		return
	}

	if !l.enableCompression() {
		return
	}

	player := newPlayer(l.server, l.conn, login.Username, uuid.OfflinePlayerUUID(login.Username))
	l.log.V(1).Info("login succeeded", "player", player.String())

	// Clients before 1.20.2 have no config state and
	// go to play right away without acknowledging the login.
	next := state.Config
	acknowledged := l.conn.Protocol().GreaterEqual(version.Minecraft_1_20_2)
	if !acknowledged {
		next = state.Play
	}

	gate := confirm.New(l.conn,
		confirm.WithNextState(next),
		confirm.WithEventManager(l.server.event),
	)
	gate.SetPlayer(player)
	gate.ThenRun(func() {
		if !player.join() {
			return
		}
		if next == state.Config {
			l.conn.SetSessionHandler(newConfigSessionHandler(player))
		} else {
			l.conn.SetSessionHandler(newPlaySessionHandler(player))
		}
	})
	l.conn.SetSessionHandler(gate)

	if err := l.conn.WritePacket(&packet.ServerLoginSuccess{
		UUID:     player.ID(),
		Username: player.Username(),
	}); err != nil {
		return
	}
	if !acknowledged {
		gate.PhaseConfirmed()
	}
}

// enableCompression sends SetCompression if configured and
// switches the connection over. It reports false if the connection broke.
func (l *loginSessionHandler) enableCompression() bool {
	threshold := l.server.config.Compression.Threshold
	if threshold < 0 || l.conn.Protocol().Lower(version.Minecraft_1_8) {
		return true
	}
	if err := l.conn.WritePacket(&packet.SetCompression{Threshold: threshold}); err != nil {
		return false
	}
	if err := l.conn.SetCompressionThreshold(threshold); err != nil {
		l.log.Error(err, "error enabling compression")
		_ = l.conn.Close()
		return false
	}
	return true
}
