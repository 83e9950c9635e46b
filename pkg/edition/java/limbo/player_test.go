package limbo

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/limbo/pkg/edition/java/netmc"
	"go.minekube.com/limbo/pkg/edition/java/proxy/confirm"
	"go.minekube.com/limbo/pkg/util/uuid"
)

func newTestPlayer(t *testing.T, s *Server, name string) (*Player, netmc.MinecraftConn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { _ = clientSide.Close() })
	conn, _ := netmc.NewMinecraftConn(context.Background(), serverSide, time.Second, time.Second, -1)
	return newPlayer(s, conn, name, uuid.OfflinePlayerUUID(name)), conn
}

func TestPlayer_TeardownBeforeJoin(t *testing.T) {
	s := newTestServer(t)
	p, _ := newTestPlayer(t, s, "Steve")

	require.NoError(t, p.Teardown())
	assert.False(t, p.join())
	assert.Zero(t, s.PlayerCount())
	assert.False(t, p.Online())
}

func TestPlayer_TeardownAfterJoin(t *testing.T) {
	s := newTestServer(t)
	p, _ := newTestPlayer(t, s, "Steve")

	require.True(t, p.join())
	assert.Same(t, p, s.PlayerByName("steve"))
	require.NoError(t, p.Teardown())
	assert.Zero(t, s.PlayerCount())
	assert.False(t, p.Online())
}

func TestPlayer_DisconnectWhileConfirming(t *testing.T) {
	s := newTestServer(t)
	p, conn := newTestPlayer(t, s, "Steve")

	gate := confirm.New(conn, confirm.WithEventManager(s.Event()))
	gate.SetPlayer(p)
	blocked := make(chan struct{})
	unblock := make(chan struct{})
	gate.ThenRun(func() {
		close(blocked)
		<-unblock
	})
	joined := make(chan bool, 1)
	gate.ThenRun(func() { joined <- p.join() })
	conn.SetSessionHandler(gate)

	go gate.PhaseConfirmed()
	select {
	case <-blocked:
	case <-time.After(waitFor):
		t.Fatal("continuation did not run")
	}

	require.NoError(t, conn.Close())
	close(unblock)

	select {
	case ok := <-joined:
		assert.False(t, ok)
	case <-time.After(waitFor):
		t.Fatal("join did not run")
	}
	assert.Zero(t, s.PlayerCount())
	assert.Nil(t, s.PlayerByName("Steve"))
	assert.False(t, p.Online())
}
