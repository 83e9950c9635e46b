package limbo

import (
	"bytes"
	"sync"
	"time"

	"go.minekube.com/limbo/pkg/edition/java/netmc"
	"go.minekube.com/limbo/pkg/edition/java/proto/packet"
	"go.minekube.com/limbo/pkg/edition/java/proto/state"
	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/gate/proto"
)

const brandChannel = "minecraft:brand"

// configSessionHandler holds a player in the config state
// until the client acknowledged the end of the configuration.
type configSessionHandler struct {
	player *Player
	keepAlive
}

func newConfigSessionHandler(p *Player) netmc.SessionHandler {
	return &configSessionHandler{player: p, keepAlive: keepAlive{player: p}}
}

func (h *configSessionHandler) Activated() {
	h.keepAlive.start()
	_ = h.player.conn.WritePacket(&packet.FinishedUpdate{})
}

func (h *configSessionHandler) Deactivated() { h.keepAlive.stop() }

func (h *configSessionHandler) Disconnected() {
	h.keepAlive.stop()
	_ = h.player.Teardown()
}

func (h *configSessionHandler) HandlePacket(pc *proto.PacketContext) {
	switch p := pc.Packet.(type) {
	case *packet.ClientSettings:
		h.player.setSettings(p)
	case *packet.PluginMessage:
		if p.Channel == brandChannel {
			h.player.setBrand(readBrand(p.Data))
		}
	case *packet.FinishedUpdate:
		conn := h.player.conn
		conn.SetState(state.Play)
		conn.SetSessionHandler(newPlaySessionHandler(h.player))
	case *packet.KeepAlive:
	default:
		h.player.log.V(2).Info("ignoring packet in config state", "packet", pc.String())
	}
}

// readBrand decodes the brand plugin message, a single string.
// A malformed brand is kept as is.
func readBrand(data []byte) string {
	brand, err := util.ReadStringMax(bytes.NewReader(data), maxBrandLen)
	if err != nil {
		return string(data)
	}
	return brand
}

const maxBrandLen = 128

// keepAlive periodically sends keep alive packets to a player.
type keepAlive struct {
	player *Player

	mu     sync.Mutex // Protects following fields
	ticker *time.Ticker
	done   chan struct{}
}

func (k *keepAlive) start() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.done != nil {
		return
	}
	interval := k.player.server.config.KeepAliveDuration()
	if interval <= 0 {
		return
	}
	k.ticker = time.NewTicker(interval)
	k.done = make(chan struct{})
	go func(ticker *time.Ticker, done <-chan struct{}) {
		for {
			select {
			case <-done:
				return
			case <-k.player.conn.Context().Done():
				return
			case <-ticker.C:
				if err := netmc.SendKeepAlive(k.player.conn); err != nil {
					return
				}
			}
		}
	}(k.ticker, k.done)
}

func (k *keepAlive) stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.done == nil {
		return
	}
	k.ticker.Stop()
	close(k.done)
	k.done = nil
}
