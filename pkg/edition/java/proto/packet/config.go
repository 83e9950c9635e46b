package packet

import (
	"io"

	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
)

type KeepAlive struct {
	RandomID int64
}

func (k *KeepAlive) Encode(c *proto.PacketContext, wr io.Writer) error {
	if c.Protocol.GreaterEqual(version.Minecraft_1_12_2) {
		return util.WriteInt64(wr, k.RandomID)
	} else if c.Protocol.GreaterEqual(version.Minecraft_1_8) {
		return util.WriteVarInt(wr, int(k.RandomID))
	}
	return util.WriteInt32(wr, int32(k.RandomID))
}

func (k *KeepAlive) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	if c.Protocol.GreaterEqual(version.Minecraft_1_12_2) {
		k.RandomID, err = util.ReadInt64(rd)
	} else if c.Protocol.GreaterEqual(version.Minecraft_1_8) {
		var id int
		id, err = util.ReadVarInt(rd)
		k.RandomID = int64(id)
	} else {
		var id int32
		id, err = util.ReadInt32(rd)
		k.RandomID = int64(id)
	}
	return
}

// FinishedUpdate ends the config state.
// The server sends it once it is done configuring
// and the client acknowledges it with the same packet.
type FinishedUpdate struct{}

func (*FinishedUpdate) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (*FinishedUpdate) Decode(*proto.PacketContext, io.Reader) error { return nil }

// ClientSettings is the client's information about its locale and rendering settings.
// Clients send it right after entering the config state.
type ClientSettings struct {
	Locale         string // may be empty
	ViewDistance   byte
	ChatVisibility int
	ChatColors     bool
	SkinParts      byte
	MainHand       int
	TextFiltering  bool // 1.17+
	ClientListing  bool // 1.18+
	ParticleStatus int  // 1.21.2+
}

func (s *ClientSettings) Encode(c *proto.PacketContext, wr io.Writer) error {
	err := util.WriteString(wr, s.Locale)
	if err != nil {
		return err
	}
	if err = util.WriteUint8(wr, s.ViewDistance); err != nil {
		return err
	}
	if err = util.WriteVarInt(wr, s.ChatVisibility); err != nil {
		return err
	}
	if err = util.WriteBool(wr, s.ChatColors); err != nil {
		return err
	}
	if err = util.WriteUint8(wr, s.SkinParts); err != nil {
		return err
	}
	if err = util.WriteVarInt(wr, s.MainHand); err != nil {
		return err
	}
	if err = util.WriteBool(wr, s.TextFiltering); err != nil {
		return err
	}
	if err = util.WriteBool(wr, s.ClientListing); err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_21_2) {
		return util.WriteVarInt(wr, s.ParticleStatus)
	}
	return nil
}

// Decode reads the layout of 1.18+ clients, the only ones that
// send this packet while limbo listens for it (config state).
func (s *ClientSettings) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	s.Locale, err = util.ReadStringMax(rd, 16)
	if err != nil {
		return err
	}
	if s.ViewDistance, err = util.ReadUint8(rd); err != nil {
		return err
	}
	if s.ChatVisibility, err = util.ReadVarInt(rd); err != nil {
		return err
	}
	if s.ChatColors, err = util.ReadBool(rd); err != nil {
		return err
	}
	if s.SkinParts, err = util.ReadUint8(rd); err != nil {
		return err
	}
	if s.MainHand, err = util.ReadVarInt(rd); err != nil {
		return err
	}
	if s.TextFiltering, err = util.ReadBool(rd); err != nil {
		return err
	}
	if s.ClientListing, err = util.ReadBool(rd); err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_21_2) {
		s.ParticleStatus, err = util.ReadVarInt(rd)
	}
	return err
}

// PluginMessage is a custom payload on a namespaced channel.
type PluginMessage struct {
	Channel string
	Data    []byte
}

func (p *PluginMessage) Encode(_ *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteString(wr, p.Channel); err != nil {
		return err
	}
	_, err := wr.Write(p.Data)
	return err
}

func (p *PluginMessage) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	p.Channel, err = util.ReadStringMax(rd, 32767)
	if err != nil {
		return err
	}
	p.Data, err = io.ReadAll(rd)
	return err
}

var (
	_ proto.Packet = (*KeepAlive)(nil)
	_ proto.Packet = (*FinishedUpdate)(nil)
	_ proto.Packet = (*ClientSettings)(nil)
	_ proto.Packet = (*PluginMessage)(nil)
)
