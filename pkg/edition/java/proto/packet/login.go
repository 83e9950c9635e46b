package packet

import (
	"errors"
	"fmt"
	"io"

	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/util/errs"
	"go.minekube.com/limbo/pkg/util/uuid"
)

type ServerLogin struct {
	Username string
	HolderID uuid.UUID // 1.19.1+, always sent since 1.20.2
}

var errEmptyUsername = errs.NewSilentErr("empty username")

const maxUsernameLen = 16

func (s *ServerLogin) Encode(c *proto.PacketContext, wr io.Writer) error {
	if s.Username == "" {
		return errors.New("username not specified")
	}
	err := util.WriteString(wr, s.Username)
	if err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) && c.Protocol.Lower(version.Minecraft_1_19_3) {
		// limbo never signs chat, so there is no player key
		if err = util.WriteBool(wr, false); err != nil {
			return err
		}
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_2) {
		return util.WriteUUID(wr, s.HolderID)
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		ok := s.HolderID != uuid.Nil
		if err = util.WriteBool(wr, ok); err != nil {
			return err
		}
		if ok {
			return util.WriteUUID(wr, s.HolderID)
		}
	}
	return nil
}

func (s *ServerLogin) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	s.Username, err = util.ReadStringMax(rd, maxUsernameLen)
	if err != nil {
		return err
	}
	if len(s.Username) == 0 {
		return errEmptyUsername
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) && c.Protocol.Lower(version.Minecraft_1_19_3) {
		if err = skipPlayerKey(rd); err != nil {
			return err
		}
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_2) {
		s.HolderID, err = util.ReadUUID(rd)
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19_1) {
		ok, err := util.ReadBool(rd)
		if err != nil {
			return err
		}
		if ok {
			s.HolderID, err = util.ReadUUID(rd)
			return err
		}
	}
	return nil
}

// skipPlayerKey reads past the optional chat signing key of 1.19-1.19.2 clients.
func skipPlayerKey(rd io.Reader) error {
	ok, err := util.ReadBool(rd)
	if err != nil || !ok {
		return err
	}
	if _, err = util.ReadInt64(rd); err != nil { // expiry
		return err
	}
	if _, err = util.ReadBytesLen(rd, 512); err != nil { // public key
		return err
	}
	_, err = util.ReadBytesLen(rd, 4096) // signature
	return err
}

type ServerLoginSuccess struct {
	UUID     uuid.UUID
	Username string
}

func (s *ServerLoginSuccess) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	if s.Username == "" {
		return fmt.Errorf("no username specified")
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		err = util.WriteUUID(wr, s.UUID)
	} else if c.Protocol.GreaterEqual(version.Minecraft_1_7_6) {
		err = util.WriteString(wr, s.UUID.String())
	} else {
		err = util.WriteString(wr, s.UUID.Undashed())
	}
	if err != nil {
		return err
	}
	err = util.WriteString(wr, s.Username)
	if err != nil {
		return err
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) {
		if err = util.WriteVarInt(wr, 0); err != nil { // no profile properties
			return err
		}
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_5) && c.Protocol.Lower(version.Minecraft_1_21_2) {
		return util.WriteBool(wr, true) // strict error handling
	}
	return nil
}

func (s *ServerLoginSuccess) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	if c.Protocol.GreaterEqual(version.Minecraft_1_16) {
		s.UUID, err = util.ReadUUID(rd)
	} else {
		var uuidString string
		if c.Protocol.GreaterEqual(version.Minecraft_1_7_6) {
			uuidString, err = util.ReadStringMax(rd, 36)
		} else {
			uuidString, err = util.ReadStringMax(rd, 32)
		}
		if err != nil {
			return
		}
		s.UUID, err = uuid.Parse(uuidString)
		if err != nil {
			return fmt.Errorf("error parsing uuid: %w", err)
		}
	}
	if err != nil {
		return
	}
	s.Username, err = util.ReadStringMax(rd, maxUsernameLen)
	if err != nil {
		return
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_19) {
		if _, err = util.ReadProperties(rd); err != nil {
			return
		}
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_5) && c.Protocol.Lower(version.Minecraft_1_21_2) {
		_, err = util.ReadBool(rd)
	}
	return
}

type SetCompression struct {
	Threshold int
}

func (s *SetCompression) Encode(_ *proto.PacketContext, wr io.Writer) error {
	return util.WriteVarInt(wr, s.Threshold)
}

func (s *SetCompression) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	s.Threshold, err = util.ReadVarInt(rd)
	return
}

// LoginAcknowledged is sent by 1.20.2+ clients after receiving ServerLoginSuccess.
// The client is in the config state from then on.
type LoginAcknowledged struct{}

func (*LoginAcknowledged) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (*LoginAcknowledged) Decode(*proto.PacketContext, io.Reader) error { return nil }

var (
	_ proto.Packet = (*ServerLogin)(nil)
	_ proto.Packet = (*ServerLoginSuccess)(nil)
	_ proto.Packet = (*SetCompression)(nil)
	_ proto.Packet = (*LoginAcknowledged)(nil)
)
