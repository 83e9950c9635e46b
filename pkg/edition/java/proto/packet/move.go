package packet

import (
	"errors"
	"fmt"
	"io"

	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
)

// ErrServerBoundOnly is the panic value of Encode for packets only a client may send.
var ErrServerBoundOnly = errors.New("packet is server bound only and cannot be encoded")

const float64Size = 8

// Movement flag bits sent by 1.21.2+ clients.
const (
	MoveFlagOnGround            = 1 << 0
	MoveFlagCollideHorizontally = 1 << 1
)

// MovePositionOnly is sent by the client when it moved without rotating its head.
//
// Up to 1.7.6 the client also sends its head Y after Y, which is skipped.
// Before 1.21.2 the packet ends with an on ground boolean,
// later versions send a flags byte instead.
type MovePositionOnly struct {
	X, Y, Z             float64
	OnGround            bool
	CollideHorizontally bool // 1.21.2+
}

func (m *MovePositionOnly) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	m.X, err = util.ReadFloat64(rd)
	if err != nil {
		return err
	}
	m.Y, err = util.ReadFloat64(rd)
	if err != nil {
		return err
	}
	if c.Protocol.LowerEqual(version.Minecraft_1_7_6) {
		if err = util.Skip(rd, float64Size); err != nil { // head y
			return err
		}
	}
	m.Z, err = util.ReadFloat64(rd)
	if err != nil {
		return err
	}
	if c.Protocol.Lower(version.Minecraft_1_21_2) {
		m.OnGround, err = util.ReadBool(rd)
		return err
	}
	flags, err := util.ReadUint8(rd)
	if err != nil {
		return err
	}
	m.OnGround = flags&MoveFlagOnGround != 0
	m.CollideHorizontally = flags&MoveFlagCollideHorizontally != 0
	return nil
}

// Encode always panics with ErrServerBoundOnly.
// Trying to send this packet to a client is a bug.
func (m *MovePositionOnly) Encode(*proto.PacketContext, io.Writer) error {
	panic(fmt.Errorf("%T: %w", m, ErrServerBoundOnly))
}

func (m *MovePositionOnly) ExpectedMinLength(*proto.PacketContext) int {
	return float64Size*3 + 1
}

func (m *MovePositionOnly) ExpectedMaxLength(c *proto.PacketContext) int {
	if c.Protocol.LowerEqual(version.Minecraft_1_7_6) {
		return float64Size*4 + 1
	}
	return float64Size*3 + 1
}

func (m *MovePositionOnly) String() string {
	return fmt.Sprintf("MovePositionOnly{x=%v, y=%v, z=%v, onGround=%t, collideHorizontally=%t}",
		m.X, m.Y, m.Z, m.OnGround, m.CollideHorizontally)
}

var (
	_ proto.Packet        = (*MovePositionOnly)(nil)
	_ proto.LengthBounded = (*MovePositionOnly)(nil)
)
