package packet

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
)

func moveFrame(t *testing.T, last byte, floats ...float64) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	for _, f := range floats {
		require.NoError(t, util.WriteFloat64(buf, f))
	}
	require.NoError(t, util.WriteUint8(buf, last))
	return buf.Bytes()
}

func decodeMove(t *testing.T, v *proto.Version, data []byte) (*MovePositionOnly, *bytes.Reader, error) {
	t.Helper()
	rd := bytes.NewReader(data)
	m := new(MovePositionOnly)
	err := m.Decode(&proto.PacketContext{Protocol: v.Protocol, Direction: proto.ServerBound}, rd)
	return m, rd, err
}

func TestMovePositionOnly_Decode(t *testing.T) {
	tests := []struct {
		name    string
		version *proto.Version
		data    func(t *testing.T) []byte
		want    MovePositionOnly
	}{
		{
			name:    "flags era both bits",
			version: version.Minecraft_1_21_2,
			data:    func(t *testing.T) []byte { return moveFrame(t, 0b11, 1, 2, 3) },
			want:    MovePositionOnly{X: 1, Y: 2, Z: 3, OnGround: true, CollideHorizontally: true},
		},
		{
			name:    "flags era on ground only",
			version: version.Minecraft_1_21_4,
			data:    func(t *testing.T) []byte { return moveFrame(t, 0b01, 1, 2, 3) },
			want:    MovePositionOnly{X: 1, Y: 2, Z: 3, OnGround: true},
		},
		{
			name:    "flags era collide only",
			version: version.Minecraft_1_21_5,
			data:    func(t *testing.T) []byte { return moveFrame(t, 0b10, 1, 2, 3) },
			want:    MovePositionOnly{X: 1, Y: 2, Z: 3, CollideHorizontally: true},
		},
		{
			name:    "legacy 1.7.2 skips head y",
			version: version.Minecraft_1_7_2,
			data:    func(t *testing.T) []byte { return moveFrame(t, 1, 10.5, 64, 65.62, -20.25) },
			want:    MovePositionOnly{X: 10.5, Y: 64, Z: -20.25, OnGround: true},
		},
		{
			name:    "legacy 1.7.6 skips head y",
			version: version.Minecraft_1_7_6,
			data:    func(t *testing.T) []byte { return moveFrame(t, 0, 10.5, 64, 65.62, -20.25) },
			want:    MovePositionOnly{X: 10.5, Y: 64, Z: -20.25},
		},
		{
			name:    "boolean era first modern version",
			version: version.Minecraft_1_8,
			data:    func(t *testing.T) []byte { return moveFrame(t, 1, 1, 2, 3) },
			want:    MovePositionOnly{X: 1, Y: 2, Z: 3, OnGround: true},
		},
		{
			name:    "boolean era reads a boolean not a bitmask",
			version: version.Minecraft_1_21,
			data:    func(t *testing.T) []byte { return moveFrame(t, 0b10, 1, 2, 3) },
			want:    MovePositionOnly{X: 1, Y: 2, Z: 3, OnGround: true},
		},
		{
			name:    "boolean era 0b11 does not collide",
			version: version.Minecraft_1_20_5,
			data:    func(t *testing.T) []byte { return moveFrame(t, 0b11, 1, 2, 3) },
			want:    MovePositionOnly{X: 1, Y: 2, Z: 3, OnGround: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data(t)
			m, rd, err := decodeMove(t, tt.version, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *m)
			assert.Zero(t, rd.Len(), "all bytes must be consumed")
		})
	}
}

func TestMovePositionOnly_FrameSizes(t *testing.T) {
	assert.Len(t, moveFrame(t, 0, 1, 2, 3), 25)
	assert.Len(t, moveFrame(t, 0, 1, 2, 3, 4), 33)
}

func TestMovePositionOnly_DecodeTruncated(t *testing.T) {
	// A modern sized frame is too short for a legacy client.
	_, _, err := decodeMove(t, version.Minecraft_1_7_2, moveFrame(t, 1, 1, 2, 3))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, _, err = decodeMove(t, version.Minecraft_1_21_2, moveFrame(t, 1, 1, 2)[:17])
	assert.Error(t, err)
}

func TestMovePositionOnly_LengthBounds(t *testing.T) {
	tests := []struct {
		version  *proto.Version
		min, max int
	}{
		{version.Minecraft_1_7_2, 25, 33},
		{version.Minecraft_1_7_6, 25, 33},
		{version.Minecraft_1_8, 25, 25},
		{version.Minecraft_1_21, 25, 25},
		{version.Minecraft_1_21_2, 25, 25},
	}
	m := new(MovePositionOnly)
	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			c := &proto.PacketContext{Protocol: tt.version.Protocol}
			assert.Equal(t, tt.min, m.ExpectedMinLength(c))
			assert.Equal(t, tt.max, m.ExpectedMaxLength(c))
		})
	}
}

func TestMovePositionOnly_EncodePanics(t *testing.T) {
	m := &MovePositionOnly{X: 1}
	assert.PanicsWithError(t, "*packet.MovePositionOnly: "+ErrServerBoundOnly.Error(), func() {
		_ = m.Encode(&proto.PacketContext{Protocol: version.MaximumVersion.Protocol}, io.Discard)
	})
}
