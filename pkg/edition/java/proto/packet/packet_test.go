package packet

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/util/uuid"
)

// Packets whose layout changes between versions and the versions worth checking.
var versionedPackets = []struct {
	packet   proto.Packet
	versions []*proto.Version
}{
	{
		packet:   &Handshake{ProtocolVersion: 767, ServerAddress: "play.example.org", Port: 25565, NextStatus: LoginHandshakeIntent},
		versions: []*proto.Version{version.MinimumVersion},
	},
	{
		packet: &ServerLogin{Username: "Notch", HolderID: uuid.OfflinePlayerUUID("Notch")},
		versions: []*proto.Version{version.Minecraft_1_19_1, version.Minecraft_1_19_3,
			version.Minecraft_1_20_2, version.MaximumVersion},
	},
	{
		packet:   &ServerLogin{Username: "Notch"},
		versions: []*proto.Version{version.Minecraft_1_8, version.Minecraft_1_19},
	},
	{
		packet: &ServerLoginSuccess{UUID: uuid.OfflinePlayerUUID("Notch"), Username: "Notch"},
		versions: []*proto.Version{version.Minecraft_1_7_2, version.Minecraft_1_7_6, version.Minecraft_1_16,
			version.Minecraft_1_19, version.Minecraft_1_20_5, version.Minecraft_1_21_2},
	},
	{
		packet:   &KeepAlive{RandomID: 123456},
		versions: []*proto.Version{version.Minecraft_1_7_2, version.Minecraft_1_8, version.Minecraft_1_12_2},
	},
	{
		packet:   &ClientSettings{Locale: "en_us", ViewDistance: 12, SkinParts: 0x7f, MainHand: 1, ClientListing: true},
		versions: []*proto.Version{version.Minecraft_1_20_2},
	},
	{
		packet:   &ClientSettings{Locale: "de_de", ViewDistance: 2, ChatColors: true, ParticleStatus: 2},
		versions: []*proto.Version{version.Minecraft_1_21_2},
	},
	{
		packet:   &PluginMessage{Channel: "minecraft:brand", Data: []byte("\x07vanilla")},
		versions: []*proto.Version{version.Minecraft_1_20_2},
	},
	{
		packet:   &SetCompression{Threshold: 256},
		versions: []*proto.Version{version.Minecraft_1_8},
	},
	{
		packet:   &LoginAcknowledged{},
		versions: []*proto.Version{version.Minecraft_1_20_2},
	},
	{
		packet:   &FinishedUpdate{},
		versions: []*proto.Version{version.Minecraft_1_20_2},
	},
}

func TestPacketsRoundTrip(t *testing.T) {
	for _, tc := range versionedPackets {
		for _, v := range tc.versions {
			name := reflect.TypeOf(tc.packet).Elem().Name() + "/" + v.String()
			t.Run(name, func(t *testing.T) {
				c := &proto.PacketContext{Protocol: v.Protocol}
				buf := new(bytes.Buffer)
				require.NoError(t, tc.packet.Encode(c, buf))

				decoded := reflect.New(reflect.TypeOf(tc.packet).Elem()).Interface().(proto.Packet)
				rd := bytes.NewReader(buf.Bytes())
				require.NoError(t, decoded.Decode(c, rd))
				assert.Zero(t, rd.Len(), "decoder left bytes")
				assert.Equal(t, tc.packet, decoded)
			})
		}
	}
}

func TestServerLoginEmptyUsername(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.WriteByte(0) // empty string
	err := new(ServerLogin).Decode(&proto.PacketContext{Protocol: version.Minecraft_1_8.Protocol}, buf)
	assert.ErrorIs(t, err, errEmptyUsername)
}

func TestServerLoginSkipsPlayerKey(t *testing.T) {
	c := &proto.PacketContext{Protocol: version.Minecraft_1_19.Protocol}
	buf := new(bytes.Buffer)
	require.NoError(t, (&ServerLogin{Username: "Notch"}).Encode(c, buf))
	raw := buf.Bytes()
	// Replace the "no key" flag with a key of empty byte arrays.
	withKey := append(append([]byte{}, raw[:len(raw)-1]...), 1, 0, 0, 0, 0, 0, 0, 0, 42, 0, 0)

	login := new(ServerLogin)
	rd := bytes.NewReader(withKey)
	require.NoError(t, login.Decode(c, rd))
	assert.Equal(t, "Notch", login.Username)
	assert.Zero(t, rd.Len())
}

func TestDisconnect(t *testing.T) {
	c := &proto.PacketContext{Protocol: version.Minecraft_1_20_2.Protocol}
	buf := new(bytes.Buffer)
	d := &Disconnect{Reason: &component.Text{Content: "bye"}}
	require.NoError(t, d.Encode(c, buf))
	assert.Contains(t, buf.String(), `"bye"`)

	decoded := new(Disconnect)
	require.NoError(t, decoded.Decode(c, buf))
	text, ok := decoded.Reason.(*component.Text)
	require.True(t, ok)
	assert.Equal(t, "bye", text.Content)
}
