package util

import (
	"bytes"

	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec"

	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
)

// JsonCodec returns the appropriate text component codec for the given protocol version.
func JsonCodec(protocol proto.Protocol) codec.Codec {
	if protocol.GreaterEqual(version.Minecraft_1_16) {
		return jsonCodecModern
	}
	return jsonCodecLegacy
}

// Marshal marshals a component into JSON.
func Marshal(protocol proto.Protocol, c component.Component) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := JsonCodec(protocol).Marshal(buf, c)
	return buf.Bytes(), err
}

var (
	// downsamples colors and emits legacy hover events for pre-1.16 clients
	jsonCodecLegacy = &codec.Json{}
	jsonCodecModern = &codec.Json{
		NoDownsampleColor: true,
		NoLegacyHover:     true,
	}
)
