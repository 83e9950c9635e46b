package codec

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/go-logr/logr"
	"github.com/klauspost/compress/zlib"

	"go.minekube.com/limbo/pkg/edition/java/proto/state"
	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
)

const (
	VanillaMaximumUncompressedSize = 8 * 1024 * 1024 // 8MiB
	UncompressedCap                = VanillaMaximumUncompressedSize
)

// Encoder is a synchronized packet encoder.
type Encoder struct {
	direction proto.Direction
	log       logr.Logger

	mu          sync.Mutex // Protects following fields
	wr          io.Writer  // the underlying writer to write successfully encoded packets to
	registry    *state.ProtocolRegistry
	state       *state.Registry
	compression struct {
		enabled   bool
		threshold int
		writer    *zlib.Writer
	}
}

func NewEncoder(w io.Writer, direction proto.Direction, log logr.Logger) *Encoder {
	return &Encoder{
		log:       log.WithName("encoder"),
		wr:        w,
		direction: direction,
		registry:  state.FromDirection(direction, state.Handshake, version.MinimumVersion.Protocol),
		state:     state.Handshake,
	}
}

// SetCompression enables compression of packets at least threshold bytes large.
// A negative threshold disables compression.
func (e *Encoder) SetCompression(threshold, level int) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compression.threshold = threshold
	e.compression.enabled = threshold >= 0
	if e.compression.enabled {
		e.compression.writer, err = zlib.NewWriterLevel(e.wr, level)
	}
	return
}

// WritePacket encodes the packet with the id registered in the current state
// and writes the frame to the underlying writer.
func (e *Encoder) WritePacket(packet proto.Packet) (n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	packetID, found := e.registry.PacketID(packet)
	if !found {
		return n, fmt.Errorf("packet id for type %T in protocol %s not registered in the %s %s state registry",
			packet, e.registry.Protocol, e.direction, e.state)
	}

	pk := reflect.TypeOf(packet)
	buf, release := encodePool.getBuf(pk)
	defer release()

	_ = util.WriteVarInt(buf, int(packetID))

	ctx := &proto.PacketContext{
		Direction: e.direction,
		Protocol:  e.registry.Protocol,
		PacketID:  packetID,
		Packet:    packet,
	}

	if err = util.RecoverFunc(func() error {
		return packet.Encode(ctx, buf)
	}); err != nil {
		return
	}

	if e.log.V(2).Enabled() {
		e.log.V(2).Info("encoded packet", "context", ctx.String(), "bytes", buf.Len())
	}

	return e.writeBuf(buf, pk) // packet id + data
}

// see https://minecraft.wiki/w/Java_Edition_protocol#Packet_format for details
func (e *Encoder) writeBuf(payload *bytes.Buffer, pk any) (n int, err error) {
	if e.compression.enabled {
		return e.writeCompressed(payload, pk)
	}
	n, err = util.WriteVarIntN(e.wr, payload.Len()) // packet length
	if err != nil {
		return n, err
	}
	m, err := payload.WriteTo(e.wr) // body
	return int(m) + n, err
}

func (e *Encoder) writeCompressed(payload *bytes.Buffer, pk any) (n int, err error) {
	uncompressedSize := payload.Len()
	if uncompressedSize < e.compression.threshold {
		// Under the threshold, there is nothing to do.
		n, err = util.WriteVarIntN(e.wr, uncompressedSize+1) // packet length
		if err != nil {
			return n, err
		}
		n2, err := util.WriteVarIntN(e.wr, 0) // indicate not compressed
		if err != nil {
			return n + n2, err
		}
		n3, err := payload.WriteTo(e.wr) // body
		return n + n2 + int(n3), err
	}

	compressed, release := compressPool.getBuf(pk)
	defer release()

	if err = util.WriteVarInt(compressed, uncompressedSize); err != nil { // data length
		return 0, err
	}
	e.compression.writer.Reset(compressed)
	if _, err = e.compression.writer.Write(payload.Bytes()); err != nil {
		return 0, err
	}
	if err = e.compression.writer.Close(); err != nil {
		return 0, err
	}
	n, err = util.WriteVarIntN(e.wr, compressed.Len()) // packet length
	if err != nil {
		return n, err
	}
	m, err := compressed.WriteTo(e.wr) // body
	return n + int(m), err
}

// Write writes an already encoded payload (packet id + data) as a frame.
// The payload must not already be compressed.
func (e *Encoder) Write(payload []byte) (n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeBuf(bytes.NewBuffer(payload), rawKey)
}

var rawKey = reflect.TypeOf((*[]byte)(nil))

func (e *Encoder) SetProtocol(protocol proto.Protocol) {
	e.mu.Lock()
	e.setProtocol(protocol)
	e.mu.Unlock()
}

func (e *Encoder) setProtocol(protocol proto.Protocol) {
	e.registry = state.FromDirection(e.direction, e.state, protocol)
	if e.registry == nil {
		e.registry = &state.ProtocolRegistry{Protocol: protocol}
	}
}

func (e *Encoder) SetState(state *state.Registry) {
	e.mu.Lock()
	e.state = state
	e.setProtocol(e.registry.Protocol)
	e.mu.Unlock()
}

// Sync locks the encoder while running fn,
// making sure no write calls are run during this call.
func (e *Encoder) Sync(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}
