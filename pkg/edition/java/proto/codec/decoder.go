package codec

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/klauspost/compress/zlib"

	"go.minekube.com/limbo/pkg/edition/java/proto/state"
	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/util/errs"
)

// ErrFrameBounds is returned when the data of a length bounded packet
// is shorter or longer than the packet allows for the protocol.
var ErrFrameBounds = errors.New("packet data length out of bounds")

// MaxFrameLength is the largest accepted packet frame.
const MaxFrameLength = 1 << 21

// Decoder is a synchronized packet decoder
// for the Minecraft Java edition.
//
// Payloads of decoded packets are backed by pooled memory that is returned
// to the pool once the PacketContext is released.
type Decoder struct {
	log       logr.Logger
	hexDump   bool // for debugging
	direction proto.Direction

	mu                   sync.Mutex // Protects following field and locked while reading a packet.
	rd                   io.Reader  // The underlying reader.
	registry             *state.ProtocolRegistry
	state                *state.Registry
	compression          bool
	compressionThreshold int
	zrd                  io.ReadCloser
}

var _ proto.PacketDecoder = (*Decoder)(nil)

func NewDecoder(r io.Reader, direction proto.Direction, log logr.Logger) *Decoder {
	return &Decoder{
		rd:        r,
		direction: direction,
		state:     state.Handshake,
		registry:  state.FromDirection(direction, state.Handshake, version.MinimumVersion.Protocol),
		log:       log.WithName("decoder"),
		hexDump:   os.Getenv("HEXDUMP") == "true",
	}
}

func (d *Decoder) SetState(state *state.Registry) {
	d.mu.Lock()
	d.state = state
	d.setProtocol(d.registry.Protocol)
	d.mu.Unlock()
}

func (d *Decoder) SetProtocol(protocol proto.Protocol) {
	d.mu.Lock()
	d.setProtocol(protocol)
	d.mu.Unlock()
}

func (d *Decoder) setProtocol(protocol proto.Protocol) {
	d.registry = state.FromDirection(d.direction, d.state, protocol)
	if d.registry == nil {
		// state has no packets for the protocol, decode everything as unknown
		d.registry = &state.ProtocolRegistry{Protocol: protocol}
	}
}

func (d *Decoder) SetReader(rd io.Reader) {
	d.mu.Lock()
	d.rd = rd
	d.mu.Unlock()
}

func (d *Decoder) SetCompressionThreshold(threshold int) {
	d.mu.Lock()
	d.compressionThreshold = threshold
	d.compression = threshold >= 0
	d.mu.Unlock()
}

// Decode reads the next packet from the underlying reader.
// It blocks other calls to Decode until return.
//
// Frame level errors return a nil PacketContext. Packet level errors
// (decode failure, ErrFrameBounds, proto.ErrDecoderLeftBytes) return the
// PacketContext along with the error. The caller owns any returned
// PacketContext and must release it.
func (d *Decoder) Decode() (ctx *proto.PacketContext, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readPacket()
}

func (d *Decoder) readPacket() (ctx *proto.PacketContext, err error) {
	if d.log.V(2).Enabled() {
		defer func() {
			if ctx != nil && ctx.KnownPacket() {
				d.log.V(2).Info("decoded packet", "context", ctx.String())
				if d.hexDump {
					fmt.Println(hex.Dump(ctx.Payload))
				}
			}
		}()
	}

	var retries int
retry:
	buf, payload, n, err := d.readPayload()
	if err != nil {
		return nil, errs.WrapSilent(err)
	}
	if len(payload) == 0 {
		if buf != nil {
			payloadPool.Put(buf)
		}
		if retries > 10 {
			return nil, errors.New("got too many empty packets")
		}
		retries++
		goto retry
	}
	ctx = &proto.PacketContext{
		Direction: d.direction,
		Protocol:  d.registry.Protocol,
		Payload:   payload,
		BytesRead: n,
	}
	ctx.OnRelease(func() { payloadPool.Put(buf) })
	return ctx, d.decodePayload(ctx)
}

// readPayload reads the next frame and returns the packet id + data.
// The returned buffer backs payload and must go back to payloadPool.
func (d *Decoder) readPayload() (buf *bytes.Buffer, payload []byte, n int, err error) {
	buf, payload, n, err = readVarIntFrame(d.rd)
	if err != nil {
		return nil, nil, n, fmt.Errorf("error reading packet frame: %w", err)
	}
	if len(payload) == 0 || !d.compression {
		return buf, payload, n, nil
	}

	// payload contains: claimedUncompressedSize + (compressed packet id & data)
	rd := bytes.NewReader(payload)
	claimedUncompressedSize, _, err := util.ReadVarIntReturnN(rd)
	if err != nil {
		payloadPool.Put(buf)
		return nil, nil, n, fmt.Errorf("error reading claimed uncompressed size varint: %w", err)
	}
	if claimedUncompressedSize <= 0 {
		if rd.Len() > d.compressionThreshold && d.compressionThreshold > 0 {
			payloadPool.Put(buf)
			return nil, nil, n, fmt.Errorf("actual uncompressed size %d is greater than threshold %d",
				rd.Len(), d.compressionThreshold)
		}
		// not compressed
		return buf, payload[len(payload)-rd.Len():], n, nil
	}
	defer payloadPool.Put(buf)
	decompressed, data, err := d.decompress(claimedUncompressedSize, rd)
	return decompressed, data, n, err
}

func readVarIntFrame(rd io.Reader) (buf *bytes.Buffer, payload []byte, n int, err error) {
	length, n, err := util.ReadVarIntReturnN(rd)
	if err != nil {
		return nil, nil, n, fmt.Errorf("error reading varint: %w", err)
	}
	if length == 0 {
		return // caller skips over empty packet
	}
	if length < 0 || length > MaxFrameLength {
		return nil, nil, n, fmt.Errorf("received invalid packet length %d", length)
	}

	buf = payloadPool.Get()
	buf.Grow(length)
	payload = buf.Bytes()[:length]
	m, err := io.ReadFull(rd, payload)
	if err != nil {
		payloadPool.Put(buf)
		return nil, nil, n + m, fmt.Errorf("error reading payload: %w", err)
	}
	return buf, payload, n + m, nil
}

func (d *Decoder) decompress(claimedUncompressedSize int, rd io.Reader) (buf *bytes.Buffer, decompressed []byte, err error) {
	if claimedUncompressedSize < d.compressionThreshold {
		return nil, nil, errs.NewSilentErr("uncompressed size %d is less than set threshold %d",
			claimedUncompressedSize, d.compressionThreshold)
	}
	if claimedUncompressedSize > UncompressedCap {
		return nil, nil, errs.NewSilentErr("uncompressed size %d exceeds hard threshold of %d",
			claimedUncompressedSize, UncompressedCap)
	}

	if d.zrd == nil {
		d.zrd, err = zlib.NewReader(rd)
		if err != nil {
			return nil, nil, err
		}
	} else if err = d.zrd.(zlib.Resetter).Reset(rd, nil); err != nil {
		return nil, nil, fmt.Errorf("error resetting zlib reader: %w", err)
	}

	buf = payloadPool.Get()
	buf.Grow(claimedUncompressedSize)
	decompressed = buf.Bytes()[:claimedUncompressedSize]
	if _, err = io.ReadFull(d.zrd, decompressed); err != nil {
		payloadPool.Put(buf)
		return nil, nil, fmt.Errorf("error decompressing payload: %w", err)
	}
	return buf, decompressed, d.zrd.Close()
}

// decodePayload reads the packet id and, if the id is registered in the
// current state, the packet's data from ctx.Payload.
//
// As a special case, decide whether you want to ignore the error ErrDecoderLeftBytes,
// that is returned when the payload's data had more bytes than the decoder has read,
// or drop the packet.
func (d *Decoder) decodePayload(ctx *proto.PacketContext) error {
	payload := bytes.NewReader(ctx.Payload)

	packetID, err := util.ReadVarInt(payload)
	if err != nil {
		return errs.WrapSilent(fmt.Errorf("error reading packet id: %w", err))
	}
	ctx.PacketID = proto.PacketID(packetID)
	// Now the payload reader only has the packet's data left.

	ctx.Packet = d.registry.CreatePacket(ctx.PacketID)
	if ctx.Packet == nil {
		// unknown in this state
		return nil
	}

	if bounded, ok := ctx.Packet.(proto.LengthBounded); ok {
		dataLen := payload.Len()
		lo, hi := bounded.ExpectedMinLength(ctx), bounded.ExpectedMaxLength(ctx)
		if dataLen < lo || dataLen > hi {
			return errs.WrapSilent(fmt.Errorf("%w: %T (id: %s, protocol: %s) has %d bytes, expected %d..%d",
				ErrFrameBounds, ctx.Packet, ctx.PacketID, ctx.Protocol, dataLen, lo, hi))
		}
	}

	err = util.RecoverFunc(func() error {
		return ctx.Packet.Decode(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, io.EOF) {
			// payload was too short or packet decoder has a bug
			err = errors.Join(err, io.ErrUnexpectedEOF)
		}
		return errs.NewSilentErr("error decoding packet (type: %T, id: %s, protocol: %s, direction: %s, read: %d, unread: %d): %w",
			ctx.Packet, ctx.PacketID, ctx.Protocol, ctx.Direction, len(ctx.Payload)-payload.Len(), payload.Len(), err)
	}

	if payload.Len() != 0 {
		d.log.V(1).Info("packet decoder did not read all of packet's data",
			"ctx", ctx,
			"decodedBytes", len(ctx.Payload)-payload.Len(),
			"unreadBytes", payload.Len())
		return proto.ErrDecoderLeftBytes
	}
	return nil
}
