package proto

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"sync"

	"go.uber.org/atomic"
)

// ErrDecoderLeftBytes indicates a packet was known and successfully decoded by it's registered decoder,
// but the decoder has not read all the packet's bytes.
//
// This may happen in cases where
//   - the decoder has a bug
//   - the decoder does not handle the case for the new protocol version of the packet
//   - a client has sent valid bytes in the beginning of the packet's data that the packet's
//     decoder could successfully decode, but then the data contains even more bytes (the left bytes)
var ErrDecoderLeftBytes = errors.New("decoder did not read all bytes of packet")

// PacketDecoder decodes packets from an underlying
// source and returns them with additional context.
type PacketDecoder interface {
	Decode() (*PacketContext, error)
}

// PacketWriter can write packets.
type PacketWriter interface {
	WritePacket(Packet) error
}

// Packet represents a packet type in a Minecraft edition.
//
// It is the data layer of a packet and shall support
// multiple protocols up- and/or downwards by testing the
// Protocol contained in the passed PacketContext.
//
// The passed PacketContext is read-only and must not be modified.
type Packet interface {
	// Encode encodes the packet data into the writer.
	Encode(c *PacketContext, wr io.Writer) error
	// Decode expected data from a reader into the packet.
	Decode(c *PacketContext, rd io.Reader) (err error)
}

// LengthBounded is implemented by packets with a fixed data layout per protocol.
// A frame decoder uses the bounds to reject malformed frames before Decode is called.
// The bounds exclude the packet id.
type LengthBounded interface {
	ExpectedMinLength(c *PacketContext) int
	ExpectedMaxLength(c *PacketContext) int
}

// PacketContext carries context information for a
// received packet or packet that is about to be sent.
//
// A received PacketContext may hold pooled payload memory.
// Whoever owns it must call Release exactly once when done;
// a session handler that keeps a received context beyond the
// handling call takes ownership by calling Retain.
type PacketContext struct {
	Direction Direction // The direction the packet is bound to.
	Protocol  Protocol  // The protocol version of the packet.
	PacketID  PacketID  // The ID of the packet, is always set.

	// Is the decoded type that is found by PacketID in the connections
	// current state.ProtocolRegistry. Otherwise, nil, the PacketID is unknown
	// and KnownPacket is false.
	Packet Packet

	// The unencrypted and uncompressed form of packet id + data.
	// It contains the actual received payload (maybe longer than what the Packet's Decode read).
	// Nil after Release.
	Payload []byte // Empty when encoding.

	// BytesRead is the total number of bytes read from the wire for this packet.
	BytesRead int

	retained  atomic.Bool
	released  atomic.Bool
	mu        sync.Mutex
	onRelease []func()
}

// KnownPacket indicated whether the PacketID is known in the connection's current state.ProtocolRegistry.
// If false field Packet is nil.
func (c *PacketContext) KnownPacket() bool {
	return c != nil && c.Packet != nil
}

// Retain marks the context as owned by the caller. The read loop
// that produced it will not release it after the handling call returns.
// It returns c for convenience.
func (c *PacketContext) Retain() *PacketContext {
	c.retained.Store(true)
	return c
}

// ResetRetain clears a previous Retain. The owner calls it before handing
// the context to a new owner, which must Retain it again to keep it.
func (c *PacketContext) ResetRetain() *PacketContext {
	c.retained.Store(false)
	return c
}

// Retained reports whether Retain was called and the context was not yet released.
func (c *PacketContext) Retained() bool {
	return c.retained.Load() && !c.released.Load()
}

// Release frees the resources held by the context.
// Only the first call has an effect.
// It reports whether this call released the context.
func (c *PacketContext) Release() bool {
	if !c.released.CompareAndSwap(false, true) {
		return false
	}
	c.mu.Lock()
	fns := c.onRelease
	c.onRelease = nil
	c.Payload = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return true
}

// Released reports whether Release was called.
func (c *PacketContext) Released() bool {
	return c.released.Load()
}

// OnRelease registers fn to be called once the context is released.
// If the context is already released fn is called immediately.
func (c *PacketContext) OnRelease(fn func()) {
	c.mu.Lock()
	if !c.released.Load() {
		c.onRelease = append(c.onRelease, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn()
}

// PacketID identifies a packet in a protocol version.
// PacketIDs vary by Protocol version and different
// packet types exist in each Minecraft edition.
type PacketID int

// String implements fmt.Stringer.
func (id PacketID) String() string {
	return fmt.Sprintf("%#x", int(id))
}

// String implements fmt.Stringer.
func (c *PacketContext) String() string {
	return fmt.Sprintf("PacketContext:direction=%s,Protocol=%s,"+
		"KnownPacket=%t,PacketID=%s,PacketType=%s,Payloadlen=%d",
		c.Direction, c.Protocol, c.KnownPacket(), c.PacketID,
		reflect.TypeOf(c.Packet), len(c.Payload))
}

// Direction is the direction a packet is bound to.
//   - Receiving a packet from a client is ServerBound.
//   - Receiving a packet from a server is ClientBound.
//   - Sending a packet to a client is ClientBound.
//   - Sending a packet to a server is ServerBound.
type Direction uint8

// Available packet bound directions.
const (
	ClientBound Direction = iota // A packet is bound to a client.
	ServerBound                  // A packet is bound to a server.
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case ServerBound:
		return "ServerBound"
	case ClientBound:
		return "ClientBound"
	}
	return "UnknownBound"
}

// Version is a named protocol version.
type Version struct {
	Protocol          // The protocol number of the version.
	Names    []string // The names in this protocol version (at least one).
}

// FirstName returns the user-friendly name of
// the version this protocol was introduced in.
func (v *Version) FirstName() string {
	if len(v.Names) == 0 {
		return ""
	}
	return v.Names[0]
}

// LastName returns the user-friendly name of
// the last version of this protocol.
func (v *Version) LastName() string {
	if len(v.Names) == 0 {
		return ""
	}
	return v.Names[len(v.Names)-1]
}

// String returns the user-friendly name of this protocol version.
// If this version has multiple names it returns {first}-{last} version.
func (v Version) String() string {
	if len(v.Names) > 1 {
		return fmt.Sprintf("%s-%s", v.FirstName(), v.LastName())
	}
	return v.FirstName()
}

// Protocol is a Minecraft edition agnostic protocol version id specified by Mojang.
type Protocol int

// String implements fmt.Stringer.
func (p Protocol) String() string {
	return strconv.Itoa(int(p))
}

// GreaterEqual is true when this Protocol is
// greater or equal then another Version's Protocol.
func (p Protocol) GreaterEqual(then *Version) bool {
	return p >= then.Protocol
}

// LowerEqual is true when this Protocol is
// lower or equal then another Version's Protocol.
func (p Protocol) LowerEqual(then *Version) bool {
	return p <= then.Protocol
}

// Lower is true when this Protocol is
// lower then another Version's Protocol.
func (p Protocol) Lower(then *Version) bool {
	return p < then.Protocol
}

// Greater is true when this Protocol is
// greater then another Version's Protocol.
func (p Protocol) Greater(then *Version) bool {
	return p > then.Protocol
}

// PacketType is the non-pointer reflect.Type of a packet.
// Use TypeOf helper function to for convenience.
type PacketType reflect.Type

// TypeOf returns a non-pointer type of p.
func TypeOf(p Packet) PacketType {
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
