package util

import (
	"encoding/binary"
	"io"
	"math"

	"go.minekube.com/limbo/pkg/util/uuid"
)

func WriteString(writer io.Writer, val string) (err error) {
	return WriteBytes(writer, []byte(val))
}

func WriteVarInt(writer io.Writer, val int) (err error) {
	_, err = WriteVarIntN(writer, val)
	return
}

// WriteVarIntN writes a VarInt and returns the number of bytes written.
func WriteVarIntN(writer io.Writer, val int) (n int, err error) {
	uval := uint32(val)
	for uval >= 0x80 {
		if err = WriteUint8(writer, byte(uval)|0x80); err != nil {
			return
		}
		n++
		uval >>= 7
	}
	if err = WriteUint8(writer, byte(uval)); err != nil {
		return
	}
	return n + 1, nil
}

func WriteBool(writer io.Writer, val bool) (err error) {
	if val {
		return WriteUint8(writer, 1)
	}
	return WriteUint8(writer, 0)
}

// equal to WriteByte
func WriteUint8(writer io.Writer, val uint8) (err error) {
	var protocol [1]byte
	protocol[0] = val
	_, err = writer.Write(protocol[:1])
	return
}

// equal to WriteUint8
func WriteByte(writer io.Writer, val byte) (err error) {
	return WriteUint8(writer, val)
}

func WriteInt16(writer io.Writer, val int16) (err error) {
	var protocol [2]byte
	binary.BigEndian.PutUint16(protocol[:2], uint16(val))
	_, err = writer.Write(protocol[:2])
	return
}

func WriteInt32(writer io.Writer, val int32) (err error) {
	var protocol [4]byte
	binary.BigEndian.PutUint32(protocol[:4], uint32(val))
	_, err = writer.Write(protocol[:4])
	return
}

func WriteInt64(writer io.Writer, val int64) (err error) {
	return WriteUint64(writer, uint64(val))
}

func WriteUint64(writer io.Writer, val uint64) (err error) {
	var protocol [8]byte
	binary.BigEndian.PutUint64(protocol[:8], val)
	_, err = writer.Write(protocol[:8])
	return
}

func WriteFloat64(writer io.Writer, val float64) (err error) {
	return WriteUint64(writer, math.Float64bits(val))
}

func WriteBytes(wr io.Writer, b []byte) (err error) {
	err = WriteVarInt(wr, len(b))
	if err != nil {
		return err
	}
	_, err = wr.Write(b)
	return err
}

// Encoded as an unsigned 128-bit integer
// (or two unsigned 64-bit integers: the most
// significant 64 bits and then the least significant 64 bits)
func WriteUUID(wr io.Writer, id uuid.UUID) error {
	_, err := wr.Write(id[:])
	return err
}
