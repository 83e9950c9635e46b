package util

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"go.minekube.com/limbo/pkg/util/uuid"
)

var errVarIntTooBig = errors.New("decode: VarInt is too big")

func ReadString(rd io.Reader) (string, error) {
	return ReadStringMax(rd, bufio.MaxScanTokenSize)
}

func ReadStringMax(rd io.Reader, max int) (string, error) {
	length, err := ReadVarInt(rd)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", errors.New("length of string must not be negative")
	}
	if length > max*4 { // *4 since UTF8 character has up to 4 bytes
		return "", fmt.Errorf("bad string length (got %d, max. %d)", length, max)
	}
	str := make([]byte, length)
	if _, err = io.ReadFull(rd, str); err != nil {
		return "", err
	}
	return string(str), nil
}

func ReadBytesLen(rd io.Reader, maxLength int) (bytes []byte, err error) {
	length, err := ReadVarInt(rd)
	if err != nil {
		return
	}
	if length < 0 {
		err = fmt.Errorf("decode, bytes/string length is < 0: %d", length)
		return
	}
	if length > maxLength {
		err = fmt.Errorf("decode, bytes/string length %d is above given maximum: %d", length, maxLength)
		return
	}
	bytes = make([]byte, length)
	_, err = io.ReadFull(rd, bytes)
	return
}

func ReadVarInt(r io.Reader) (result int, err error) {
	result, _, err = ReadVarIntReturnN(r)
	return
}

// ReadVarIntReturnN reads a VarInt and returns the number of bytes it occupied.
func ReadVarIntReturnN(r io.Reader) (result, n int, err error) {
	var (
		b       byte
		uresult uint32
	)
	for {
		b, err = ReadUint8(r)
		if err != nil {
			return 0, n, err
		}
		uresult |= uint32(b&0x7F) << uint32(n*7)
		n++
		if n > 5 {
			return 0, n, errVarIntTooBig
		}
		if b&0x80 == 0 {
			break
		}
	}
	return int(int32(uresult)), n, nil
}

func ReadBool(reader io.Reader) (val bool, err error) {
	uval, err := ReadUint8(reader)
	if err != nil {
		return
	}
	val = uval != 0
	return
}

func ReadUint8(reader io.Reader) (val uint8, err error) {
	if br, ok := reader.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var protocol [1]byte
	_, err = io.ReadFull(reader, protocol[:1])
	val = protocol[0]
	return
}

func ReadByte(reader io.Reader) (val byte, err error) {
	return ReadUint8(reader)
}

func ReadInt16(reader io.Reader) (val int16, err error) {
	var protocol [2]byte
	_, err = io.ReadFull(reader, protocol[:2])
	val = int16(binary.BigEndian.Uint16(protocol[:2]))
	return
}

func ReadUint16(reader io.Reader) (val uint16, err error) {
	var protocol [2]byte
	_, err = io.ReadFull(reader, protocol[:2])
	val = binary.BigEndian.Uint16(protocol[:2])
	return
}

func ReadInt32(reader io.Reader) (val int32, err error) {
	var protocol [4]byte
	_, err = io.ReadFull(reader, protocol[:4])
	val = int32(binary.BigEndian.Uint32(protocol[:4]))
	return
}

func ReadInt64(reader io.Reader) (val int64, err error) {
	uval, err := ReadUint64(reader)
	val = int64(uval)
	return
}

func ReadUint64(reader io.Reader) (val uint64, err error) {
	var protocol [8]byte
	_, err = io.ReadFull(reader, protocol[:8])
	val = binary.BigEndian.Uint64(protocol[:8])
	return
}

func ReadFloat64(reader io.Reader) (val float64, err error) {
	ival, err := ReadUint64(reader)
	val = math.Float64frombits(ival)
	return
}

// Skip discards n bytes from the reader.
func Skip(rd io.Reader, n int64) error {
	m, err := io.CopyN(io.Discard, rd, n)
	if err == io.EOF && m < n {
		return io.ErrUnexpectedEOF
	}
	return err
}

func ReadUUID(rd io.Reader) (id uuid.UUID, err error) {
	b := make([]byte, 16)
	_, err = io.ReadFull(rd, b)
	if err != nil {
		return
	}
	return uuid.FromBytes(b)
}

// ReadProperties skips over a game profile property array.
// limbo never forwards profile properties, it only has to get past them.
func ReadProperties(rd io.Reader) (n int, err error) {
	n, err = ReadVarInt(rd)
	if err != nil {
		return
	}
	for i := 0; i < n; i++ {
		if _, err = ReadString(rd); err != nil { // name
			return
		}
		if _, err = ReadString(rd); err != nil { // value
			return
		}
		signed, err := ReadBool(rd)
		if err != nil {
			return 0, err
		}
		if signed {
			if _, err = ReadString(rd); err != nil {
				return 0, err
			}
		}
	}
	return
}
