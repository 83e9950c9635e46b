package netmc

import (
	"bufio"
	"net"
	"time"

	"github.com/go-logr/logr"

	"go.minekube.com/limbo/pkg/edition/java/proto/codec"
	"go.minekube.com/limbo/pkg/gate/proto"
)

// Writer encodes packets into a buffer that is sent on Flush.
type Writer interface {
	// WritePacket encodes packet into the write buffer.
	WritePacket(packet proto.Packet) (n int, err error)
	// Write encodes an uncompressed payload, the packet id VarInt
	// followed by the packet data, into the write buffer.
	Write(payload []byte) (n int, err error)
	// Flush sends the buffered packets.
	Flush() (err error)

	StateChanger
}

// NewWriter returns a Writer for conn. Each flush must complete within writeTimeout.
func NewWriter(conn net.Conn, direction proto.Direction, writeTimeout time.Duration, compressionLevel int, log logr.Logger) Writer {
	buf := bufio.NewWriter(conn)
	return &writer{
		conn:    conn,
		buf:     buf,
		timeout: writeTimeout,
		level:   compressionLevel,
		Encoder: codec.NewEncoder(buf, direction, log),
	}
}

type writer struct {
	conn    net.Conn
	buf     *bufio.Writer
	timeout time.Duration
	level   int // zlib level used once compression is enabled
	*codec.Encoder
}

func (w *writer) Flush() error {
	// The deadline also reports a closed connection early.
	if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
		return err
	}
	// Flushing concurrently with an encode could short write.
	return w.Encoder.Sync(func() error {
		if w.buf.Buffered() == 0 {
			return nil
		}
		return w.buf.Flush()
	})
}

func (w *writer) SetCompressionThreshold(threshold int) error {
	return w.Encoder.SetCompression(threshold, w.level)
}
