package netmc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/go-logr/logr"

	"go.minekube.com/limbo/pkg/edition/java/proto/codec"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/util/errs"
)

// Reader is a packet reader.
type Reader interface {
	// ReadPacket reads the next packet from the connection.
	// If the reader should retry reading the next packet, it returns ErrReadPacketRetry.
	// If the reader returns any other error the connection is broken and should be closed.
	// The caller owns the returned PacketContext.
	ReadPacket() (*proto.PacketContext, error)
	StateChanger
}

// ErrReadPacketRetry is returned by ReadPacket when the reader should retry reading the next packet.
var ErrReadPacketRetry = errors.New("error reading packet, retry")

// NewReader returns a new packet reader.
func NewReader(conn net.Conn, direction proto.Direction, readTimeout time.Duration, log logr.Logger) Reader {
	return &reader{
		c:           conn,
		readTimeout: readTimeout,
		log:         log.WithName("reader"),
		Decoder:     codec.NewDecoder(bufio.NewReader(conn), direction, log),
	}
}

type reader struct {
	log         logr.Logger
	readTimeout time.Duration
	c           net.Conn // underlying connection
	*codec.Decoder
}

func (r *reader) ReadPacket() (*proto.PacketContext, error) {
	// Set read timeout to wait for client to send a packet
	_ = r.c.SetReadDeadline(time.Now().Add(r.readTimeout))

	packetCtx, err := r.Decode()
	if err == nil || errors.Is(err, proto.ErrDecoderLeftBytes) { // Ignore left bytes.
		return packetCtx, nil
	}
	if packetCtx != nil {
		packetCtx.Release()
	}
	if r.handleReadErr(err) {
		r.log.V(1).Info("error reading packet, recovered", "error", err)
		return nil, ErrReadPacketRetry
	}
	r.log.V(1).Info("error reading packet, closing connection", "error", err)
	return nil, err
}

// handles error when read the next packet
func (r *reader) handleReadErr(err error) (recoverable bool) {
	// Immediately retry for EAGAIN
	if errors.Is(err, syscall.EAGAIN) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		r.log.V(1).Info("read timeout")
		return false
	}
	// Immediately break for known unrecoverable errors,
	// silent errors are caused by invalid client data.
	if errs.IsSilent(err) || errs.IsConnClosedErr(err) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.Canceled) || errors.Is(err, io.ErrNoProgress) {
		return false
	}
	r.log.Error(err, "error reading next packet, unrecoverable and closing connection")
	return false
}

func (r *reader) SetCompressionThreshold(threshold int) error {
	r.Decoder.SetCompressionThreshold(threshold)
	return nil
}
