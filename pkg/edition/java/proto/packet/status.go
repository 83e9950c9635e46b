package packet

import (
	"io"

	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/gate/proto"
)

type (
	// StatusRequest asks for the server list entry.
	StatusRequest struct{}
	// StatusResponse carries the server list entry as json.
	StatusResponse struct {
		Status string
	}
	// StatusPing is echoed back so the client can measure latency.
	StatusPing struct {
		RandomID int64
	}
)

func (s *StatusPing) Encode(_ *proto.PacketContext, wr io.Writer) error {
	return util.WriteInt64(wr, s.RandomID)
}

func (s *StatusPing) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	s.RandomID, err = util.ReadInt64(rd)
	return
}

func (s *StatusResponse) Encode(_ *proto.PacketContext, wr io.Writer) error {
	return util.WriteString(wr, s.Status)
}

func (s *StatusResponse) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	s.Status, err = util.ReadString(rd)
	return
}

func (*StatusRequest) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (*StatusRequest) Decode(*proto.PacketContext, io.Reader) error { return nil }

// StatusPing has a fixed size.
func (*StatusPing) ExpectedMinLength(*proto.PacketContext) int { return 8 }
func (*StatusPing) ExpectedMaxLength(*proto.PacketContext) int { return 8 }

var (
	_ proto.Packet        = (*StatusRequest)(nil)
	_ proto.Packet        = (*StatusResponse)(nil)
	_ proto.Packet        = (*StatusPing)(nil)
	_ proto.LengthBounded = (*StatusPing)(nil)
)
