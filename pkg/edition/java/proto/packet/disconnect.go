package packet

import (
	"io"

	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/gate/proto"
)

// Disconnect kicks a client in the login state.
type Disconnect struct {
	Reason component.Component
}

func (d *Disconnect) Encode(c *proto.PacketContext, wr io.Writer) error {
	b, err := util.Marshal(c.Protocol, d.Reason)
	if err != nil {
		return err
	}
	return util.WriteBytes(wr, b)
}

func (d *Disconnect) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	s, err := util.ReadStringMax(rd, 262144)
	if err != nil {
		return err
	}
	d.Reason, err = util.JsonCodec(c.Protocol).Unmarshal([]byte(s))
	return err
}

var _ proto.Packet = (*Disconnect)(nil)
