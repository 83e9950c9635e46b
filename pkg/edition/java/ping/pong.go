// Package ping builds the server list entry answered in the status state.
package ping

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
	"go.minekube.com/limbo/pkg/util/componentutil"
	"go.minekube.com/limbo/pkg/util/favicon"
)

// ServerPing is a 1.7 and above server list ping response.
type ServerPing struct {
	Version     Version         `json:"version"`
	Players     *Players        `json:"players,omitempty"`
	Description *component.Text `json:"description"`
	Favicon     favicon.Favicon `json:"favicon,omitempty"`
}

// Make sure ServerPing implements the interfaces at compile time.
var (
	_ json.Marshaler   = (*ServerPing)(nil)
	_ json.Unmarshaler = (*ServerPing)(nil)
)

// New returns the ping answered to a client of the given protocol.
// Unsupported protocols are answered with the latest version so
// the client shows an incompatible version marker.
func New(protocol proto.Protocol, description *component.Text, online, max int) *ServerPing {
	v := Version{Protocol: protocol, Name: "Limbo " + version.SupportedVersionsString}
	if !version.Protocol(protocol).Supported() {
		v.Protocol = version.MaximumVersion.Protocol
	}
	return &ServerPing{
		Version:     v,
		Players:     &Players{Online: online, Max: max},
		Description: description,
	}
}

func (p *ServerPing) MarshalJSON() ([]byte, error) {
	b := new(bytes.Buffer)
	desc := p.Description
	if desc == nil {
		desc = &component.Text{}
	}
	if err := util.JsonCodec(p.Version.Protocol).Marshal(b, desc); err != nil {
		return nil, err
	}

	type Alias ServerPing
	return json.Marshal(&struct {
		Description json.RawMessage `json:"description"`
		*Alias
	}{
		Description: b.Bytes(),
		Alias:       (*Alias)(p),
	})
}

func (p *ServerPing) UnmarshalJSON(data []byte) error {
	type Alias ServerPing
	out := &struct {
		Alias
		Description json.RawMessage `json:"description"` // override description type
	}{}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error decoding json: %w", err)
	}

	if len(out.Description) == 0 || string(out.Description) == "null" {
		out.Alias.Description = &component.Text{}
	} else {
		var err error
		out.Alias.Description, err = componentutil.ParseTextComponent(out.Version.Protocol, string(out.Description))
		if err != nil {
			return fmt.Errorf("error decoding description: %w", err)
		}
	}

	*p = ServerPing(out.Alias)
	return nil
}

type Version struct {
	Protocol proto.Protocol `json:"protocol"`
	Name     string         `json:"name,omitempty"`
}

type Players struct {
	Online int `json:"online"`
	Max    int `json:"max"`
}
