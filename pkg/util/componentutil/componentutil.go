// Package componentutil parses text components from configuration values.
package componentutil

import (
	"errors"
	"strings"

	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec/legacy"

	protoutil "go.minekube.com/limbo/pkg/edition/java/proto/util"
	"go.minekube.com/limbo/pkg/gate/proto"
)

// ParseTextComponent parses s as json if it starts with a curly brace
// and as legacy section sign formatted text otherwise.
func ParseTextComponent(protocol proto.Protocol, s string) (t *component.Text, err error) {
	var c component.Component
	if strings.HasPrefix(s, "{") {
		c, err = protoutil.JsonCodec(protocol).Unmarshal([]byte(s))
	} else {
		c, err = (&legacy.Legacy{}).Unmarshal([]byte(s))
	}
	if err != nil {
		return nil, err
	}
	t, ok := c.(*component.Text)
	if !ok {
		return nil, errors.New("invalid text component")
	}
	return t, nil
}
