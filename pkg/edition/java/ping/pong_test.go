package ping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/limbo/pkg/edition/java/proto/version"
)

func TestServerPing_JSON(t *testing.T) {
	p := New(version.Minecraft_1_20_2.Protocol, &component.Text{Content: "Hello"}, 1, 10)

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var p2 ServerPing
	require.NoError(t, json.Unmarshal(b, &p2))
	assert.Equal(t, p, &p2)
}

func TestNew_UnsupportedProtocol(t *testing.T) {
	p := New(1, nil, 0, 10)
	assert.Equal(t, version.MaximumVersion.Protocol, p.Version.Protocol)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"max":10`)
	assert.Contains(t, string(b), `"description":{`)
}

func TestServerPing_Favicon(t *testing.T) {
	p := New(version.Minecraft_1_20_2.Protocol, nil, 0, 1)
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "favicon")

	p.Favicon = "data:image/png;base64,AAAA"
	b, err = json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"favicon":"data:image/png;base64,AAAA"`)
}
