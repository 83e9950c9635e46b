package uuid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfflinePlayerUUID(t *testing.T) {
	id := OfflinePlayerUUID("bob")
	id2 := OfflinePlayerUUID("bob")
	require.Equal(t, id, id2)

	id2 = OfflinePlayerUUID("Bob")
	require.NotEqual(t, id, id2)

	assert.Equal(t, byte(0x30), id[6]&0xf0, "version 3")
	assert.Equal(t, byte(0x80), id[8]&0xc0, "RFC 4122 variant")
}

func TestParse(t *testing.T) {
	id := OfflinePlayerUUID("bob")
	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	parsed, err = Parse(id.Undashed())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = FromBytes([]byte{1, 2})
	assert.Error(t, err)
}
