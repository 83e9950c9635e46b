package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/limbo/pkg/gate/proto"
)

func TestPacketQueue_FIFO(t *testing.T) {
	q := NewPacketQueue()
	for id := range 3 {
		q.Push(&proto.PacketContext{PacketID: proto.PacketID(id)})
	}
	require.Equal(t, 3, q.Len())

	for id := range 3 {
		pc, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, proto.PacketID(id), pc.PacketID)
		assert.True(t, pc.Retained())
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestPacketQueue_ReleaseAll(t *testing.T) {
	q := NewPacketQueue()
	a, b := &proto.PacketContext{}, &proto.PacketContext{}
	q.Push(a)
	q.Push(b)
	b.Release() // released elsewhere, must not count twice

	assert.Equal(t, 1, q.ReleaseAll())
	assert.Zero(t, q.Len())
	assert.True(t, a.Released())
	assert.Zero(t, q.ReleaseAll())
}
