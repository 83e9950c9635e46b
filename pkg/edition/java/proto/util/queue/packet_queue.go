package queue

import (
	"github.com/gammazero/deque"

	"go.minekube.com/limbo/pkg/gate/proto"
)

// PacketQueue holds received packets in arrival order until their owner
// replays or drops them. It takes ownership of every pushed PacketContext:
// a context leaves the queue either through Pop, handing ownership to the
// caller, or through ReleaseAll.
//
// PacketQueue is not safe for concurrent use; its owner guards it.
type PacketQueue struct {
	queue deque.Deque[*proto.PacketContext]
}

// NewPacketQueue returns an empty queue.
func NewPacketQueue() *PacketQueue {
	return &PacketQueue{}
}

// Push retains pc and appends it to the queue.
func (q *PacketQueue) Push(pc *proto.PacketContext) {
	q.queue.PushBack(pc.Retain())
}

// Pop removes the oldest packet. The caller owns the returned context.
func (q *PacketQueue) Pop() (*proto.PacketContext, bool) {
	if q.queue.Len() == 0 {
		return nil, false
	}
	return q.queue.PopFront(), true
}

// Len returns the number of queued packets.
func (q *PacketQueue) Len() int {
	return q.queue.Len()
}

// ReleaseAll releases and removes every queued packet and returns how many were released.
func (q *PacketQueue) ReleaseAll() (released int) {
	for q.queue.Len() != 0 {
		if q.queue.PopFront().Release() {
			released++
		}
	}
	return released
}
