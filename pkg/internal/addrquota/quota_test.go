package addrquota

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tcp(ip string) net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(ip), Port: 1234}
}

func TestQuota_BlocksAfterBurst(t *testing.T) {
	q := New(0.001, 3, 10)
	addr := tcp("10.0.0.5")
	for i := range 3 {
		assert.False(t, q.Blocked(addr), "event %d", i)
	}
	assert.True(t, q.Blocked(addr))
}

func TestQuota_SharesIPBlock(t *testing.T) {
	q := New(0.001, 1, 10)
	assert.False(t, q.Blocked(tcp("10.0.0.5")))
	assert.True(t, q.Blocked(tcp("10.0.0.6")))
	assert.False(t, q.Blocked(tcp("10.0.1.5")))
	assert.Equal(t, 2, q.Len())
}

func TestQuota_DoesNotModifyAddr(t *testing.T) {
	q := New(1, 1, 10)
	addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 1}
	q.Blocked(addr)
	assert.Equal(t, "10.0.0.5", addr.IP.String())
}

func TestQuota_EvictsOldEntries(t *testing.T) {
	q := New(0.001, 1, 1)
	assert.False(t, q.Blocked(tcp("10.0.0.5")))
	assert.False(t, q.Blocked(tcp("10.0.1.5")))
	// the first block was evicted and gets a fresh bucket
	assert.False(t, q.Blocked(tcp("10.0.0.5")))
	assert.Equal(t, 1, q.Len())
}

func TestQuota_NilAndNonIP(t *testing.T) {
	var q *Quota
	assert.False(t, q.Blocked(tcp("10.0.0.5")))

	q = New(0.001, 1, 10)
	pipe, _ := net.Pipe()
	defer pipe.Close()
	assert.False(t, q.Blocked(pipe.RemoteAddr()))
	assert.False(t, q.Blocked(pipe.RemoteAddr()))
	assert.False(t, q.Blocked(nil))
}
