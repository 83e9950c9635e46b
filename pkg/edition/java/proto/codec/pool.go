package codec

import (
	"bytes"
	"sync"

	"go.minekube.com/limbo/pkg/internal/bufpool"
)

// payloadPool backs the payloads of decoded packets.
var payloadPool = &bufpool.Pool{MaxSize: 64 * 1024}

// Encoding buffers are pooled per packet type so that buffers of
// large and small packets do not mix.
var encodePool, compressPool poolMap

type poolMap struct {
	pools sync.Map // map[key]*bufpool.Pool
}

func (p *poolMap) getBuf(key any) (*bytes.Buffer, func()) {
	actual, ok := p.pools.Load(key)
	if !ok {
		actual, _ = p.pools.LoadOrStore(key, &bufpool.Pool{})
	}
	pool := actual.(*bufpool.Pool)
	buf := pool.Get()
	return buf, func() { pool.Put(buf) }
}
