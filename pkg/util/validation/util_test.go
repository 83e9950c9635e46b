package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidHostPort(t *testing.T) {
	for addr, valid := range map[string]bool{
		"0.0.0.0:25565":   true,
		"localhost:0":     true,
		"[::1]:25565":     true,
		"localhost":       false,
		"localhost:port":  false,
		"localhost:65536": false,
	} {
		err := ValidHostPort(addr)
		if valid {
			assert.NoError(t, err, addr)
		} else {
			assert.Error(t, err, addr)
		}
	}
}
