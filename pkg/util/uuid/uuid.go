// Package uuid wraps github.com/google/uuid with the Minecraft specific helpers limbo needs.
package uuid

import (
	"crypto/md5"
	"encoding/hex"

	guuid "github.com/google/uuid"
)

type UUID guuid.UUID

// Empty UUID, all zeros
var Nil = UUID(guuid.Nil)

// String returns the string form of uuid,
// xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx , or "" if uuid is invalid.
func (i UUID) String() string {
	return guuid.UUID(i).String()
}

// Undashed returns the undashed string form of the uuid.
// Minecraft 1.7.2-1.7.5 clients expect this form in the login success packet.
func (i UUID) Undashed() string {
	return hex.EncodeToString(i[:])
}

// Parse decodes s into a UUID or returns an error.
func Parse(s string) (UUID, error) {
	id, err := guuid.Parse(s)
	return UUID(id), err
}

// FromBytes creates a new UUID from a byte slice. Returns an error if the slice
// does not have a length of 16. The bytes are copied from the slice.
func FromBytes(b []byte) (UUID, error) {
	id, err := guuid.FromBytes(b)
	return UUID(id), err
}

// OfflinePlayerUUID returns the name based UUID the vanilla server
// assigns to a player when running in offline mode.
func OfflinePlayerUUID(username string) UUID {
	const version = 3 // UUID v3
	id := md5.Sum([]byte("OfflinePlayer:" + username))
	id[6] = (id[6] & 0x0f) | uint8((version&0xf)<<4)
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant
	return id
}
