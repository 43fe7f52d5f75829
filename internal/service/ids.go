package service

import (
	"crypto/rand"
	"encoding/hex"
)

// newID returns a random 16-byte hex identifier, used for departments
// imported without an explicit id.
func newID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
