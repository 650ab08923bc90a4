package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/af-corp/containment-gateway/internal/types"
)

// Key hashes the identity of a request together with the route that will
// serve it, so callers routed differently never share a response. Each field
// is length-prefixed so ("ab", "c") and ("a", "bc") never collide.
func Key(route string, t types.RequestType, prompt, context string) string {
	h := sha256.New()
	var n [8]byte
	for _, part := range []string{route, string(t), prompt, context} {
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
