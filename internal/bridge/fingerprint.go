package bridge

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// FingerprintPrefix is how much of a payload is hashed.
const FingerprintPrefix = 4096

// Fingerprint identifies a network payload by endpoint, source URL, payload
// length and a hash of the payload prefix.
func Fingerprint(endpoint, url string, payload []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(payload)))
	h.Write(n[:])

	if len(payload) > FingerprintPrefix {
		payload = payload[:FingerprintPrefix]
	}
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
