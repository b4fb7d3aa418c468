package utils

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// VisitorHash derives an anonymous visitor fingerprint from the client address
// and User-Agent. The key keeps the hash from being reversed by brute force
// over the IPv4 space.
func VisitorHash(key []byte, remoteIP, userAgent string) (string, error) {
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	hasher, err := blake2b.New(16, key)
	if err != nil {
		return "", err
	}
	hasher.Write([]byte(remoteIP))
	hasher.Write([]byte{0})
	hasher.Write([]byte(userAgent))
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
