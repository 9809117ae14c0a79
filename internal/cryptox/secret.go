// Package cryptox hashes invite credentials (PINs and secret tokens) so
// proof-of-possession material is never stored in the clear.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// HashSecret derives an argon2id hash of secret under a fresh random salt
// and returns it encoded as "salt:hash" in hex.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, keyLen)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifySecret reports whether secret matches an encoded hash produced by
// HashSecret. Comparison is constant-time; any decoding problem counts as
// a mismatch.
func VerifySecret(secret, encoded string) bool {
	salt, want, ok := decode(encoded)
	if !ok {
		return false
	}
	got := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, keyLen)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func decode(encoded string) (salt, key []byte, ok bool) {
	parts := strings.SplitN(encoded, ":", 2)
	if len(parts) != 2 {
		return nil, nil, false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil || len(salt) != saltLen {
		return nil, nil, false
	}
	key, err = hex.DecodeString(parts[1])
	if err != nil || len(key) != keyLen {
		return nil, nil, false
	}
	return salt, key, true
}
