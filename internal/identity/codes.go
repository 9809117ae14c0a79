package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// codeAlphabet excludes ambiguous glyphs (0/O, 1/I/L) so display codes
// survive being read aloud or retyped from another screen.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// MinDisplayCodeLength is the minimum significant length of a display code
// (separators excluded).
const MinDisplayCodeLength = 6

// NewDisplayCode returns a human-readable invite code of the form
// "XXXX-XXXX", drawn from the unambiguous alphabet with crypto/rand.
func NewDisplayCode() (string, error) {
	chars := make([]byte, 8)
	for i := range chars {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate display code: %w", err)
		}
		chars[i] = codeAlphabet[n.Int64()]
	}
	return string(chars[:4]) + "-" + string(chars[4:]), nil
}

// NormalizeDisplayCode uppercases a user-entered code and strips spaces,
// so "abc-123 " and "ABC-123" resolve to the same invite.
func NormalizeDisplayCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsDisplayCodeFormat reports whether code has at least
// MinDisplayCodeLength significant characters.
func IsDisplayCodeFormat(code string) bool {
	code = NormalizeDisplayCode(code)
	significant := strings.ReplaceAll(code, "-", "")
	return len(significant) >= MinDisplayCodeLength
}

// NewPIN returns a 4-digit numeric PIN drawn with crypto/rand.
func NewPIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// IsPINFormat reports whether pin is exactly four ASCII digits.
func IsPINFormat(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NewSecretToken returns a 32-hex-character proof-of-possession secret for
// deep-link redemption.
func NewSecretToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
