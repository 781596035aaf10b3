package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OpaqueTokenLength is the length used for refresh and reset tokens.
const OpaqueTokenLength = 100

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789abcdefghijklmnopqrstuvwxyz"

// RandomToken returns a cryptographically sourced random string of the
// requested length over an alphanumeric alphabet. Outputs carry no
// structure and are looked up by exact match.
func RandomToken(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("invalid token length %d", length)
	}

	max := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}
