package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// saltLength is the HMAC key size in bytes. The digest is the same size.
const saltLength = 32

// HashPassword derives a keyed hash for the password with a fresh random
// salt. The salt doubles as the HMAC-SHA256 key, so two calls on the
// same password produce different (hash, salt) pairs.
func HashPassword(password string) (hash, salt []byte, err error) {
	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}

	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(password))
	return mac.Sum(nil), salt, nil
}

// VerifyPassword recomputes the keyed hash using the stored salt and
// compares it against the stored hash in constant time. A wrong password
// is reported as false, never as an error.
func VerifyPassword(password string, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(password))
	return hmac.Equal(mac.Sum(nil), hash)
}
