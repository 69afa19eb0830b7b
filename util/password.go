package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Changing them only affects hashes created afterwards
// because the parameters are not encoded in the stored hash.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	saltBytes           = 16

	argonPrefix = "argon2id$"

	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
)

// ErrWeakPassword is returned by ValidatePasswordStrength.
var ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// GenerateSalt returns a random hex-encoded salt.
func GenerateSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPasswordArgon2 derives an argon2id hash of password with salt.
func HashPasswordArgon2(password, salt string) (string, error) {
	if salt == "" {
		return "", errors.New("salt is required")
	}
	key := argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	return argonPrefix + base64.RawStdEncoding.EncodeToString(key), nil
}

// HashPassword generates a fresh salt and returns the hash with it.
func HashPassword(password string) (hash string, salt string, err error) {
	salt, err = GenerateSalt()
	if err != nil {
		return "", "", err
	}
	hash, err = HashPasswordArgon2(password, salt)
	return hash, salt, err
}

// VerifyPassword compares password against a stored hash in constant time.
func VerifyPassword(password, hash, salt string) (bool, error) {
	if !strings.HasPrefix(hash, argonPrefix) {
		return false, errors.New("unsupported password hash format")
	}
	computed, err := HashPasswordArgon2(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}

// ValidatePasswordStrength rejects passwords shorter than MinPasswordLength.
func ValidatePasswordStrength(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
