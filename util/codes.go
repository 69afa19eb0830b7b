package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	otpDigits         = 4
	resetTokenBytes   = 32
	prescriptionBytes = 4

	// PrescriptionPrefix starts every prescription identifier.
	PrescriptionPrefix = "RX-"
)

// GenerateOTP returns a zero-padded 4-digit numeric code.
func GenerateOTP() (string, error) {
	max := big.NewInt(10000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// GenerateResetToken returns a random hex token suitable for a reset link.
func GenerateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the sha256 hex digest stored in place of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GeneratePrescriptionID returns "RX-" followed by 8 upper-case hex digits.
func GeneratePrescriptionID() (string, error) {
	b := make([]byte, prescriptionBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return PrescriptionPrefix + strings.ToUpper(hex.EncodeToString(b)), nil
}

// SecureCompare reports whether a and b are equal without leaking timing.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
