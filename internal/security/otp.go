package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const otpDigits = 6

// GenerateOTPCode returns a uniformly random zero-padded 6-digit code.
func GenerateOTPCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
