// Package otp generates numeric one-time codes.
package otp

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const DefaultLength = 6

var ErrInvalidLength = errors.New("otp length must be positive")

// Generate returns a uniformly random decimal string of exactly length
// digits. Leading zeros are kept.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	var sb strings.Builder
	sb.Grow(length)

	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}

	return sb.String(), nil
}
