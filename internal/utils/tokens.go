package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// NewSessionToken returns nBytes of crypto randomness as URL-safe base64
// without padding.
func NewSessionToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32 // 256 bits by default
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewNumericCode returns length independent random decimal digits, so
// leading zeros are as likely as any other digit.
func NewNumericCode(length int) (string, error) {
	ten := big.NewInt(10)
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code digit: %w", err)
		}
		out[i] = byte('0' + n.Int64())
	}
	return string(out), nil
}
