package util

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
)

const (
	SessionCodeChars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	SessionCodeLength = 6
)

// GenerateSessionCode returns a short human-shareable code.
func GenerateSessionCode() string {
	chars := []byte(SessionCodeChars)
	code := make([]byte, SessionCodeLength)

	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		code[i] = chars[n.Int64()]
	}

	return string(code)
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func MaskCode(code string) string {
	if len(code) <= 2 {
		return "****"
	}
	return code[:2] + "****"
}
