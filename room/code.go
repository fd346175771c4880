package room

import (
	"math/rand/v2"
	"strings"
)

const (
	CodeLength   = 4
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewCode returns a random room code of CodeLength uppercase alphanumerics
func NewCode() string {
	var b strings.Builder
	b.Grow(CodeLength)
	for range CodeLength {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// ValidCode reports whether code has the shape of a room code
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := range len(code) {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// ShareLink returns the link that joins the room with code
func ShareLink(origin, code string) string {
	return strings.TrimRight(origin, "/") + "/join/" + code
}
