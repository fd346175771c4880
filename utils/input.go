package utils

import (
	"strings"
	"unicode/utf8"
)

const (
	roomCodeLength = 4
	maxUsernameLen = 32
)

// NormalizeUsername trims a display name and reports whether it is usable
func NormalizeUsername(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxUsernameLen {
		return "", false
	}
	return name, true
}

// NormalizeRoomCode uppercases a typed room code and checks its length
func NormalizeRoomCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != roomCodeLength {
		return "", false
	}
	return code, true
}

// NormalizeQuery trims a song query and reports whether anything is left
func NormalizeQuery(query string) (string, bool) {
	query = strings.TrimSpace(query)
	return query, query != ""
}
