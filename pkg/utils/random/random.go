package random

import (
	"crypto/rand"
	"math/big"
)

const roomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomCode returns a short uppercase alphanumeric code suitable for
// sharing a table with friends. Uniqueness is the caller's problem.
func RoomCode(length int) string {
	return pickFromSet(roomCodeChars, length)
}

func pickFromSet(set string, length int) string {
	if length <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(set)))
	runes := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			runes[i] = set[0]
			continue
		}
		runes[i] = set[n.Int64()]
	}
	return string(runes)
}
