// Package sessioncode issues the unguessable codes students use to
// check in to an attendance session.
package sessioncode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength matches the 62^16 code space the system was designed around.
const DefaultLength = 16

// Generate returns a random alphanumeric code of the given length drawn
// from a cryptographically secure source. Codes carry no ordering or
// timestamp information, so they cannot be enumerated from creation order.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw random index: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
