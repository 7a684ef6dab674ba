// Package locator produces the short public booking codes handed to
// passengers. Codes are random, not derived from booking ids, so they are not
// guessable. Uniqueness is enforced by the bookings table constraint, not here.
package locator

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// Length of a locator code in characters.
const Length = 6

// Generator returns a fresh candidate locator.
type Generator func() (string, error)

// New returns a 6-character uppercase hex code, e.g. "3FA91C".
func New() (string, error) {
	buf := make([]byte, Length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
