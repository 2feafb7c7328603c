package domain

import (
	"fmt"
	"math/rand/v2"
)

// RandomUsername returns prefix followed by an underscore and a random 4-digit number.
func RandomUsername(prefix string) string {
	//nolint:gosec // usernames are not secrets
	return fmt.Sprintf("%s_%d", prefix, 1000+rand.IntN(9000))
}
