package utils

import "github.com/google/uuid"

// GenerateID returns a random identifier for records whose backend does not
// assign one itself.
func GenerateID() string {
	return uuid.NewString()
}
