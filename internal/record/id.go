package record

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a collector-compatible identifier (UUIDv4 string).
// Used for both trace and observation identities.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current UTC time, the timezone all wire timestamps use.
func Now() time.Time {
	return time.Now().UTC()
}
