package id

import (
	"strings"

	"github.com/google/uuid"
)

// New generates a new UUID string.
func New() string {
	return uuid.New().String()
}

// Short generates a compact 8-character identifier, used where a full UUID
// is noise (request IDs in logs).
func Short() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// IsValid reports whether id parses as a UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
