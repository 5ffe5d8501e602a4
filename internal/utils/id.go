package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a unique ID for requests
func GenerateID() string {
	return uuid.NewString()
}
