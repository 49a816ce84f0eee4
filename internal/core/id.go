package core

import "github.com/google/uuid"

// NewID generates a unique identifier for domain entities.
func NewID() string {
	return uuid.New().String()
}
