package core

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/google/uuid"
)

// NewID generates a unique identifier for turns, runs and memory entries.
func NewID() string { return uuid.NewString() }

// NewSessionID generates a compact session identifier with a readable prefix,
// e.g. "analyst_Vq7Mk2xPl3Za". Falls back to a UUID if the entropy source
// fails.
func NewSessionID(prefix string) string {
	id, err := gonanoid.New(12)
	if err != nil {
		id = uuid.NewString()
	}
	if prefix == "" {
		return id
	}
	return fmt.Sprintf("%s_%s", prefix, id)
}
