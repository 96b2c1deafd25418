// Package id generates and parses entity identifiers. IDs are UUIDv7, so
// sales, movements and sessions sort by creation time.
package id

import (
	"github.com/google/uuid"
)

type ID = uuid.UUID

// New returns a UUIDv7, or a random UUIDv4 if the clock source fails.
func New() ID {
	if v, err := uuid.NewV7(); err == nil {
		return v
	}
	return uuid.New()
}

func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// ParseOptional maps "" to nil.
func ParseOptional(s string) (*ID, error) {
	if s == "" {
		return nil, nil
	}
	v, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func Nil() ID { return uuid.Nil }

func IsNil(v ID) bool { return v == uuid.Nil }
