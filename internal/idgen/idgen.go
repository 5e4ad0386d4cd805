// Package idgen generates short, URL-safe event identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// DefaultPrefix is prepended to every event ID.
	DefaultPrefix = "ev-"

	// Alphabet is the character set of the random part of an ID.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultLength is the number of random characters after the prefix.
	DefaultLength = 10
)

// Generator produces IDs of the form Prefix + Length random characters.
// The zero value uses DefaultPrefix and DefaultLength.
type Generator struct {
	Prefix string
	Length int
}

// New returns a fresh ID.
func (g Generator) New() (string, error) {
	prefix, n := g.Prefix, g.Length
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if n <= 0 {
		n = DefaultLength
	}
	id, err := nanoid.Generate(Alphabet, n)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Generate returns a new ID using the default prefix and length.
func Generate() (string, error) {
	return Generator{}.New()
}
