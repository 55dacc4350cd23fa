// Package idgen provides short, URL-safe task ID generation backed by nanoid.
package idgen

import (
	"errors"
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix is prepended to every generated task ID.
var DefaultPrefix = ""

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Length is the number of random characters generated (excluding the prefix).
var Length = 8

// maxAttempts bounds collision retries in Unique.
const maxAttempts = 16

// ErrExhausted is returned by Unique when every attempt collided.
var ErrExhausted = errors.New("idgen: no unique id after retries")

// Generate returns a new ID using the default prefix.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix returns a new ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Unique generates IDs until taken reports false for one.
// A nil taken accepts the first ID.
func Unique(taken func(string) bool) (string, error) {
	for range maxAttempts {
		id, err := Generate()
		if err != nil {
			return "", err
		}
		if taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", ErrExhausted
}
