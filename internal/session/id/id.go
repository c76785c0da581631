// Package id provides unique identifier generation for sessions.
package id

import "github.com/google/uuid"

// Generate creates a new random session ID.
// Example: 3f2b8c1e-6a4d-4f7e-9b2a-1c5d8e7f6a90
func Generate() string {
	return uuid.NewString()
}

// Valid reports whether s has the canonical form produced by Generate.
func Valid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
