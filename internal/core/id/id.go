// Package id provides the identifiers of ledger rows: products, batches,
// movements, journal entries and accounts.
package id

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// ID is a UUID. New rows get UUIDv7, so ids sort roughly by creation time.
type ID = uuid.UUID

// New returns a UUIDv7, falling back to v4 if the clock source fails.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse validates and converts s.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse panics on malformed input. Tests and constants only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero ID.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether v is the zero ID.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Compare orders ids bytewise, the same order PostgreSQL uses for uuid columns.
func Compare(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}

// Sort sorts ids ascending in place. Row and Redis locks are always taken in
// this order so that multi-product operations cannot deadlock.
func Sort(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return Compare(ids[i], ids[j]) < 0 })
}
