// Package id generates identifiers for catalog entities.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for locally generated ids.
const (
	PrefixSyncRun  = "sync"
	PrefixPlaylist = "pl"
	PrefixGameData = "gd"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "sync-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewGameID returns a fresh game or additional app id.
// Game ids are UUIDs so they stay compatible with ids issued by remote metadata sources.
func NewGameID() string {
	return uuid.NewString()
}

// IsGameID reports whether s is a well-formed game id.
func IsGameID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
