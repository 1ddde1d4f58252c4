// Package backend selects and constructs the document store gateway
// from configuration.
package backend

import (
	"context"

	"aurora/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the gateway instance and optional cleanup function
type Result struct {
	Gateway store.Gateway
	Cleanup CleanupFunc
}

// Factory creates gateways based on configuration
type Factory interface {
	CreateGateway(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for gateway creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// Firestore specific
	FirestoreProjectID string
	GoogleCredentials  string
}

// Type represents the kind of document store backing the gateway
type Type string

const (
	MemoryBackend    Type = "memory"
	SQLiteBackend    Type = "sqlite"
	FirestoreBackend Type = "firestore"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, FirestoreBackend:
		return true
	default:
		return false
	}
}
