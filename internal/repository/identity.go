package repository

import "context"

// IdentityRepository maps fingerprints to stable display aliases.
type IdentityRepository interface {
	// GetOrCreateAlias returns the alias for the fingerprint, inserting
	// candidate when none exists yet. The insert-if-absent-else-read must
	// be atomic: under two concurrent first-use calls exactly one alias
	// is created and both callers observe it.
	GetOrCreateAlias(ctx context.Context, fingerprint, candidate string) (string, error)
}
