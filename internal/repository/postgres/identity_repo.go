package postgres

import "context"

// IdentityRepo implements IdentityRepository using PostgreSQL.
type IdentityRepo struct{ db *DB }

// NewIdentityRepo constructs an identity repository.
func NewIdentityRepo(db *DB) *IdentityRepo { return &IdentityRepo{db: db} }

// GetOrCreateAlias returns the alias for the fingerprint, inserting
// candidate when none exists yet. The no-op DO UPDATE makes RETURNING
// yield the existing row on conflict, so two concurrent first-use calls
// both observe the single winner's alias.
func (r *IdentityRepo) GetOrCreateAlias(ctx context.Context, fingerprint, candidate string) (string, error) {
	const q = `
INSERT INTO anonymous_users (fingerprint, alias)
VALUES ($1, $2)
ON CONFLICT (fingerprint)
DO UPDATE SET fingerprint = EXCLUDED.fingerprint
RETURNING alias`
	var alias string
	if err := r.db.Pool.QueryRow(ctx, q, fingerprint, candidate).Scan(&alias); err != nil {
		return "", err
	}
	return alias, nil
}
