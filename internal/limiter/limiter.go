// Package limiter enforces the per-fingerprint content-creation cooldown.
package limiter

import (
	"context"
	"time"
)

// Limiter gates post creation to at most once per rolling window per
// fingerprint. Check is called before creation; Record only after the
// post has been committed. The pair is advisory, not atomic: two
// concurrent creates from the same fingerprint can both pass Check in
// the gap before either Records. A single anonymous client racing
// itself is rare and low-stakes, so the relaxation is accepted; if
// stricter enforcement is ever needed, fuse the pair into one
// compare-and-set upsert on last_post_at.
type Limiter interface {
	// Check reports whether the fingerprint may create content now,
	// with a retry-after hint when it may not.
	Check(ctx context.Context, fingerprint string) (bool, time.Duration, error)
	// Record stores the creation timestamp after a successful post.
	Record(ctx context.Context, fingerprint string) error
}
