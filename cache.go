package steward

import (
	"context"
	"time"
)

// Cache provides caching for authorization check results. Mutations on the
// engine invalidate by subject and by object, so implementations must index
// entries both ways.
type Cache interface {
	// Get returns a cached decision, if available.
	Get(ctx context.Context, subject Subject, relation string, object Object) (allowed bool, ok bool)

	// Set stores a decision with the given time-to-live.
	Set(ctx context.Context, subject Subject, relation string, object Object, allowed bool, ttl time.Duration)

	// InvalidateSubject removes all cached decisions for a subject.
	InvalidateSubject(ctx context.Context, subject Subject)

	// InvalidateObject removes all cached decisions for an object.
	InvalidateObject(ctx context.Context, object Object)
}
