// Package store defines the aggregate persistence interface. The tuple
// store holds relationship facts; the check log holds the decision audit
// trail. The composite Store composes both so a single backend (postgres,
// sqlite, mongo, memory) implements everything.
package store

import (
	"context"

	"github.com/xraph/steward/checklog"
	"github.com/xraph/steward/tuple"
)

// Store is the aggregate persistence interface.
type Store interface {
	tuple.Store
	checklog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
