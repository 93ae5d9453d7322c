// Package metadata stores small string settings in the local console
// database, grouped by namespace.
package metadata

import (
	"context"
)

// Repository is a key/value view over one namespace of the metadata table.
type Repository interface {
	// Get returns ok=false when the key has no row.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	// Clear removes every key of the namespace, leaving other namespaces intact.
	Clear(ctx context.Context) error
}
