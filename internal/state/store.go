package state

import "context"

// Store is the durable key-value state behind cycle snapshots and the
// operator offset. Get reports presence separately so an absent key is not
// an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
