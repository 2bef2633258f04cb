package contract

import "context"

// KeyValueRepository is the persistent string store behind sessions and settings.
type KeyValueRepository interface {
	// Get reports found=false for an absent key; err is reserved for backend failures.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
