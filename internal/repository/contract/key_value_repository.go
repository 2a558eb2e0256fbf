package contract

import "context"

// IKeyValueRepository is the pluggable persistence surface for small client
// state (last authenticated user, last selected session). Any storage
// backend can be substituted; Clear wipes every key owned by this client.
type IKeyValueRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
}
