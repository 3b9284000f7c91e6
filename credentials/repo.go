package credentials

import "context"

// Backend is the persistent key/value storage behind a Store. Implementations must be safe
// for concurrent use.
type Backend interface {
	// Load returns the values of whichever keys exist. Missing keys are simply absent from
	// the result.
	Load(ctx context.Context, keys []string) (map[string]string, error)

	// Replace deletes keys and then writes values as one atomic step: readers observe
	// either the old or the new state, never a mix.
	Replace(ctx context.Context, keys []string, values map[string]string) error
}
