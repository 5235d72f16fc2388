package ingest

import "context"

type suppressAsyncKey struct{}

// SuppressAsync marks ctx so that code running under it performs its work inline
// instead of handing it to new goroutines. The worker flushes under this scope so
// a cycle never fans out and its measured duration covers all of its work.
func SuppressAsync(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressAsyncKey{}, true)
}

// AsyncAllowed reports whether ctx permits starting background work.
func AsyncAllowed(ctx context.Context) bool {
	suppressed, _ := ctx.Value(suppressAsyncKey{}).(bool)
	return !suppressed
}
