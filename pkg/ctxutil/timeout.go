package ctxutil

import (
	"context"
	"time"
)

// TimeoutContext provides a context canceled after the given duration
// or by Cancel.
func TimeoutContext(ctx context.Context, duration time.Duration) context.Context {
	return cancelContext(context.WithTimeout(ctx, duration))
}
