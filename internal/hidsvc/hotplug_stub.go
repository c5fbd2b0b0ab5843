//go:build !linux

package hidsvc

import (
	"context"

	"go.uber.org/zap"
)

// watchHotplug has no portable implementation; reconnects rely on the
// interval poll. A nil channel blocks forever in the supervisor's select.
func watchHotplug(_ context.Context, _ *zap.Logger) <-chan struct{} {
	return nil
}
