//go:build linux

package hidsvc

import (
	"context"

	"github.com/jochenvg/go-udev"
	"go.uber.org/zap"
)

// watchHotplug subscribes to udev hidraw add events so the supervisor can
// retry enumeration as soon as a device appears instead of waiting out the
// reconnect interval. The interval poll remains the fallback; a nil channel
// is returned when the monitor cannot be set up.
func watchHotplug(ctx context.Context, log *zap.Logger) <-chan struct{} {
	u := udev.Udev{}
	monitor := u.NewMonitorFromNetlink("udev")
	if monitor == nil {
		log.Warn("udev monitor unavailable, relying on interval polling")
		return nil
	}
	if err := monitor.FilterAddMatchSubsystem("hidraw"); err != nil {
		log.Warn("Failed to filter udev monitor", zap.Error(err))
		return nil
	}
	devCh, err := monitor.DeviceChan(ctx)
	if err != nil {
		log.Warn("Failed to start udev monitor", zap.Error(err))
		return nil
	}
	ch := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case dev, ok := <-devCh:
				if !ok {
					return
				}
				if dev == nil || dev.Action() != "add" {
					continue
				}
				log.Debug("hidraw device added", zap.String("syspath", dev.Syspath()))
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch
}
