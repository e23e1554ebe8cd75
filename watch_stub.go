//go:build !linux && !darwin

package svclaunch

import (
	"context"
	"errors"
)

// Watch is not supported on this platform
func (l *Launcher) Watch(ctx context.Context) (*Report, error) {
	return nil, &OpError{Op: OpWatch, Path: l.Root, Err: errors.New("watch not supported on this platform")}
}
