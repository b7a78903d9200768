package pointcloud

import "errors"

var (
	// ErrEmptyCloud is returned by New for a zero point count.
	ErrEmptyCloud = errors.New("pointcloud: point count must be positive")

	// ErrCountMismatch is returned by Generate when the populator produces a different number of points.
	ErrCountMismatch = errors.New("pointcloud: populator point count does not match the cloud")

	// ErrDestroyed is returned by operations on a destroyed cloud.
	ErrDestroyed = errors.New("pointcloud: cloud destroyed")
)
