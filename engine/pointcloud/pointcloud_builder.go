package pointcloud

import "github.com/Carmen-Shannon/oxy-luv/common"

// PointCloudBuilderOption is a functional option applied by New.
type PointCloudBuilderOption func(*pointCloud)

// WithTransform sets the initial model transform. The default is the identity.
//
// Parameters:
//   - t: the model transform
//
// Returns:
//   - PointCloudBuilderOption: a function that sets the transform
func WithTransform(t common.Transform) PointCloudBuilderOption {
	return func(pc *pointCloud) {
		pc.transform = t
	}
}

// WithLabel sets the label used for the cloud's buffers and log lines.
func WithLabel(label string) PointCloudBuilderOption {
	return func(pc *pointCloud) {
		pc.label = label
	}
}
