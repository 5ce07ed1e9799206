// Package capture acquires a live camera feed and snapshots still frames
// from it.
//
// The verification core never talks to a camera. Presentation acquires a
// handle, snapshots a frame per attempt and hands the frame to the
// orchestrator, and releases the handle on every exit path.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrison/verifier/internal/models"
)

// Handle is a live feed owned by presentation.
type Handle interface {
	ID() string
	Device() string
}

// Capturer is the camera contract.
type Capturer interface {
	// Acquire opens the device. Failures are reported as *DeviceError.
	Acquire(ctx context.Context) (Handle, error)
	// Release closes the feed. Releasing an unknown or released handle is a no-op.
	Release(h Handle) error
	// Snapshot returns a still frame, or nil if the handle is not live or
	// the device produced no frame. It never panics.
	Snapshot(h Handle) *models.Frame
}

var (
	// ErrDeviceBusy means another process holds the device.
	ErrDeviceBusy = errors.New("device busy")
	// ErrPermissionDenied means the applicant or OS refused camera access.
	ErrPermissionDenied = errors.New("permission denied")
)

// DeviceError reports a camera permission or hardware failure. It blocks the
// capture step but never touches orchestration state.
type DeviceError struct {
	Device string // Device name, e.g. "sim0"
	Reason string // Human-readable cause
	Err    error  // Underlying error (optional)
}

// Error implements the error interface for DeviceError.
func (e *DeviceError) Error() string {
	msg := fmt.Sprintf("camera %s: %s", e.Device, e.Reason)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is support.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// IsDeviceError reports whether err is or wraps a *DeviceError.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
