package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/harrison/verifier/internal/models"
)

// Simulated camera defaults.
const (
	DefaultDevice = "sim0"
	DefaultWidth  = 640
	DefaultHeight = 480
)

var unsafeDeviceChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SimulatedConfig configures a SimulatedCamera.
type SimulatedConfig struct {
	Device  string // Logical device name
	LockDir string // Directory holding the per-device lock file
	Width   int
	Height  int
	Deny    bool // Refuse access, as if the applicant denied permission
}

// SimulatedCamera produces synthetic JPEG frames. Access to a device is
// exclusive across processes: Acquire takes a file lock named after the
// device and a second Acquire fails with ErrDeviceBusy until Release.
type SimulatedCamera struct {
	cfg      SimulatedConfig
	lockPath string
	clock    func() time.Time

	mu     sync.Mutex
	active map[string]*simHandle
}

type simHandle struct {
	id     string
	device string
	lock   *flock.Flock
	frames int
}

func (h *simHandle) ID() string     { return h.id }
func (h *simHandle) Device() string { return h.device }

// NewSimulatedCamera creates a camera; zero config values select defaults.
func NewSimulatedCamera(cfg SimulatedConfig) *SimulatedCamera {
	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	if cfg.LockDir == "" {
		cfg.LockDir = os.TempDir()
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}

	name := unsafeDeviceChars.ReplaceAllString(cfg.Device, "_")
	return &SimulatedCamera{
		cfg:      cfg,
		lockPath: filepath.Join(cfg.LockDir, fmt.Sprintf("verifier-camera-%s.lock", name)),
		clock:    time.Now,
		active:   make(map[string]*simHandle),
	}
}

// LockPath returns the lock file guarding the device.
func (c *SimulatedCamera) LockPath() string {
	return c.lockPath
}

// Acquire opens the device exclusively.
func (c *SimulatedCamera) Acquire(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DeviceError{Device: c.cfg.Device, Reason: "acquire cancelled", Err: err}
	}
	if c.cfg.Deny {
		return nil, &DeviceError{Device: c.cfg.Device, Reason: "camera access refused", Err: ErrPermissionDenied}
	}

	if err := os.MkdirAll(c.cfg.LockDir, 0755); err != nil {
		return nil, &DeviceError{Device: c.cfg.Device, Reason: "cannot prepare device lock", Err: err}
	}

	lock := flock.New(c.lockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, &DeviceError{Device: c.cfg.Device, Reason: "cannot lock device", Err: err}
	}
	if !acquired {
		return nil, &DeviceError{Device: c.cfg.Device, Reason: "in use by another application", Err: ErrDeviceBusy}
	}

	h := &simHandle{id: uuid.New().String(), device: c.cfg.Device, lock: lock}

	c.mu.Lock()
	c.active[h.id] = h
	c.mu.Unlock()
	return h, nil
}

// Release closes the feed and frees the device lock.
func (c *SimulatedCamera) Release(h Handle) error {
	if h == nil {
		return nil
	}

	c.mu.Lock()
	sh, ok := c.active[h.ID()]
	delete(c.active, h.ID())
	c.mu.Unlock()

	if !ok {
		return nil
	}
	if err := sh.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", c.lockPath, err)
	}
	return nil
}

// Snapshot encodes a synthetic grey-gradient frame. Successive frames from
// the same handle differ so attempts never share image bytes.
func (c *SimulatedCamera) Snapshot(h Handle) *models.Frame {
	if h == nil {
		return nil
	}

	c.mu.Lock()
	sh, ok := c.active[h.ID()]
	if ok {
		sh.frames++
	}
	var seq int
	if ok {
		seq = sh.frames
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}

	img := image.NewGray(image.Rect(0, 0, c.cfg.Width, c.cfg.Height))
	for y := 0; y < c.cfg.Height; y++ {
		for x := 0; x < c.cfg.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y + seq*17) % 256)})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil
	}

	return &models.Frame{
		ID:         uuid.New().String(),
		CapturedAt: c.clock(),
		Width:      c.cfg.Width,
		Height:     c.cfg.Height,
		MIMEType:   "image/jpeg",
		Data:       buf.Bytes(),
	}
}

// Active returns the number of live handles.
func (c *SimulatedCamera) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}
