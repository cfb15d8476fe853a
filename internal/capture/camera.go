// Package capture provides camera acquisition using GoCV (OpenCV).
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Acquisition errors. Each is recoverable by retrying.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device found")
	ErrDevice           = errors.New("camera device error")
)

// Facing is the preferred camera direction.
type Facing string

const (
	// FacingUser is the camera looking at the user.
	FacingUser Facing = "user"
	// FacingEnvironment is the camera looking away from the user, the usual choice for feet.
	FacingEnvironment Facing = "environment"
)

// Config selects a device by facing preference.
type Config struct {
	Facing            Facing
	UserDevice        int
	EnvironmentDevice int
	Width             int
	Height            int
}

// DeviceID returns the device for the configured facing.
func (c Config) DeviceID() int {
	if c.Facing == FacingUser {
		return c.UserDevice
	}
	return c.EnvironmentDevice
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// openOp is an Open call in flight for one camera.
type openOp struct {
	done    chan struct{}
	err     error
	waiters int
}

var (
	pendingMu sync.Mutex
	pending   = make(map[Camera]*openOp)
)

// Acquire opens cam, giving up when ctx is done.
// An Open abandoned by a cancelled caller keeps running: a later Acquire of the same
// camera joins it and takes over the result, otherwise the camera is closed again
// once it finishes opening.
func Acquire(ctx context.Context, cam Camera) error {
	pendingMu.Lock()
	op, ok := pending[cam]
	if !ok {
		op = &openOp{done: make(chan struct{})}
		pending[cam] = op
		go finishOpen(cam, op)
	}
	op.waiters++
	pendingMu.Unlock()

	select {
	case <-op.done:
		return op.err
	case <-ctx.Done():
	}

	pendingMu.Lock()
	defer pendingMu.Unlock()

	// The open may have completed while ctx was being cancelled.
	select {
	case <-op.done:
		return op.err
	default:
	}
	op.waiters--
	return ctx.Err()
}

func finishOpen(cam Camera, op *openOp) {
	err := cam.Open()

	pendingMu.Lock()
	defer pendingMu.Unlock()

	op.err = err
	close(op.done)
	delete(pending, cam)
	if err == nil && op.waiters == 0 {
		cam.Close()
	}
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID int
	width    int
	height   int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
}

// NewCamera creates a new Camera with the given device ID.
// The default FPS is 5 for performance reasons.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{
		deviceID: deviceID,
		width:    DefaultWidth,
		height:   DefaultHeight,
		fps:      DefaultFPS,
	}
}

// NewCameraWithConfig creates a Camera for the device matching the facing preference.
func NewCameraWithConfig(cfg Config) Camera {
	c := NewCamera(cfg.DeviceID()).(*cameraImpl)
	if cfg.Width > 0 && cfg.Height > 0 {
		c.width = cfg.Width
		c.height = cfg.Height
	}
	return c
}

// Open opens the camera for capturing frames.
// Failures are classified as ErrPermissionDenied, ErrNoDevice or ErrDevice.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return classifyOpenError(c.deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return classifyOpenError(c.deviceID, errors.New("device did not open"))
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true

	return nil
}

// classifyOpenError maps an OpenCV open failure onto the acquisition errors.
// OpenCV reports every failure the same way, so the device node is inspected on Linux.
func classifyOpenError(deviceID int, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized") {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	if runtime.GOOS == "linux" {
		node := fmt.Sprintf("/dev/video%d", deviceID)
		f, statErr := os.Open(node)
		switch {
		case errors.Is(statErr, os.ErrNotExist):
			return fmt.Errorf("%w: %s", ErrNoDevice, node)
		case errors.Is(statErr, os.ErrPermission):
			return fmt.Errorf("%w: %s", ErrPermissionDenied, node)
		case statErr == nil:
			f.Close()
		}
	}

	return fmt.Errorf("%w: device %d: %v", ErrDevice, deviceID, err)
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
