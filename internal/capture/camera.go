// Package capture reads webcam frames with GoCV and reduces consecutive
// frames to a motion-intensity value.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// The device is asked for frames at the sampling canvas size.
const (
	DefaultFPS    = 30
	DefaultWidth  = 320
	DefaultHeight = 240
)

var (
	// ErrCameraNotOpen is returned by ReadFrame before Open or after Close.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device yields no image.
	ErrEmptyFrame = errors.New("camera returned an empty frame")
)

// Camera is a source of video frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame; the caller closes it.
	ReadFrame() (*gocv.Mat, error)
}

// device is a local capture device driven at the tick rate.
type device struct {
	id  int
	fps int

	mu sync.Mutex
	vc *gocv.VideoCapture
}

// NewCamera returns a Camera for device id polled at fps frames per
// second. A non-positive fps selects DefaultFPS.
func NewCamera(id, fps int) Camera {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &device{id: id, fps: fps}
}

// Open is a no-op on an open device.
func (d *device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc != nil {
		return nil
	}
	vc, err := gocv.OpenVideoCapture(d.id)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", d.id, err)
	}
	for prop, v := range map[gocv.VideoCaptureProperties]float64{
		gocv.VideoCaptureFrameWidth:  DefaultWidth,
		gocv.VideoCaptureFrameHeight: DefaultHeight,
		gocv.VideoCaptureFPS:         float64(d.fps),
	} {
		vc.Set(prop, v)
	}
	d.vc = vc
	return nil
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil
	}
	vc := d.vc
	d.vc = nil
	return vc.Close()
}

func (d *device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil, ErrCameraNotOpen
	}
	frame := gocv.NewMat()
	if !d.vc.Read(&frame) || frame.Empty() {
		frame.Close()
		return nil, fmt.Errorf("camera %d: %w", d.id, ErrEmptyFrame)
	}
	return &frame, nil
}
