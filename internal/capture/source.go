package capture

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/sonogest/internal/log"
)

// MotionSource yields one motion value per call.
type MotionSource interface {
	Open() error
	Close() error
	// NextMotion returns the next sample. ok is false when no sample is
	// available yet, such as on the first frame.
	NextMotion() (motion float64, ok bool, err error)
}

// CameraSource samples motion from a Camera.
type CameraSource struct {
	camera  Camera
	sampler *Sampler

	preview     *Preview
	lastPreview time.Time
}

// NewCameraSource pairs camera with a default-sized Sampler.
func NewCameraSource(camera Camera) *CameraSource {
	return &CameraSource{
		camera:  camera,
		sampler: NewSampler(DefaultWidth, DefaultHeight),
	}
}

// SetPreview publishes JPEG copies of sampled frames to p, at most one per
// PreviewInterval. Call before Open.
func (s *CameraSource) SetPreview(p *Preview) {
	s.preview = p
}

// Open opens the camera and clears any previous frame.
func (s *CameraSource) Open() error {
	s.sampler.Reset()
	return s.camera.Open()
}

// Close closes the camera.
func (s *CameraSource) Close() error {
	s.sampler.Reset()
	return s.camera.Close()
}

// NextMotion reads a frame and samples it against the previous one.
func (s *CameraSource) NextMotion() (float64, bool, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return 0, false, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	s.encodePreview(frame)

	motion, ok := s.sampler.Sample(frame)
	return motion, ok, nil
}

func (s *CameraSource) encodePreview(frame *gocv.Mat) {
	if s.preview == nil {
		return
	}
	now := time.Now()
	if now.Sub(s.lastPreview) < PreviewInterval {
		return
	}
	s.lastPreview = now

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		log.Debug("preview encode failed", "error", err)
		return
	}
	s.preview.Put(buf.GetBytes())
	buf.Close()
}

// Camera returns the underlying camera.
func (s *CameraSource) Camera() Camera {
	return s.camera
}
