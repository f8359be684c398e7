package capture

import (
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// Sampling constants.
const (
	// SampleCount divides the buffer length into the sampling stride in pixels.
	SampleCount = 100
	// DiffScale divides the summed channel difference.
	DiffScale = 1000.0
	// MaxMotion is the top of the motion scale.
	MaxMotion = 100.0
	// rgbaChannels is the layout frames are converted to before sampling.
	rgbaChannels = 4
)

// Difference compares two interleaved pixel buffers and returns a motion
// value in [0,100]. Every (len/SampleCount)*channels bytes one pixel is
// sampled and the absolute difference of its first three channels summed.
// Mismatched or empty buffers yield 0.
func Difference(prev, curr []byte, channels int) float64 {
	if channels <= 0 || len(prev) == 0 || len(prev) != len(curr) {
		return 0
	}

	stride := (len(prev) / SampleCount) * channels
	if stride < channels {
		stride = channels
	}
	colour := min(channels, 3)

	var sum float64
	for i := 0; i+colour-1 < len(prev); i += stride {
		for c := 0; c < colour; c++ {
			sum += math.Abs(float64(prev[i+c]) - float64(curr[i+c]))
		}
	}

	return math.Min(MaxMotion, sum/DiffScale)
}

// Sampler turns a stream of frames into motion samples by differencing each
// frame against the one before it.
type Sampler struct {
	width  int
	height int
	prev   []byte
	mu     sync.Mutex
}

// NewSampler creates a Sampler that normalizes frames to width x height.
// Non-positive sizes use the default capture size.
func NewSampler(width, height int) *Sampler {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return &Sampler{width: width, height: height}
}

// Sample returns the motion between frame and the previous frame. The first
// frame after construction or Reset only primes the sampler and returns ok=false.
func (s *Sampler) Sample(frame *gocv.Mat) (motion float64, ok bool) {
	if frame == nil || frame.Empty() {
		return 0, false
	}

	curr := s.normalize(frame)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.prev
	s.prev = curr
	if prev == nil {
		return 0, false
	}
	return Difference(prev, curr, rgbaChannels), true
}

// normalize resizes frame and converts it to RGBA bytes.
func (s *Sampler) normalize(frame *gocv.Mat) []byte {
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(*frame, &resized, image.Point{X: s.width, Y: s.height}, 0, 0, gocv.InterpolationLinear)

	rgba := gocv.NewMat()
	defer rgba.Close()

	switch resized.Channels() {
	case 1:
		gocv.CvtColor(resized, &rgba, gocv.ColorGrayToBGRA)
	case 4:
		gocv.CvtColor(resized, &rgba, gocv.ColorBGRAToRGBA)
	default:
		gocv.CvtColor(resized, &rgba, gocv.ColorBGRToRGBA)
	}

	return rgba.ToBytes()
}

// Reset forgets the previous frame.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prev = nil
}

// Primed reports whether a previous frame is held.
func (s *Sampler) Primed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prev != nil
}
