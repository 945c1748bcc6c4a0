package device

import (
	"image"
	"sync"
)

// SwapChain is a fixed pool of drawables shared between the renderer (which
// acquires and presents them) and a display (which consumes the most
// recently presented one). Presenting a newer drawable recycles an older one
// the display has not picked up yet.
type SwapChain struct {
	mu     sync.Mutex
	width  int
	height int
	max    int
	live   int    // drawables allocated in the current generation
	gen    uint32 // bumped on resize
	free   []*swapDrawable
	latest *swapDrawable
	frames uint64 // presented drawables, including recycled ones
}

type swapDrawable struct {
	chain *SwapChain
	img   *image.RGBA
	gen   uint32
}

func (d *swapDrawable) Image() *image.RGBA { return d.img }

func (d *swapDrawable) Present() { d.chain.present(d) }

// NewSwapChain creates a chain of up to count drawables of the given size.
func NewSwapChain(width, height, count int) *SwapChain {
	if count < 1 {
		count = 1
	}
	return &SwapChain{
		width:  max(width, 1),
		height: max(height, 1),
		max:    count,
	}
}

// Size returns the current drawable size.
func (s *SwapChain) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Presented returns the number of drawables presented so far.
func (s *SwapChain) Presented() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Resize changes the size of future drawables. Drawables of the old size
// still in flight are discarded when they come back.
func (s *SwapChain) Resize(width, height int) {
	width, height = max(width, 1), max(height, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if width == s.width && height == s.height {
		return
	}
	s.width, s.height = width, height
	s.gen++
	s.live = 0
	s.free = s.free[:0]
}

// NextDrawable returns a free drawable without blocking.
func (s *SwapChain) NextDrawable() (Drawable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.free); n > 0 {
		d := s.free[n-1]
		s.free = s.free[:n-1]
		return d, nil
	}
	if s.live < s.max {
		s.live++
		return &swapDrawable{
			chain: s,
			img:   image.NewRGBA(image.Rect(0, 0, s.width, s.height)),
			gen:   s.gen,
		}, nil
	}
	return nil, ErrNoDrawable
}

// present makes d the latest image, recycling the one it replaces.
func (s *SwapChain) present(d *swapDrawable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++
	if s.latest != nil {
		s.recycle(s.latest)
	}
	s.latest = d
}

// Acquire takes the most recently presented image, or nil if nothing new
// was presented since the last call. release must be called once the
// caller is done reading the image.
func (s *SwapChain) Acquire() (img *image.RGBA, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.latest
	if d == nil {
		return nil, func() {}
	}
	s.latest = nil

	return d.img, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.recycle(d)
	}
}

// recycle returns d to the free list unless it predates the last resize.
// Caller must hold s.mu.
func (s *SwapChain) recycle(d *swapDrawable) {
	if d.gen != s.gen {
		return
	}
	s.free = append(s.free, d)
}
