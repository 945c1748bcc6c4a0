package renderer

// fpsCounter counts draws and reports them once at least a second of
// unclamped frame time has accumulated.
type fpsCounter struct {
	elapsed float64
	frames  int
}

// tick records one draw that took dt seconds. It returns the frame count and
// true when a report is due, then starts a new window.
func (c *fpsCounter) tick(dt float64) (int, bool) {
	c.frames++
	c.elapsed += dt
	if c.elapsed < 1 || dt == 0 {
		return 0, false
	}
	n := c.frames
	c.frames = 0
	c.elapsed = 0
	return n, true
}
