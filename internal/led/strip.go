package led

import "sync"

// Strip is an addressable LED strip. Set only stages a pixel; Show pushes
// the staged frame to the hardware.
type Strip interface {
	Len() int
	Set(i int, c Color)
	Show() error
}

// MemoryStrip keeps frames in memory. It backs the "memory" driver and tests.
type MemoryStrip struct {
	mu      sync.Mutex
	pixels  []Color
	shown   []Color
	frames  int
	showErr error
}

// NewMemoryStrip creates a strip with n pixels.
func NewMemoryStrip(n int) *MemoryStrip {
	return &MemoryStrip{
		pixels: make([]Color, n),
		shown:  make([]Color, n),
	}
}

// Len returns the number of pixels.
func (m *MemoryStrip) Len() int {
	return len(m.pixels)
}

// Set stages pixel i. Out-of-range indexes are ignored.
func (m *MemoryStrip) Set(i int, c Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= 0 && i < len(m.pixels) {
		m.pixels[i] = c
	}
}

// Show publishes the staged pixels as the visible frame.
func (m *MemoryStrip) Show() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.showErr != nil {
		return m.showErr
	}
	copy(m.shown, m.pixels)
	m.frames++
	return nil
}

// Frame returns a copy of the last shown frame.
func (m *MemoryStrip) Frame() []Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := make([]Color, len(m.shown))
	copy(frame, m.shown)
	return frame
}

// Frames returns how many times Show succeeded.
func (m *MemoryStrip) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// FailShow makes subsequent Show calls return err (nil clears it).
func (m *MemoryStrip) FailShow(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showErr = err
}
