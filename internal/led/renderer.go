package led

import (
	"fmt"
	"sync"

	"github.com/smazurov/pomodorox/internal/phase"
)

// Default strip layout of the device.
const (
	DefaultPixels     = 12
	DefaultBrightness = 64
)

// Phase colours, as 8-bit hues at full saturation.
var (
	WorkColor = HSV(170, 255, 255) // blue
	RestColor = HSV(15, 255, 255)  // orange
)

type frameKey struct {
	phase phase.Phase
	step  int
}

// PhaseRenderer draws phase effects on a Strip one step per call.
//
// Work sweeps a single lit pixel from the first to the last position over the
// phase. Rest starts with the whole strip lit and switches pixels off one by
// one. Show is only called when the frame actually changes.
type PhaseRenderer struct {
	strip      Strip
	brightness uint8

	mu   sync.Mutex
	last *frameKey
}

// RendererOption configures a PhaseRenderer.
type RendererOption func(*PhaseRenderer)

// WithBrightness sets the global brightness (0-255).
func WithBrightness(b uint8) RendererOption {
	return func(r *PhaseRenderer) {
		r.brightness = b
	}
}

// NewPhaseRenderer creates a renderer for strip.
func NewPhaseRenderer(strip Strip, opts ...RendererOption) *PhaseRenderer {
	r := &PhaseRenderer{
		strip:      strip,
		brightness: DefaultBrightness,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enter blanks the strip so the new phase starts from black.
func (r *PhaseRenderer) Enter(_ phase.Phase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = nil
	for i := 0; i < r.strip.Len(); i++ {
		r.strip.Set(i, Black)
	}
	if err := r.strip.Show(); err != nil {
		return fmt.Errorf("failed to clear strip: %w", err)
	}
	return nil
}

// Render shows the frame for the given elapsed fraction of phase p.
func (r *PhaseRenderer) Render(p phase.Phase, fraction float64) error {
	n := r.strip.Len()
	if n == 0 {
		return nil
	}

	key := frameKey{phase: p, step: stepFor(fraction, n)}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.last != nil && *r.last == key {
		return nil
	}

	for i := 0; i < n; i++ {
		r.strip.Set(i, r.pixel(key, i))
	}
	if err := r.strip.Show(); err != nil {
		return fmt.Errorf("failed to show %s frame %d: %w", p, key.step, err)
	}
	r.last = &key
	return nil
}

func (r *PhaseRenderer) pixel(key frameKey, i int) Color {
	switch key.phase {
	case phase.Work:
		if i == key.step {
			return WorkColor.Scale(r.brightness)
		}
	case phase.Rest:
		if i >= key.step {
			return RestColor.Scale(r.brightness)
		}
	}
	return Black
}

// stepFor maps a fraction in [0,1] onto 0..n; n means the effect finished.
func stepFor(fraction float64, n int) int {
	if fraction <= 0 {
		return 0
	}
	if fraction >= 1 {
		return n
	}
	return int(fraction * float64(n))
}
