package led

import "log/slog"

// noop is a Strip for systems without an addressable strip. Frames are
// logged at debug level.
type noop struct {
	logger *slog.Logger
	pixels []Color
}

func newNoop(n int, logger *slog.Logger) *noop {
	return &noop{
		logger: logger,
		pixels: make([]Color, n),
	}
}

func (n *noop) Len() int {
	return len(n.pixels)
}

func (n *noop) Set(i int, c Color) {
	if i >= 0 && i < len(n.pixels) {
		n.pixels[i] = c
	}
}

func (n *noop) Show() error {
	lit := 0
	for _, c := range n.pixels {
		if c != Black {
			lit++
		}
	}
	n.logger.Debug("LED frame (no-op)", "pixels", len(n.pixels), "lit", lit)
	return nil
}
