package viewer

const (
	fallbackWidth  = 1280
	fallbackHeight = 720
	// position of a restored window that had none saved
	fallbackOffset = 64
)

// placement is a window position and size in screen coordinates.
type placement struct {
	x, y, w, h int
}

// restore returns the placement to leave fullscreen with. A zero size,
// as when the app was started fullscreen without a window size, falls
// back to a default window.
func (p placement) restore() placement {
	if p.w <= 0 || p.h <= 0 {
		p.w, p.h = fallbackWidth, fallbackHeight
	}
	if p.x == 0 && p.y == 0 {
		p.x, p.y = fallbackOffset, fallbackOffset
	}
	return p
}
