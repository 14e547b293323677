package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action is a logical viewer action, not a physical key
type Action int

const (
	ActionQuit Action = iota
	ActionMoveForward
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionFast
	ActionLook
	ActionToggleWireframe
	ActionToggleShadows
	ActionReloadShaders
	ActionScreenshot
	ActionToggleDebugView
	ActionExposureUp
	ActionExposureDown
	ActionToggleFullscreen
	ActionCount // Sentinel value for array sizing
)

var actionNames = [ActionCount]string{
	"quit", "forward", "backward", "left", "right", "up", "down", "fast", "look",
	"wireframe", "shadows", "reload", "screenshot", "debugView", "exposureUp", "exposureDown",
	"fullscreen",
}

func (a Action) String() string {
	if a < 0 || a >= ActionCount {
		return "unknown"
	}
	return actionNames[a]
}

// Manager maps glfw keys and mouse buttons to actions and keeps the
// pressed state with edge detection. The cursor movement and scroll
// offsets are accumulated until consumed.
type Manager struct {
	mu sync.RWMutex

	// one key can map to multiple actions
	keyToActions         map[glfw.Key][]Action
	mouseButtonToActions map[glfw.MouseButton][]Action

	currentState [ActionCount]bool
	justPressed  [ActionCount]bool
	justReleased [ActionCount]bool

	cursorX, cursorY float64
	haveCursor       bool
	dx, dy           float64
	scroll           float64
}

// NewManager creates a Manager with the default bindings.
func NewManager() *Manager {
	m := &Manager{
		keyToActions:         make(map[glfw.Key][]Action),
		mouseButtonToActions: make(map[glfw.MouseButton][]Action),
	}

	m.BindKey(glfw.KeyEscape, ActionQuit)
	m.BindKey(glfw.KeyW, ActionMoveForward)
	m.BindKey(glfw.KeyS, ActionMoveBackward)
	m.BindKey(glfw.KeyA, ActionMoveLeft)
	m.BindKey(glfw.KeyD, ActionMoveRight)
	m.BindKey(glfw.KeyE, ActionMoveUp)
	m.BindKey(glfw.KeyQ, ActionMoveDown)
	m.BindKey(glfw.KeyLeftShift, ActionFast)
	m.BindKey(glfw.KeyRightShift, ActionFast)
	m.BindKey(glfw.KeyF2, ActionToggleFullscreen)
	m.BindKey(glfw.KeyF3, ActionToggleWireframe)
	m.BindKey(glfw.KeyF4, ActionToggleShadows)
	m.BindKey(glfw.KeyF5, ActionReloadShaders)
	m.BindKey(glfw.KeyF6, ActionScreenshot)
	m.BindKey(glfw.KeyF7, ActionToggleDebugView)
	m.BindKey(glfw.KeyKPAdd, ActionExposureUp)
	m.BindKey(glfw.KeyEqual, ActionExposureUp)
	m.BindKey(glfw.KeyKPSubtract, ActionExposureDown)
	m.BindKey(glfw.KeyMinus, ActionExposureDown)

	m.BindMouseButton(glfw.MouseButtonLeft, ActionLook)
	return m
}

// BindKey binds a physical key to an action. Several keys may share an
// action.
func (m *Manager) BindKey(key glfw.Key, action Action) {
	if action < 0 || action >= ActionCount {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyToActions[key] = append(m.keyToActions[key], action)
}

// UnbindKey removes all action bindings for a key
func (m *Manager) UnbindKey(key glfw.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keyToActions, key)
}

func (m *Manager) BindMouseButton(button glfw.MouseButton, action Action) {
	if action < 0 || action >= ActionCount {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mouseButtonToActions[button] = append(m.mouseButtonToActions[button], action)
}

// set updates the state of actions. The caller holds the lock.
func (m *Manager) set(actions []Action, pressed bool) {
	for _, act := range actions {
		if pressed && !m.currentState[act] {
			m.justPressed[act] = true
		}
		if !pressed && m.currentState[act] {
			m.justReleased[act] = true
		}
		m.currentState[act] = pressed
	}
}

// HandleKeyEvent processes a key event.
func (m *Manager) HandleKeyEvent(key glfw.Key, action glfw.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if actions, ok := m.keyToActions[key]; ok {
		m.set(actions, action == glfw.Press || action == glfw.Repeat)
	}
}

// HandleMouseButtonEvent processes a mouse button event.
func (m *Manager) HandleMouseButtonEvent(button glfw.MouseButton, action glfw.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if actions, ok := m.mouseButtonToActions[button]; ok {
		m.set(actions, action == glfw.Press)
	}
}

// HandleCursor records a cursor position. Movement is only accumulated
// while the look action is held. Screen y grows downwards, the returned
// delta grows upwards.
func (m *Manager) HandleCursor(x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.haveCursor && m.currentState[ActionLook] {
		m.dx += x - m.cursorX
		m.dy += m.cursorY - y
	}
	m.cursorX, m.cursorY = x, y
	m.haveCursor = true
}

func (m *Manager) HandleScroll(offset float64) {
	m.mu.Lock()
	m.scroll += offset
	m.mu.Unlock()
}

// Attach installs the glfw callbacks of window.
func (m *Manager) Attach(window *glfw.Window) {
	window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		m.HandleKeyEvent(key, action)
	})
	window.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		m.HandleMouseButtonEvent(button, action)
	})
	window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		m.HandleCursor(x, y)
	})
	window.SetScrollCallback(func(_ *glfw.Window, _, y float64) {
		m.HandleScroll(y)
	})
}

// ConsumeLook returns the cursor movement since the last call.
func (m *Manager) ConsumeLook() (dx, dy float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dx, dy = m.dx, m.dy
	m.dx, m.dy = 0, 0
	return dx, dy
}

// ConsumeScroll returns the scroll offset since the last call.
func (m *Manager) ConsumeScroll() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.scroll
	m.scroll = 0
	return s
}

// PostUpdate must be called at the end of each frame to reset the edge
// flags.
func (m *Manager) PostUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range ActionCount {
		m.justPressed[i] = false
		m.justReleased[i] = false
	}
}

// IsActive returns true if the action is currently being held down
func (m *Manager) IsActive(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState[action]
}

// JustPressed returns true only if the action was pressed in the current frame
func (m *Manager) JustPressed(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.justPressed[action]
}

func (m *Manager) JustReleased(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.justReleased[action]
}
