// Package scene holds the tracked object and draws it into the object layer.
package scene

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/ayusman/footfit/internal/tracking"
)

// Object is the handle the frame loop uses to place the tracked object.
type Object interface {
	SetTransform(t tracking.Transform)
	SetVisible(visible bool)
}

// Model is an in-process tracked object: a named, colored item with a transform.
type Model struct {
	mu        sync.RWMutex
	name      string
	color     color.RGBA
	transform tracking.Transform
	visible   bool
}

// NewModel creates a hidden Model.
func NewModel(name string, c color.RGBA) *Model {
	return &Model{name: name, color: c}
}

// SetTransform implements Object.
func (m *Model) SetTransform(t tracking.Transform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transform = t
}

// SetVisible implements Object.
func (m *Model) SetVisible(visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = visible
}

// SetColor customizes the object color.
func (m *Model) SetColor(c color.RGBA) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.color = c
}

// Snapshot returns the current transform, visibility and color together.
func (m *Model) Snapshot() (tracking.Transform, bool, color.RGBA) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transform, m.visible, m.color
}

// Visible reports whether the object is shown.
func (m *Model) Visible() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.visible
}

// Transform returns the last applied transform.
func (m *Model) Transform() tracking.Transform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transform
}

// Name returns the object name.
func (m *Model) Name() string {
	return m.name
}

// ParseHexColor parses "#rrggbb" into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	var c color.RGBA
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("invalid color %q: want #rrggbb", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("invalid color %q: %w", s, err)
	}
	c.A = 255
	return c, nil
}

// HexColor formats c as "#rrggbb".
func HexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
