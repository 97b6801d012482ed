package memory

import (
	"sort"
	"sync"

	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/surface"
)

// Marker is an in-memory surface.Marker.
type Marker struct {
	id string

	mu       sync.Mutex
	position geo.LatLng
	icon     surface.Icon
	handlers map[int]surface.Handler
	events   map[int]surface.EventType
	nextSub  int
	zIndex   int
	visible  bool
	autoPan  bool
}

// ID implements surface.Marker.
func (m *Marker) ID() string { return m.id }

// SetPosition implements surface.Marker.
func (m *Marker) SetPosition(p geo.LatLng) {
	m.mu.Lock()
	m.position = p
	m.mu.Unlock()
}

// Position implements surface.Marker.
func (m *Marker) Position() geo.LatLng {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// SetVisible implements surface.Marker.
func (m *Marker) SetVisible(v bool) {
	m.mu.Lock()
	m.visible = v
	m.mu.Unlock()
}

// Visible implements surface.Marker.
func (m *Marker) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// SetIcon implements surface.Marker.
func (m *Marker) SetIcon(icon surface.Icon) {
	m.mu.Lock()
	m.icon = icon
	m.mu.Unlock()
}

// Icon implements surface.Marker.
func (m *Marker) Icon() surface.Icon {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.icon
}

// SetZIndex implements surface.Marker.
func (m *Marker) SetZIndex(z int) {
	m.mu.Lock()
	m.zIndex = z
	m.mu.Unlock()
}

// ZIndex implements surface.Marker.
func (m *Marker) ZIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zIndex
}

// AutoPan reports whether the map pans to the marker when it is clicked.
func (m *Marker) AutoPan() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoPan
}

// Listeners returns the number of active subscriptions.
func (m *Marker) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// On implements surface.Marker.
func (m *Marker) On(ev surface.EventType, h surface.Handler) surface.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.events == nil {
		m.events = make(map[int]surface.EventType)
	}

	id := m.nextSub
	m.nextSub++
	m.handlers[id] = h
	m.events[id] = ev

	return &subscription{marker: m, id: id}
}

// Trigger implements surface.Marker. Handlers run synchronously on the
// caller's goroutine in subscription order.
func (m *Marker) Trigger(ev surface.EventType, payload geo.LatLng) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.handlers))
	for id := range m.handlers {
		if m.events[id] == ev {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	hs := make([]surface.Handler, len(ids))
	for i, id := range ids {
		hs[i] = m.handlers[id]
	}
	m.mu.Unlock()

	for _, h := range hs {
		h(surface.Event{Type: ev, Position: payload, Marker: m})
	}
}

type subscription struct {
	marker *Marker
	id     int
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.marker.mu.Lock()
		delete(s.marker.handlers, s.id)
		delete(s.marker.events, s.id)
		s.marker.mu.Unlock()
	})
}
