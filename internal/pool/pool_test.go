package pool

import (
	"context"
	"testing"
	"time"

	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/surface"
	"github.com/woozymasta/dzpool/internal/surface/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSurface(opts memory.Options) *memory.Surface {
	return memory.New(surface.DisplayOptions{
		Preferences: surface.Preferences{MinZoom: 1, MaxZoom: 19},
	}, opts)
}

func newPool(t *testing.T, capacity int) (*Pool, *memory.Surface) {
	t.Helper()

	s := newSurface(memory.Options{})
	p, err := Create(context.Background(), s, capacity, Options{})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	return p, s
}

func TestCreate_InitialState(t *testing.T) {
	p, s := newPool(t, 50)

	require.Equal(t, 50, p.Len())
	assert.Equal(t, 50, s.MarkerCount())

	seen := make(map[string]bool)
	for i, slot := range p.Slots() {
		assert.Equal(t, i, slot.Index)
		assert.False(t, slot.Visible, "slot %d visible", i)
		assert.False(t, slot.Active, "slot %d active", i)
		assert.Equal(t, geo.Origin, slot.Position)
		assert.Equal(t, 0, slot.ZIndex)
		assert.Nil(t, slot.Data)
		assert.False(t, seen[slot.MarkerID], "marker reused across slots")
		seen[slot.MarkerID] = true
	}
}

func TestCreate_MarkersDisableAutoPan(t *testing.T) {
	s := newSurface(memory.Options{})
	var created []surface.Marker
	p, err := Create(context.Background(), s, 3, Options{
		OnClick: func(int, geo.LatLng) {},
	})
	require.NoError(t, err)

	for i := 0; i < p.Len(); i++ {
		created = append(created, p.markers[i])
	}
	for _, m := range created {
		assert.False(t, m.(*memory.Marker).AutoPan())
		assert.Equal(t, 1, m.(*memory.Marker).Listeners())
	}
}

func TestCreate_WithLatency(t *testing.T) {
	s := newSurface(memory.Options{Latency: 5 * time.Millisecond})

	start := time.Now()
	p, err := Create(context.Background(), s, 50, Options{})
	require.NoError(t, err)

	assert.Equal(t, 50, p.Len())
	// requests run concurrently, not one after another
	assert.Less(t, time.Since(start), 50*5*time.Millisecond)
}

func TestCreate_FailureRollsBack(t *testing.T) {
	s := newSurface(memory.Options{FailAt: 7})

	p, err := Create(context.Background(), s, 20, Options{})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrSetup)
	assert.ErrorIs(t, err, memory.ErrInjected)
	assert.Equal(t, 0, s.MarkerCount(), "no partial pool left on the surface")
}

func TestCreate_InvalidArguments(t *testing.T) {
	_, err := Create(context.Background(), nil, 3, Options{})
	assert.ErrorIs(t, err, ErrSetup)

	_, err = Create(context.Background(), newSurface(memory.Options{}), 0, Options{})
	assert.ErrorIs(t, err, ErrSetup)
}

func TestCreate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSurface(memory.Options{})
	_, err := Create(ctx, s, 5, Options{})
	assert.ErrorIs(t, err, ErrSetup)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.MarkerCount())
}

func TestPool_ClickHandler(t *testing.T) {
	var clicks []int
	s := newSurface(memory.Options{})
	p, err := Create(context.Background(), s, 3, Options{
		OnClick: func(i int, _ geo.LatLng) { clicks = append(clicks, i) },
	})
	require.NoError(t, err)

	require.True(t, p.Trigger(1))

	slot, _ := p.Slot(1)
	assert.True(t, slot.Active)
	assert.Equal(t, ActiveZIndex, slot.ZIndex)
	assert.Equal(t, DefaultActiveIcon, slot.Icon)
	assert.Equal(t, []int{1}, clicks)

	// repeated clicks keep the same visual state
	require.True(t, p.Trigger(1))
	again, _ := p.Slot(1)
	assert.Equal(t, slot, again)

	other, _ := p.Slot(0)
	assert.False(t, other.Active)
	assert.Equal(t, 0, other.ZIndex)
}

func TestPool_CustomActiveIcon(t *testing.T) {
	icon := surface.Icon{URL: "active.png", Size: surface.Size{Width: 10, Height: 20}}
	p, err := Create(context.Background(), newSurface(memory.Options{}), 1, Options{ActiveIcon: icon})
	require.NoError(t, err)

	p.Trigger(0)
	slot, _ := p.Slot(0)
	assert.Equal(t, icon, slot.Icon)
}

func TestPool_PlaceAndPositions(t *testing.T) {
	p, _ := newPool(t, 3)
	pos := geo.LatLng{Lat: 51, Lng: 7.5}

	require.True(t, p.Place(2, pos, "item"))
	assert.False(t, p.Place(3, pos, nil))
	assert.False(t, p.Place(-1, pos, nil))

	slot, ok := p.Slot(2)
	require.True(t, ok)
	assert.True(t, slot.Visible)
	assert.Equal(t, pos, slot.Position)
	assert.Equal(t, "item", slot.Data)
	assert.Equal(t, []geo.LatLng{geo.Origin, geo.Origin, pos}, p.Positions())
}

func TestPool_Reset(t *testing.T) {
	p, s := newPool(t, 4)
	for i := 0; i < 4; i++ {
		p.Place(i, geo.LatLng{Lat: 50 + float64(i)/10, Lng: 7}, i)
	}
	p.Trigger(0)

	p.Reset()
	once := p.Slots()
	p.Reset()
	twice := p.Slots()

	assert.Equal(t, once, twice, "reset is idempotent")
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, 4, s.MarkerCount())
	for _, slot := range twice {
		assert.False(t, slot.Visible)
		assert.False(t, slot.Active)
		assert.Nil(t, slot.Data)
		assert.Equal(t, geo.Origin, slot.Position)
	}
}

func TestPool_Close(t *testing.T) {
	p, _ := newPool(t, 2)
	p.Close()
	p.Close()

	p.Trigger(0)
	slot, _ := p.Slot(0)
	assert.False(t, slot.Active, "no listener after close")
}

func TestPool_NilSafe(t *testing.T) {
	var p *Pool

	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Slots())
	assert.False(t, p.Trigger(0))
	assert.False(t, p.Place(0, geo.Origin, nil))
	p.Reset()
	p.Close()
}
