// Package clicker drives synthetic marker clicks over a pool.
package clicker

import (
	"github.com/woozymasta/dzpool/internal/pool"

	"github.com/rs/zerolog/log"
)

// Cursor walks the pool slots in ascending order, wrapping at the end.
// The zero value starts at slot 0.
type Cursor struct {
	next int
}

// Next returns the slot the following SimulateNext call will click.
func (c *Cursor) Next() int {
	return c.next
}

// SimulateNext clicks the slot under the cursor with its own position as
// payload and advances the cursor modulo the pool size. It reports the
// clicked slot; ok is false for a nil or empty pool.
func (c *Cursor) SimulateNext(p *pool.Pool) (index int, ok bool) {
	n := p.Len()
	if n == 0 {
		return 0, false
	}

	// the cursor may be stale if it was used with a larger pool
	index = c.next % n
	p.Trigger(index)
	c.next = (index + 1) % n

	log.Trace().Int("slot", index).Int("next", c.next).Msg("Simulated marker click")

	return index, true
}
