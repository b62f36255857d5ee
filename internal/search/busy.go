package search

import "sync"

// Busy is the reentrant busy-indicator counter. Every remote call brackets
// itself with Show/Hide; the indicator only turns off when the count drops
// back to zero, so overlapping fetches (keyword resolution followed by the
// discovery call) cannot flicker it off early. Hide saturates at zero.
type Busy struct {
	mu    sync.Mutex
	count int
	show  func()
	hide  func()
}

func NewBusy(show, hide func()) *Busy {
	return &Busy{show: show, hide: hide}
}

func (b *Busy) Show() {
	b.mu.Lock()
	b.count++
	first := b.count == 1
	b.mu.Unlock()
	if first && b.show != nil {
		b.show()
	}
}

func (b *Busy) Hide() {
	b.mu.Lock()
	if b.count == 0 {
		b.mu.Unlock()
		return
	}
	b.count--
	last := b.count == 0
	b.mu.Unlock()
	if last && b.hide != nil {
		b.hide()
	}
}

func (b *Busy) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count > 0
}
