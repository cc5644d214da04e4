package notifier

import (
	"sync"
)

const defaultInboxSize = 200

// inbox keeps the newest items first and forgets the oldest past max.
type inbox struct {
	mu    sync.Mutex
	max   int
	items []Item
}

func newInbox(max int) *inbox {
	if max <= 0 {
		max = defaultInboxSize
	}
	return &inbox{max: max}
}

func (b *inbox) resize(max int) {
	if max <= 0 {
		max = defaultInboxSize
	}
	b.mu.Lock()
	b.max = max
	if len(b.items) > max {
		b.items = b.items[:max]
	}
	b.mu.Unlock()
}

func (b *inbox) add(it Item) {
	b.mu.Lock()
	b.items = append([]Item{it}, b.items...)
	if len(b.items) > b.max {
		b.items = b.items[:b.max]
	}
	b.mu.Unlock()
}

func (b *inbox) list(owner string, unreadOnly bool) []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Item, 0, len(b.items))
	for _, it := range b.items {
		if owner != "" && it.Owner != owner {
			continue
		}
		if unreadOnly && it.Read {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (b *inbox) markRead(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			b.items[i].Read = true
			return true
		}
	}
	return false
}

func (b *inbox) remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// clear drops every item of owner; an empty owner drops everything.
func (b *inbox) clear(owner string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if owner == "" {
		n := len(b.items)
		b.items = nil
		return n
	}
	kept := b.items[:0]
	for _, it := range b.items {
		if it.Owner != owner {
			kept = append(kept, it)
		}
	}
	n := len(b.items) - len(kept)
	b.items = kept
	return n
}

func (b *inbox) unread(owner string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, it := range b.items {
		if !it.Read && (owner == "" || it.Owner == owner) {
			n++
		}
	}
	return n
}
