package core

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// BanStore receives write-through updates when the ban list changes.
type BanStore interface {
	BanAdd(address string) error
	BanRemove(address string) error
}

// BanList is the ordered set of blocked addresses and host names. Entries
// are case-folded on the way in; lookups fold their argument too.
type BanList struct {
	mu      sync.Mutex
	blocked []string
	store   BanStore
}

func NewBanList() *BanList {
	return &BanList{}
}

// BindStore enables write-through persistence for later mutations.
func (b *BanList) BindStore(store BanStore) {
	b.mu.Lock()
	b.store = store
	b.mu.Unlock()
}

// Load replaces the list with persisted entries.
func (b *BanList) Load(addresses []string) {
	b.mu.Lock()
	b.blocked = b.blocked[:0]
	for _, addr := range addresses {
		b.blocked = append(b.blocked, strings.ToLower(addr))
	}
	b.mu.Unlock()
}

func (b *BanList) Contains(address string) bool {
	address = strings.ToLower(address)
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Contains(b.blocked, address)
}

// Add appends address unless already present. Reports whether it was added.
func (b *BanList) Add(address string) bool {
	address = strings.ToLower(address)
	b.mu.Lock()
	defer b.mu.Unlock()
	if slices.Contains(b.blocked, address) {
		return false
	}
	b.blocked = append(b.blocked, address)
	if b.store != nil {
		if err := b.store.BanAdd(address); err != nil {
			slog.Error("persist ban", "address", address, "err", err)
		}
	}
	return true
}

// Remove drops every occurrence of address. Reports whether any was found.
func (b *BanList) Remove(address string) bool {
	address = strings.ToLower(address)
	b.mu.Lock()
	defer b.mu.Unlock()
	found := false
	for i := slices.Index(b.blocked, address); i >= 0; i = slices.Index(b.blocked, address) {
		b.blocked = slices.Delete(b.blocked, i, i+1)
		found = true
	}
	if found && b.store != nil {
		if err := b.store.BanRemove(address); err != nil {
			slog.Error("persist ban removal", "address", address, "err", err)
		}
	}
	return found
}

func (b *BanList) Snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.blocked)
}
