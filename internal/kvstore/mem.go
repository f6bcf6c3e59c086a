package kvstore

import "sort"

type memItem struct {
	value any
	free  FreeFunc
}

// Mem is the in-memory Store implementation. Not safe for concurrent use.
type Mem struct {
	items map[string]memItem
}

// NewMem creates an empty in-memory store.
func NewMem() *Mem {
	return &Mem{items: make(map[string]memItem)}
}

// Insert stores value under key, rejecting duplicates.
func (m *Mem) Insert(key string, value any, free FreeFunc) error {
	if _, exists := m.items[key]; exists {
		return ErrDuplicateKey
	}
	m.items[key] = memItem{value: value, free: free}
	return nil
}

// Lookup returns the value stored under key, if any.
func (m *Mem) Lookup(key string) (any, bool) {
	item, ok := m.items[key]
	if !ok {
		return nil, false
	}
	return item.value, true
}

// Delete removes key and runs its destructor.
func (m *Mem) Delete(key string) {
	item, ok := m.items[key]
	if !ok {
		return
	}
	delete(m.items, key)
	if item.free != nil {
		item.free(item.value)
	}
}

// Keys returns every stored key, sorted.
func (m *Mem) Keys() []string {
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored entries.
func (m *Mem) Len() int {
	return len(m.items)
}

// Purge removes every entry, running each destructor.
func (m *Mem) Purge() {
	for k := range m.items {
		m.Delete(k)
	}
}
