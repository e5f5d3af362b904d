// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

import "iter"

// orderedMap is an insertion-ordered Name -> *Entry map: a dense
// keys/values pair plus a hash index from a Name's string value to its
// position, giving O(1) average lookup with stable insertion-order
// iteration (spec §4.7 / §9 Design Notes).
type orderedMap struct {
	keys   []Name
	values []*Entry
	index  map[string]int
}

func newOrderedMap() *orderedMap {
	return &orderedMap{index: make(map[string]int)}
}

// Len returns the number of entries.
func (m *orderedMap) Len() int { return len(m.keys) }

// Get looks up key by its Name string value.
func (m *orderedMap) Get(key string) (*Entry, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Has reports whether key is present.
func (m *orderedMap) Has(key string) bool {
	_, ok := m.index[key]
	return ok
}

// Add appends (k, v) to the end of the map. Callers must ensure k is not
// already present; Add does not check for or reject duplicates.
func (m *orderedMap) Add(k Name, v *Entry) {
	m.index[k.value] = len(m.keys)
	m.keys = append(m.keys, k)
	m.values = append(m.values, v)
}

// Insert places (k, v) at position i, shifting later entries right and
// rebuilding the hash index from i onward.
func (m *orderedMap) Insert(i int, k Name, v *Entry) {
	m.keys = append(m.keys, Name{})
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k

	m.values = append(m.values, nil)
	copy(m.values[i+1:], m.values[i:])
	m.values[i] = v

	m.rebuildIndexFrom(i)
}

// RemoveAt splices out position i, shifting later entries left and
// rebuilding the hash index from i onward.
func (m *orderedMap) RemoveAt(i int) {
	delete(m.index, m.keys[i].value)
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	m.rebuildIndexFrom(i)
}

// Remove removes key if present, reporting whether it was found.
func (m *orderedMap) Remove(key string) bool {
	i, ok := m.index[key]
	if !ok {
		return false
	}
	m.RemoveAt(i)
	return true
}

// At returns the key/value pair at position i.
func (m *orderedMap) At(i int) (Name, *Entry) { return m.keys[i], m.values[i] }

// IndexOf returns key's position, or -1 if absent.
func (m *orderedMap) IndexOf(key string) int {
	i, ok := m.index[key]
	if !ok {
		return -1
	}
	return i
}

// All iterates the map in insertion order.
func (m *orderedMap) All() iter.Seq2[Name, *Entry] {
	return func(yield func(Name, *Entry) bool) {
		for i, k := range m.keys {
			if !yield(k, m.values[i]) {
				return
			}
		}
	}
}

func (m *orderedMap) rebuildIndexFrom(start int) {
	for i := start; i < len(m.keys); i++ {
		m.index[m.keys[i].value] = i
	}
}
