// SPDX-License-Identifier: MIT
// Source: github.com/wrenpak/pak

package pak

import "testing"

func TestOrderedMapInsertionOrder(t *testing.T) {
	m := newOrderedMap()
	names := []string{"c", "a", "b"}
	for _, n := range names {
		m.Add(NewName(n, EncodingASCII, 0), &Entry{})
	}

	if m.Len() != len(names) {
		t.Fatalf("Len() = %d, want %d", m.Len(), len(names))
	}
	for i, want := range names {
		k, _ := m.At(i)
		if k.String() != want {
			t.Errorf("At(%d) = %q, want %q", i, k.String(), want)
		}
	}

	var iterated []string
	for k := range m.All() {
		iterated = append(iterated, k.String())
	}
	for i, want := range names {
		if iterated[i] != want {
			t.Errorf("All() position %d = %q, want %q", i, iterated[i], want)
		}
	}
}

func TestOrderedMapRemoveThenReAddMovesToEnd(t *testing.T) {
	m := newOrderedMap()
	m.Add(NewName("a", EncodingASCII, 0), &Entry{})
	m.Add(NewName("b", EncodingASCII, 0), &Entry{})
	m.Add(NewName("c", EncodingASCII, 0), &Entry{})

	if !m.Remove("a") {
		t.Fatal("Remove(a) returned false")
	}
	m.Add(NewName("a", EncodingASCII, 0), &Entry{})

	want := []string{"b", "c", "a"}
	for i, w := range want {
		k, _ := m.At(i)
		if k.String() != w {
			t.Errorf("At(%d) = %q, want %q", i, k.String(), w)
		}
	}
	if m.Has("a") {
		if idx := m.IndexOf("a"); idx != 2 {
			t.Errorf("IndexOf(a) = %d, want 2", idx)
		}
	}
}

func TestOrderedMapLookupAfterRemoval(t *testing.T) {
	m := newOrderedMap()
	m.Add(NewName("a", EncodingASCII, 0), &Entry{UncompressedSize: 1})
	m.Add(NewName("b", EncodingASCII, 0), &Entry{UncompressedSize: 2})
	m.Add(NewName("c", EncodingASCII, 0), &Entry{UncompressedSize: 3})

	m.RemoveAt(0)

	e, ok := m.Get("b")
	if !ok || e.UncompressedSize != 2 {
		t.Errorf("Get(b) after removal = %v, %v", e, ok)
	}
	e, ok = m.Get("c")
	if !ok || e.UncompressedSize != 3 {
		t.Errorf("Get(c) after removal = %v, %v", e, ok)
	}
	if m.Has("a") {
		t.Error("Has(a) should be false after removal")
	}
}
