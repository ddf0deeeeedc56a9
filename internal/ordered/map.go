// Package ordered provides a string map that remembers insertion order.
//
// Overwriting an existing key keeps its position; deleting and re-adding a
// key moves it to the end. Not safe for concurrent use.
package ordered

import "container/list"

type entry struct {
	key   string
	value string
}

type Map struct {
	idx   map[string]*list.Element
	order *list.List
}

func New() *Map {
	return &Map{idx: make(map[string]*list.Element), order: list.New()}
}

func (m *Map) Get(key string) (string, bool) {
	el, ok := m.idx[key]
	if !ok {
		return "", false
	}
	return el.Value.(*entry).value, true
}

func (m *Map) Has(key string) bool {
	_, ok := m.idx[key]
	return ok
}

// Set stores value under key and reports whether the key was new.
func (m *Map) Set(key, value string) bool {
	if el, ok := m.idx[key]; ok {
		el.Value.(*entry).value = value
		return false
	}
	m.idx[key] = m.order.PushBack(&entry{key: key, value: value})
	return true
}

// SetIfAbsent stores value only when key is missing.
func (m *Map) SetIfAbsent(key, value string) bool {
	if _, ok := m.idx[key]; ok {
		return false
	}
	m.idx[key] = m.order.PushBack(&entry{key: key, value: value})
	return true
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	el, ok := m.idx[key]
	if !ok {
		return false
	}
	m.order.Remove(el)
	delete(m.idx, key)
	return true
}

func (m *Map) Len() int { return len(m.idx) }

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, 0, len(m.idx))
	for el := m.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).key)
	}
	return out
}
