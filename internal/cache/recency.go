package cache

import "container/list"

// recencyList orders resident keys from most (front) to least (back)
// recently used.
//
// It is not safe for concurrent use. The maintenance worker is its only
// writer; Cache.mu serializes the worker against Snapshot readers.
type recencyList struct {
	order *list.List // Front = MRU, Back = LRU
	index map[string]*list.Element
}

func newRecencyList(capacity int) *recencyList {
	return &recencyList{
		order: list.New(),
		index: make(map[string]*list.Element, capacity),
	}
}

func (l *recencyList) len() int { return l.order.Len() }

func (l *recencyList) contains(key string) bool {
	_, ok := l.index[key]
	return ok
}

// moveToFront reports whether key was present. An absent key is a no-op:
// it was evicted before the touch that referenced it got applied.
func (l *recencyList) moveToFront(key string) bool {
	el, ok := l.index[key]
	if !ok {
		return false
	}
	l.order.MoveToFront(el)
	return true
}

// pushFront inserts key at the head. If key is already present it is moved
// instead, so the list never holds duplicates. Reports whether key was new.
func (l *recencyList) pushFront(key string) bool {
	if l.moveToFront(key) {
		return false
	}
	l.index[key] = l.order.PushFront(key)
	return true
}

func (l *recencyList) removeBack() (string, bool) {
	el := l.order.Back()
	if el == nil {
		return "", false
	}
	key := l.order.Remove(el).(string)
	delete(l.index, key)
	return key, true
}

// keys returns a copy of the ordering, MRU -> LRU.
func (l *recencyList) keys() []string {
	out := make([]string, 0, l.order.Len())
	for el := l.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(string))
	}
	return out
}
