// Package history keeps the list of previously entered lines, expands
// bash-style history references and persists the list to a file.
package history

import "sync"

// List is an ordered history list, oldest entry first. A stifled list keeps
// at most the configured number of most recent entries.
//
// List is safe for concurrent use.
type List struct {
	mu      sync.RWMutex
	entries []string
	max     int // <= 0 means unstifled
}

// NewList returns an empty, unstifled List.
func NewList() *List {
	return &List{}
}

// Add appends lines to the list, dropping the oldest entries if the list is
// stifled.
func (l *List) Add(lines ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, lines...)
	l.trim()
}

// Len reports the number of entries. It is zero for a new list.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

// At returns the entry with index i, 0 being the oldest.
func (l *List) At(i int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i < 0 || i >= len(l.entries) {
		return "", false
	}
	return l.entries[i], true
}

// Entries returns a copy of all entries.
func (l *List) Entries() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Replace swaps the whole list for lines, honoring the stifle limit.
func (l *List) Replace(lines []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]string(nil), lines...)
	l.trim()
}

func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
}

// Stifle limits the list to the n most recent entries. n <= 0 is ignored.
func (l *List) Stifle(n int) {
	if n <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.max = n
	l.trim()
}

// Unstifle removes the limit and returns the previous one, or a negative
// value if the list was not stifled.
func (l *List) Unstifle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.max
	l.max = 0
	if prev <= 0 {
		return -1
	}
	return prev
}

func (l *List) IsStifled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.max > 0
}

// trim must be called with mu held.
func (l *List) trim() {
	if l.max > 0 && len(l.entries) > l.max {
		l.entries = append([]string(nil), l.entries[len(l.entries)-l.max:]...)
	}
}
