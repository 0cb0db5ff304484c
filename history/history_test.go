package history

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func Test_List(t *testing.T) {
	t.Parallel()

	l := NewList()
	assert.Equal(t, 0, l.Len(), "new list is empty")

	l.Add("one")
	l.Add("two", "three")
	assert.Equal(t, 3, l.Len())

	got, ok := l.At(0)
	assert.True(t, ok)
	assert.Equal(t, "one", got)

	_, ok = l.At(3)
	assert.False(t, ok)

	entries := l.Entries()
	entries[0] = "mutated"
	if diff := cmp.Diff([]string{"one", "two", "three"}, l.Entries()); diff != "" {
		t.Fatalf("Entries must return a copy:\n%s", diff)
	}

	l.Clear()
	assert.Equal(t, 0, l.Len())
}

func Test_ListStifle(t *testing.T) {
	t.Parallel()

	l := NewList()
	l.Add("a", "b", "c", "d")

	assert.False(t, l.IsStifled())
	assert.Equal(t, -1, l.Unstifle())

	l.Stifle(2)
	assert.True(t, l.IsStifled())
	if diff := cmp.Diff([]string{"c", "d"}, l.Entries()); diff != "" {
		t.Fatal(diff)
	}

	l.Add("e")
	if diff := cmp.Diff([]string{"d", "e"}, l.Entries()); diff != "" {
		t.Fatal(diff)
	}

	l.Stifle(0) // ignored
	assert.Equal(t, 2, l.Unstifle())
	assert.False(t, l.IsStifled())

	l.Add("f")
	assert.Equal(t, 3, l.Len())
}

func Test_ListReplace(t *testing.T) {
	t.Parallel()

	l := NewList()
	l.Stifle(2)
	l.Replace([]string{"x", "y", "z"})
	if diff := cmp.Diff([]string{"y", "z"}, l.Entries()); diff != "" {
		t.Fatal(diff)
	}
}
