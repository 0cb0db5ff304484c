package editor

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// Char is one rune of the edit buffer together with its encoding and the
// number of terminal columns it occupies.
type Char struct {
	P     []byte
	R     rune
	Width int
}

func charFromRune(r rune) Char {
	p := make([]byte, utf8.RuneLen(r))
	utf8.EncodeRune(p, r)
	return Char{P: p, R: r, Width: runewidth.RuneWidth(r)}
}

// Position addresses a point in a Text in runes, bytes and columns at once.
type Position struct {
	Runes   int
	Bytes   int
	Columns int
}

func (pos Position) add(chars ...Char) Position {
	for _, c := range chars {
		pos.Runes++
		pos.Bytes += len(c.P)
		pos.Columns += c.Width
	}
	return pos
}

func (pos Position) sub(chars ...Char) Position {
	for _, c := range chars {
		pos.Runes--
		pos.Bytes -= len(c.P)
		pos.Columns -= c.Width
	}
	return pos
}

// Text is an immutable-by-convention sequence of Chars. Every operation
// returns a new Text that does not share backing arrays with the receiver.
type Text struct {
	Chars []Char
	Bytes []byte
	Width int
}

func textFromString(s string) Text {
	t := Text{Chars: make([]Char, 0, len(s)), Bytes: make([]byte, 0, len(s))}
	for _, r := range s {
		c := charFromRune(r)
		t.Chars = append(t.Chars, c)
		t.Bytes = append(t.Bytes, c.P...)
		t.Width += c.Width
	}
	return t
}

func (t Text) String() string { return string(t.Bytes) }

func (t Text) Len() int { return len(t.Chars) }

func (t Text) end() Position {
	return Position{Runes: len(t.Chars), Bytes: len(t.Bytes), Columns: t.Width}
}

// positionAt returns the Position of the rune with index n.
func (t Text) positionAt(n int) Position {
	var pos Position
	for i := 0; i < n && i < len(t.Chars); i++ {
		pos = pos.add(t.Chars[i])
	}
	return pos
}

// positionAtByte returns the Position of the rune starting at byte offset b.
func (t Text) positionAtByte(b int) Position {
	var pos Position
	for _, c := range t.Chars {
		if pos.Bytes >= b {
			break
		}
		pos = pos.add(c)
	}
	return pos
}

func (t Text) insertAt(pos Position, n Text) Text {
	chars := make([]Char, 0, len(t.Chars)+len(n.Chars))
	chars = append(chars, t.Chars[:pos.Runes]...)
	chars = append(chars, n.Chars...)
	chars = append(chars, t.Chars[pos.Runes:]...)

	bytes := make([]byte, 0, len(t.Bytes)+len(n.Bytes))
	bytes = append(bytes, t.Bytes[:pos.Bytes]...)
	bytes = append(bytes, n.Bytes...)
	bytes = append(bytes, t.Bytes[pos.Bytes:]...)

	return Text{Chars: chars, Bytes: bytes, Width: t.Width + n.Width}
}

func (t Text) insertCharAt(pos Position, c Char) Text {
	return t.insertAt(pos, Text{Chars: []Char{c}, Bytes: c.P, Width: c.Width})
}

// remove deletes the segment [from, to).
func (t Text) remove(from, to Position) Text {
	return t.slice(Position{}, from).append(t.slice(to, t.end()))
}

func (t Text) slice(from, to Position) Text {
	chars := make([]Char, to.Runes-from.Runes)
	copy(chars, t.Chars[from.Runes:to.Runes])
	bytes := make([]byte, to.Bytes-from.Bytes)
	copy(bytes, t.Bytes[from.Bytes:to.Bytes])
	return Text{Chars: chars, Bytes: bytes, Width: to.Columns - from.Columns}
}

func (t Text) append(n Text) Text {
	return t.insertAt(t.end(), n)
}
