package editor

import "unicode"

func (e *Editor) selfInsert() {
	r := []rune(e.lastKey)
	if len(r) != 1 {
		e.ringBell()
		return
	}
	c := charFromRune(r[0])
	e.buf = e.buf.insertCharAt(e.pos, c)
	e.pos = e.pos.add(c)
	e.refresh()
}

func (e *Editor) acceptLine() {
	line := e.buf.String()
	e.pos = e.buf.end()
	e.refresh()
	e.writeString("\r\n")
	e.finish(line, false)
}

func (e *Editor) beginningOfLine() {
	e.pos = Position{}
	e.refresh()
}

func (e *Editor) endOfLine() {
	e.pos = e.buf.end()
	e.refresh()
}

func (e *Editor) forwardChar() {
	if e.pos.Runes >= e.buf.Len() {
		return
	}
	e.pos = e.pos.add(e.buf.Chars[e.pos.Runes])
	e.refresh()
}

func (e *Editor) backwardChar() {
	if e.pos.Runes == 0 {
		return
	}
	e.pos = e.pos.sub(e.buf.Chars[e.pos.Runes-1])
	e.refresh()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordEnd returns the position after the word at or following pos.
func (e *Editor) wordEnd(pos Position) Position {
	n := e.buf.Len()
	for pos.Runes < n && !isWordRune(e.buf.Chars[pos.Runes].R) {
		pos = pos.add(e.buf.Chars[pos.Runes])
	}
	for pos.Runes < n && isWordRune(e.buf.Chars[pos.Runes].R) {
		pos = pos.add(e.buf.Chars[pos.Runes])
	}
	return pos
}

// wordStart returns the start of the word at or preceding pos.
func (e *Editor) wordStart(pos Position) Position {
	for pos.Runes > 0 && !isWordRune(e.buf.Chars[pos.Runes-1].R) {
		pos = pos.sub(e.buf.Chars[pos.Runes-1])
	}
	for pos.Runes > 0 && isWordRune(e.buf.Chars[pos.Runes-1].R) {
		pos = pos.sub(e.buf.Chars[pos.Runes-1])
	}
	return pos
}

func (e *Editor) forwardWord() {
	e.pos = e.wordEnd(e.pos)
	e.refresh()
}

func (e *Editor) backwardWord() {
	e.pos = e.wordStart(e.pos)
	e.refresh()
}

// Unlike the other motions, the history commands save the edited line so
// moving back to it keeps the edit. The saved copies are thrown away by the
// next Install or Abort.
func (e *Editor) gotoHistory(idx int) {
	if idx < 0 || idx >= len(e.histTmp) || idx == e.histIdx {
		e.ringBell()
		return
	}
	e.histTmp[e.histIdx] = e.buf.String()
	e.histIdx = idx
	e.buf = textFromString(e.histTmp[idx])
	e.pos = e.buf.end()
	e.refresh()
}

func (e *Editor) previousHistory() { e.gotoHistory(e.histIdx - 1) }

func (e *Editor) nextHistory() { e.gotoHistory(e.histIdx + 1) }

func (e *Editor) beginningOfHistory() { e.gotoHistory(0) }

func (e *Editor) endOfHistory() { e.gotoHistory(len(e.histTmp) - 1) }

func (e *Editor) deleteChar() {
	if e.pos.Runes >= e.buf.Len() {
		e.ringBell()
		return
	}
	e.buf = e.buf.remove(e.pos, e.pos.add(e.buf.Chars[e.pos.Runes]))
	e.refresh()
}

// deleteCharOrEOF deletes the character under the cursor, or ends input
// when the line is empty.
func (e *Editor) deleteCharOrEOF() {
	if e.buf.Len() == 0 {
		e.writeString("\r\n")
		e.finish("", true)
		return
	}
	e.deleteChar()
}

func (e *Editor) backwardDeleteChar() {
	if e.pos.Runes == 0 {
		e.ringBell()
		return
	}
	from := e.pos.sub(e.buf.Chars[e.pos.Runes-1])
	e.buf = e.buf.remove(from, e.pos)
	e.pos = from
	e.refresh()
}

// killRange removes [from, to) and saves it in the kill buffer. Consecutive
// kills accumulate, prepending when killing backwards.
func (e *Editor) killRange(from, to Position, backward bool) {
	killed := e.buf.slice(from, to)
	switch {
	case e.prevKind != kindKill:
		e.kill = killed
	case backward:
		e.kill = killed.append(e.kill)
	default:
		e.kill = e.kill.append(killed)
	}
	e.kind = kindKill

	e.buf = e.buf.remove(from, to)
	e.pos = from
	e.refresh()
}

func (e *Editor) killLine() {
	e.killRange(e.pos, e.buf.end(), false)
}

func (e *Editor) unixLineDiscard() {
	e.killRange(Position{}, e.pos, true)
}

// unixWordRubout kills backwards to the previous whitespace.
func (e *Editor) unixWordRubout() {
	from := e.pos
	for from.Runes > 0 && unicode.IsSpace(e.buf.Chars[from.Runes-1].R) {
		from = from.sub(e.buf.Chars[from.Runes-1])
	}
	for from.Runes > 0 && !unicode.IsSpace(e.buf.Chars[from.Runes-1].R) {
		from = from.sub(e.buf.Chars[from.Runes-1])
	}
	e.killRange(from, e.pos, true)
}

func (e *Editor) killWord() {
	e.killRange(e.pos, e.wordEnd(e.pos), false)
}

func (e *Editor) backwardKillWord() {
	e.killRange(e.wordStart(e.pos), e.pos, true)
}

func (e *Editor) yank() {
	if e.kill.Len() == 0 {
		e.ringBell()
		return
	}
	e.buf = e.buf.insertAt(e.pos, e.kill)
	e.pos = e.pos.add(e.kill.Chars...)
	e.refresh()
}

// transposeChars swaps the characters before and under the cursor and moves
// forward. At the end of the line it swaps the last two characters.
func (e *Editor) transposeChars() {
	n := e.buf.Len()
	if n < 2 || e.pos.Runes == 0 {
		e.ringBell()
		return
	}

	i := e.pos.Runes
	if i == n {
		i--
	}
	chars := make([]Char, n)
	copy(chars, e.buf.Chars)
	chars[i-1], chars[i] = chars[i], chars[i-1]

	var t Text
	for _, c := range chars {
		t = t.append(Text{Chars: []Char{c}, Bytes: c.P, Width: c.Width})
	}
	e.buf = t
	e.pos = t.positionAt(i + 1)
	e.refresh()
}

func (e *Editor) clearScreen() {
	e.writeString(seqClearScreen)
	e.refresh()
}

func (e *Editor) ringBell() {
	e.bellRing()
}
