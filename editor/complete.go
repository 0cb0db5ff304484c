package editor

import (
	"strings"
	"unicode/utf8"
)

// wordBounds returns the byte offsets of the word ending at the cursor.
func (e *Editor) wordBounds() (start, end int) {
	line := e.buf.String()
	end = e.pos.Bytes
	start = end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(line[:start])
		if strings.ContainsRune(e.breakChars, r) {
			break
		}
		start -= size
	}
	return start, end
}

func (e *Editor) complete() {
	e.kind = kindComplete
	if e.completer == nil {
		e.ringBell()
		return
	}

	line := e.buf.String()
	start, end := e.wordBounds()
	candidates := e.completer(line, start, end)
	word := line[start:end]

	switch len(candidates) {
	case 0:
		e.ringBell()
	case 1:
		e.replaceWord(start, end, candidates[0]+" ")
	default:
		if prefix := commonPrefix(candidates); len(prefix) > len(word) {
			e.replaceWord(start, end, prefix)
			return
		}
		if e.prevKind == kindComplete {
			e.listCandidates(candidates)
			return
		}
		e.ringBell()
	}
}

func (e *Editor) replaceWord(start, end int, s string) {
	from := e.buf.positionAtByte(start)
	to := e.buf.positionAtByte(end)
	n := textFromString(s)
	e.buf = e.buf.remove(from, to).insertAt(from, n)
	e.pos = from.add(n.Chars...)
	e.refresh()
}

// commonPrefix returns the longest common prefix of ss that does not split
// a rune.
func commonPrefix(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	prefix := ss[0]
	for _, s := range ss[1:] {
		i := 0
		for i < len(prefix) && i < len(s) && prefix[i] == s[i] {
			i++
		}
		prefix = prefix[:i]
	}
	for len(prefix) > 0 && !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}
