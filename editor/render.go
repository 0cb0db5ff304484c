package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	seqClearScreen = "\x1b[H\x1b[2J"
	seqEraseRight  = "\x1b[K"
	seqVisibleBell = "\x1b[?5h\x1b[?5l"
)

type bellStyle int

const (
	bellAudible bellStyle = iota
	bellVisible
	bellNone
)

func parseBellStyle(s string) (bellStyle, error) {
	switch strings.ToLower(s) {
	case "audible", "on":
		return bellAudible, nil
	case "visible":
		return bellVisible, nil
	case "none", "off":
		return bellNone, nil
	}
	return bellAudible, fmt.Errorf("invalid bell-style %q", s)
}

func (e *Editor) bellRing() {
	switch e.bell {
	case bellAudible:
		e.writeString("\a")
	case bellVisible:
		e.writeString(seqVisibleBell)
	}
}

// refresh redraws the prompt and the part of the line around the cursor
// that fits in the window, then places the cursor.
func (e *Editor) refresh() {
	if e.dumb {
		return
	}

	avail := e.columns() - e.promptW - 1
	if avail < 1 {
		avail = 1
	}

	start := 0
	for w := e.pos.Columns; w >= avail && start < e.pos.Runes; start++ {
		w -= e.buf.Chars[start].Width
	}

	var b strings.Builder
	b.WriteString("\r")
	b.WriteString(e.prompt)

	col, width := e.promptW, 0
	for i := start; i < e.buf.Len(); i++ {
		c := e.buf.Chars[i]
		if width+c.Width > avail {
			break
		}
		b.Write(c.P)
		width += c.Width
		if i < e.pos.Runes {
			col += c.Width
		}
	}

	b.WriteString(seqEraseRight)
	b.WriteString("\r")
	if col > 0 {
		b.WriteString("\x1b[" + strconv.Itoa(col) + "C")
	}
	e.writeString(b.String())
}

// listCandidates prints candidates in columns below the line and redraws
// the prompt.
func (e *Editor) listCandidates(candidates []string) {
	maxW := 0
	for _, c := range candidates {
		if w := runewidth.StringWidth(c); w > maxW {
			maxW = w
		}
	}
	colW := maxW + 2
	perRow := e.columns() / colW
	if perRow < 1 {
		perRow = 1
	}
	rows := (len(candidates) + perRow - 1) / perRow

	var b strings.Builder
	b.WriteString("\r\n")
	for r := 0; r < rows; r++ {
		for c := 0; c < perRow; c++ {
			i := c*rows + r
			if i >= len(candidates) {
				break
			}
			s := candidates[i]
			b.WriteString(s)
			if c < perRow-1 && i+rows < len(candidates) {
				b.WriteString(strings.Repeat(" ", colW-runewidth.StringWidth(s)))
			}
		}
		b.WriteString("\r\n")
	}
	e.writeString(b.String())
	e.refresh()
}
