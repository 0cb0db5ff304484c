package io

import (
	"bytes"
	"io"
)

const maxQueryLen = 64

// QueryFilter removes terminal queries from a byte stream before it reaches
// a terminal: device status and cursor position reports (CSI 5 n, CSI 6 n),
// device attributes (CSI c with optional > or = and 0) and the color queries
// OSC 10, 11 and 12 with a ? argument. The terminal's answers would arrive on
// standard input, in the middle of the line being edited.
//
// Sequences split across writes are held back until they are complete.
// Anything that is not a query passes through unchanged.
type QueryFilter struct {
	w       io.Writer
	pending []byte
}

func NewQueryFilter(w io.Writer) *QueryFilter {
	return &QueryFilter{w: w}
}

func (f *QueryFilter) Write(p []byte) (int, error) {
	data := p
	if len(f.pending) > 0 {
		data = append(f.pending, p...)
		f.pending = nil
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if data[i] != 0x1b {
			j := bytes.IndexByte(data[i:], 0x1b)
			if j < 0 {
				j = len(data) - i
			}
			out = append(out, data[i:i+j]...)
			i += j
			continue
		}

		n, complete := sequenceLen(data[i:])
		if !complete {
			if len(data)-i > maxQueryLen {
				// too long for a query
				out = append(out, data[i:i+2]...)
				i += 2
				continue
			}
			f.pending = append([]byte(nil), data[i:]...)
			break
		}
		if !isQuery(data[i : i+n]) {
			out = append(out, data[i:i+n]...)
		}
		i += n
	}

	if len(out) > 0 {
		if _, err := f.w.Write(out); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes out a held back incomplete sequence.
func (f *QueryFilter) Flush() error {
	if len(f.pending) == 0 {
		return nil
	}
	p := f.pending
	f.pending = nil
	_, err := f.w.Write(p)
	return err
}

// sequenceLen returns the length of the escape sequence at the start of b
// and whether it is complete. Only CSI and OSC sequences are parsed; other
// escapes count as two bytes.
func sequenceLen(b []byte) (int, bool) {
	if len(b) < 2 {
		return 0, false
	}

	switch b[1] {
	case '[':
		for i := 2; i < len(b); i++ {
			if b[i] >= 0x40 && b[i] <= 0x7e {
				return i + 1, true
			}
		}
		return 0, false
	case ']':
		for i := 2; i < len(b); i++ {
			if b[i] == 0x07 {
				return i + 1, true
			}
			if b[i] == 0x1b && i+1 < len(b) && b[i+1] == '\\' {
				return i + 2, true
			}
		}
		return 0, false
	}
	return 2, true
}

func isQuery(seq []byte) bool {
	switch seq[1] {
	case '[':
		params, final := string(seq[2:len(seq)-1]), seq[len(seq)-1]
		switch final {
		case 'n':
			return params == "5" || params == "6"
		case 'c':
			switch params {
			case "", "0", ">", ">0", "=", "=0":
				return true
			}
		}
	case ']':
		body := bytes.TrimSuffix(bytes.TrimSuffix(seq[2:], []byte{0x07}), []byte("\x1b\\"))
		switch string(body) {
		case "10;?", "11;?", "12;?":
			return true
		}
	}
	return false
}
