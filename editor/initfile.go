package editor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// LoadInitFile reads key bindings and variables from an inputrc-style file.
//
// Supported are comments, "set bell-style", "keyseq": function bindings and
// key name bindings such as Control-u: kill-line. Conditional constructs,
// includes and other variables are skipped. Every malformed line is
// reported; valid lines are applied regardless.
func (e *Editor) LoadInitFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return e.parseInitFile(path, f)
}

func (e *Editor) parseInitFile(name string, r io.Reader) error {
	var result error

	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		if err := e.parseInitLine(strings.TrimSpace(s.Text())); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s:%d: %w", name, n, err))
		}
	}
	if err := s.Err(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

func (e *Editor) parseInitLine(line string) error {
	switch {
	case line == "", line[0] == '#', line[0] == '$':
		return nil
	case strings.HasPrefix(line, "set ") || strings.HasPrefix(line, "set\t"):
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return fmt.Errorf("malformed set: %q", line)
		}
		if strings.ToLower(fields[1]) != "bell-style" {
			return nil
		}
		b, err := parseBellStyle(fields[2])
		if err != nil {
			return err
		}
		e.bell = b
		return nil
	}

	seq, rest, err := parseKeySpec(line)
	if err != nil {
		return err
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ":") {
		return fmt.Errorf("missing colon in binding: %q", line)
	}
	fn := strings.TrimSpace(rest[1:])
	if fn == "" {
		return fmt.Errorf("missing function name: %q", line)
	}
	if fn[0] == '"' || fn[0] == '\'' {
		return fmt.Errorf("macros are not supported: %q", line)
	}
	if i := strings.IndexAny(fn, " \t"); i >= 0 {
		fn = fn[:i]
	}

	return e.km.Bind(seq, fn)
}

// parseKeySpec parses the key part of a binding and returns the key
// sequence and the remainder of the line.
func parseKeySpec(line string) (string, string, error) {
	if line[0] == '"' {
		for i := 1; i < len(line); i++ {
			switch line[i] {
			case '\\':
				i++
			case '"':
				seq, err := unescapeKeySeq(line[1:i])
				if err != nil {
					return "", "", err
				}
				return seq, line[i+1:], nil
			}
		}
		return "", "", fmt.Errorf("unterminated key sequence: %q", line)
	}

	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", fmt.Errorf("malformed binding: %q", line)
	}
	seq, err := parseKeyName(line[:i])
	if err != nil {
		return "", "", err
	}
	return seq, line[i:], nil
}

var keyNames = map[string]byte{
	"rubout":  0x7f,
	"del":     0x7f,
	"escape":  0x1b,
	"esc":     0x1b,
	"lfd":     '\n',
	"newline": '\n',
	"ret":     '\r',
	"return":  '\r',
	"space":   ' ',
	"spc":     ' ',
	"tab":     '\t',
}

// parseKeyName parses names like Control-a, Meta-Rubout or M-C-f.
func parseKeyName(name string) (string, error) {
	var ctrl, meta bool
	rest := name
	for {
		lower := strings.ToLower(rest)
		switch {
		case strings.HasPrefix(lower, "control-"):
			ctrl, rest = true, rest[len("control-"):]
			continue
		case strings.HasPrefix(lower, "c-"):
			ctrl, rest = true, rest[len("c-"):]
			continue
		case strings.HasPrefix(lower, "meta-"):
			meta, rest = true, rest[len("meta-"):]
			continue
		case strings.HasPrefix(lower, "m-"):
			meta, rest = true, rest[len("m-"):]
			continue
		}
		break
	}

	var key byte
	if b, ok := keyNames[strings.ToLower(rest)]; ok {
		key = b
	} else if len(rest) == 1 {
		key = rest[0]
	} else {
		return "", fmt.Errorf("unknown key name %q", name)
	}

	if ctrl {
		key = ctrlKey(key)
	}
	if meta {
		return keyEscape + string([]byte{key}), nil
	}
	return string([]byte{key}), nil
}

func ctrlKey(b byte) byte {
	if b == '?' {
		return 0x7f
	}
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	return b & 0x1f
}

// unescapeKeySeq interprets the backslash escapes of a quoted key sequence.
func unescapeKeySeq(s string) (string, error) {
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("trailing backslash in %q", s)
		}

		switch c = s[i]; c {
		case 'C', 'M':
			if i+2 >= len(s) || s[i+1] != '-' {
				return "", fmt.Errorf("malformed \\%c- escape in %q", c, s)
			}
			i += 2
			k := s[i]
			if k == '\\' && i+1 < len(s) && s[i+1] == 'e' {
				k = 0x1b
				i++
			}
			if c == 'C' {
				out = append(out, ctrlKey(k))
			} else {
				out = append(out, 0x1b, k)
			}
		case 'e':
			out = append(out, 0x1b)
		case '\\', '"', '\'':
			out = append(out, c)
		case 'a':
			out = append(out, '\a')
		case 'b':
			out = append(out, '\b')
		case 'd':
			out = append(out, 0x7f)
		case 't':
			out = append(out, '\t')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 'x':
			j := i + 1
			for j < len(s) && j < i+3 && isHex(s[j]) {
				j++
			}
			if j == i+1 {
				return "", fmt.Errorf("malformed \\x escape in %q", s)
			}
			v, _ := strconv.ParseUint(s[i+1:j], 16, 8)
			out = append(out, byte(v))
			i = j - 1
		default:
			if c < '0' || c > '7' {
				return "", fmt.Errorf("unknown escape \\%c in %q", c, s)
			}
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, err := strconv.ParseUint(s[i:j], 8, 8)
			if err != nil {
				return "", fmt.Errorf("octal escape out of range in %q", s)
			}
			out = append(out, byte(v))
			i = j - 1
		}
	}
	return string(out), nil
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
