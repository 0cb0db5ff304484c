package history

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Expansion tells what Expand did to a line.
type Expansion int

const (
	// NotExpanded means the line contained no history reference.
	NotExpanded Expansion = iota
	// Expanded means at least one reference was replaced.
	Expanded
	// PrintOnly means the line was expanded and carried a :p modifier. The
	// result should be displayed but not executed.
	PrintOnly
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrBadWordSpecifier   = errors.New("bad word specifier")
	ErrSubstitutionFailed = errors.New("substitution failed")
)

// Expand performs bash-style history expansion of line against the list.
//
// Supported event designators are !!, !n, !-n, !string and !?string[?],
// plus the quick substitution ^old^new[^] at the start of the line. Events
// may be followed by the word designators :n, :^, :$, :*, :x-y, :x-, :x* and
// the :p modifier; !$, !^ and !* are shorthands for the previous line's
// words. References inside single quotes or written as \! are left alone.
func (l *List) Expand(line string) (string, Expansion, error) {
	entries := l.Entries()

	if strings.HasPrefix(line, "^") {
		out, err := quickSubstitute(entries, line)
		if err != nil {
			return "", NotExpanded, err
		}
		return out, Expanded, nil
	}

	var (
		b         strings.Builder
		expanded  bool
		printOnly bool
		inSingle  bool
	)
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && line[i+1] == '!':
			b.WriteString(line[i : i+2])
			i += 2
			continue
		case c == '\'':
			inSingle = !inSingle
		case c == '!' && !inSingle && i+1 < len(line) && !literalAfterBang(line[i+1]):
			text, n, p, err := expandEvent(entries, line[i:])
			if err != nil {
				return "", NotExpanded, err
			}
			b.WriteString(text)
			i += n
			expanded = true
			printOnly = printOnly || p
			continue
		}
		b.WriteByte(c)
		i++
	}

	switch {
	case !expanded:
		return line, NotExpanded, nil
	case printOnly:
		return b.String(), PrintOnly, nil
	default:
		return b.String(), Expanded, nil
	}
}

func literalAfterBang(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '=', '(':
		return true
	}
	return false
}

// expandEvent expands the reference at the start of s, which begins with
// '!'. It returns the replacement, the number of bytes consumed and whether
// a :p modifier was present.
func expandEvent(entries []string, s string) (string, int, bool, error) {
	var (
		event string
		found bool
		j     int
	)

	switch c := s[1]; {
	case c == '!':
		event, found = last(entries)
		j = 2
	case c == '$' || c == '^' || c == '*':
		event, found = last(entries)
		if !found {
			return "", 0, false, fmt.Errorf("%s: %w", s[:2], ErrEventNotFound)
		}
		words, n, err := selectWords(strings.Fields(event), s[1:])
		if err != nil {
			return "", 0, false, fmt.Errorf("%s: %w", s[:2], err)
		}
		j = 1 + n
		return modifiers(words, s, j)
	case c == '-' || isDigit(c):
		k := 2
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		n, err := strconv.Atoi(s[1:k])
		if err != nil {
			return "", 0, false, fmt.Errorf("%s: %w", s[:k], ErrEventNotFound)
		}
		idx := n - 1
		if n < 0 {
			idx = len(entries) + n
		}
		if idx >= 0 && idx < len(entries) {
			event, found = entries[idx], true
		}
		j = k
	case c == '?':
		k := strings.IndexByte(s[2:], '?')
		var pattern string
		if k < 0 {
			pattern = s[2:]
			j = len(s)
		} else {
			pattern = s[2 : 2+k]
			j = 2 + k + 1
		}
		event, found = search(entries, func(e string) bool { return strings.Contains(e, pattern) })
	default:
		k := 1
		for k < len(s) && s[k] != ':' && !literalAfterBang(s[k]) {
			k++
		}
		prefix := s[1:k]
		event, found = search(entries, func(e string) bool { return strings.HasPrefix(e, prefix) })
		j = k
	}

	if !found {
		return "", 0, false, fmt.Errorf("%s: %w", s[:j], ErrEventNotFound)
	}

	if j+1 < len(s) && s[j] == ':' && isDesignator(s[j+1]) {
		words, n, err := selectWords(strings.Fields(event), s[j+1:])
		if err != nil {
			return "", 0, false, fmt.Errorf("%s: %w", s[:j+1+n], err)
		}
		return modifiers(words, s, j+1+n)
	}
	return modifiers(event, s, j)
}

// modifiers consumes any :p modifiers following position j of s.
func modifiers(text, s string, j int) (string, int, bool, error) {
	printOnly := false
	for j+1 < len(s) && s[j] == ':' && s[j+1] == 'p' {
		printOnly = true
		j += 2
	}
	return text, j, printOnly, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isDesignator(c byte) bool {
	return isDigit(c) || c == '^' || c == '$' || c == '*' || c == '-'
}

// selectWords applies the word designator at the start of spec and returns
// the selected words joined by a space and the number of bytes consumed.
func selectWords(words []string, spec string) (string, int, error) {
	lastIdx := len(words) - 1
	k := 0
	from := 0

	switch c := spec[0]; {
	case c == '*':
		if len(words) < 2 {
			return "", 1, nil
		}
		return strings.Join(words[1:], " "), 1, nil
	case c == '$':
		if lastIdx < 0 {
			return "", 1, ErrBadWordSpecifier
		}
		return words[lastIdx], 1, nil
	case c == '^':
		from, k = 1, 1
	case c == '-':
		from = 0
	case isDigit(c):
		for k < len(spec) && isDigit(spec[k]) {
			k++
		}
		from, _ = strconv.Atoi(spec[:k])
	}

	to := from
	switch {
	case k < len(spec) && spec[k] == '*':
		to = lastIdx
		k++
	case k < len(spec) && spec[k] == '-':
		k++
		switch {
		case k < len(spec) && spec[k] == '$':
			to = lastIdx
			k++
		case k < len(spec) && isDigit(spec[k]):
			start := k
			for k < len(spec) && isDigit(spec[k]) {
				k++
			}
			to, _ = strconv.Atoi(spec[start:k])
		default:
			to = lastIdx - 1
		}
	}

	if from < 0 || from > lastIdx || to > lastIdx || to < from {
		return "", k, ErrBadWordSpecifier
	}
	return strings.Join(words[from:to+1], " "), k, nil
}

// quickSubstitute handles ^old^new[^rest], replacing the first occurrence of
// old in the previous line. A missing new part deletes old.
func quickSubstitute(entries []string, line string) (string, error) {
	body := line[1:]
	old, repl, tail := body, "", ""
	if sep := strings.IndexByte(body, '^'); sep >= 0 {
		old, repl = body[:sep], body[sep+1:]
		if k := strings.IndexByte(repl, '^'); k >= 0 {
			repl, tail = repl[:k], repl[k+1:]
		}
	}

	prev, ok := last(entries)
	if !ok {
		return "", fmt.Errorf("%s: %w", line, ErrEventNotFound)
	}
	if old == "" || !strings.Contains(prev, old) {
		return "", fmt.Errorf("%s: %w", line, ErrSubstitutionFailed)
	}
	return strings.Replace(prev, old, repl, 1) + tail, nil
}

func last(entries []string) (string, bool) {
	if len(entries) == 0 {
		return "", false
	}
	return entries[len(entries)-1], true
}

func search(entries []string, match func(string) bool) (string, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if match(entries[i]) {
			return entries[i], true
		}
	}
	return "", false
}
