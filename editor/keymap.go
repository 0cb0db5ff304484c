package editor

import "strings"

// Key sequences as sent by ANSI terminals.
const (
	keyCtrlA     = "\x01"
	keyCtrlB     = "\x02"
	keyCtrlD     = "\x04"
	keyCtrlE     = "\x05"
	keyCtrlF     = "\x06"
	keyCtrlH     = "\x08"
	keyTab       = "\t"
	keyNewline   = "\n"
	keyCtrlK     = "\x0b"
	keyCtrlL     = "\x0c"
	keyEnter     = "\r"
	keyCtrlN     = "\x0e"
	keyCtrlP     = "\x10"
	keyCtrlT     = "\x14"
	keyCtrlU     = "\x15"
	keyCtrlW     = "\x17"
	keyCtrlY     = "\x19"
	keyEscape    = "\x1b"
	keyBackspace = "\x7f"

	keyUp       = "\x1b[A"
	keyDown     = "\x1b[B"
	keyRight    = "\x1b[C"
	keyLeft     = "\x1b[D"
	keyUpSS3    = "\x1bOA"
	keyDownSS3  = "\x1bOB"
	keyRightSS3 = "\x1bOC"
	keyLeftSS3  = "\x1bOD"
	keyHome     = "\x1b[H"
	keyEnd      = "\x1b[F"
	keyHomeSS3  = "\x1bOH"
	keyEndSS3   = "\x1bOF"
	keyHomeVT   = "\x1b[1~"
	keyEndVT    = "\x1b[4~"
	keyDelete   = "\x1b[3~"

	keyMetaB         = "\x1bb"
	keyMetaF         = "\x1bf"
	keyMetaD         = "\x1bd"
	keyMetaBackspace = "\x1b\x7f"
	keyMetaLess      = "\x1b<"
	keyMetaGreater   = "\x1b>"
	keyMetaLeft      = "\x1b[1;3D"
	keyMetaRight     = "\x1b[1;3C"
	keyCtrlLeft      = "\x1b[1;5D"
	keyCtrlRight     = "\x1b[1;5C"
)

// Command is an editing function bound to a key sequence.
type Command func(*Editor)

// Keymap maps key sequences to commands. Like any map it must not be
// modified while an Editor using it is reading.
type Keymap map[string]Command

// commands lists the bindable functions by their readline names.
var commands = map[string]Command{
	"accept-line":          (*Editor).acceptLine,
	"beginning-of-line":    (*Editor).beginningOfLine,
	"end-of-line":          (*Editor).endOfLine,
	"forward-char":         (*Editor).forwardChar,
	"backward-char":        (*Editor).backwardChar,
	"forward-word":         (*Editor).forwardWord,
	"backward-word":        (*Editor).backwardWord,
	"previous-history":     (*Editor).previousHistory,
	"next-history":         (*Editor).nextHistory,
	"beginning-of-history": (*Editor).beginningOfHistory,
	"end-of-history":       (*Editor).endOfHistory,
	"delete-char":          (*Editor).deleteCharOrEOF,
	"delete-char-only":     (*Editor).deleteChar,
	"backward-delete-char": (*Editor).backwardDeleteChar,
	"kill-line":            (*Editor).killLine,
	"unix-line-discard":    (*Editor).unixLineDiscard,
	"unix-word-rubout":     (*Editor).unixWordRubout,
	"kill-word":            (*Editor).killWord,
	"backward-kill-word":   (*Editor).backwardKillWord,
	"yank":                 (*Editor).yank,
	"transpose-chars":      (*Editor).transposeChars,
	"clear-screen":         (*Editor).clearScreen,
	"complete":             (*Editor).complete,
	"abort":                (*Editor).ringBell,
}

// DefaultKeymap returns a fresh copy of the emacs-style keymap.
func DefaultKeymap() Keymap {
	bind := map[string]string{
		keyEnter:     "accept-line",
		keyNewline:   "accept-line",
		keyCtrlD:     "delete-char",
		keyCtrlH:     "backward-delete-char",
		keyBackspace: "backward-delete-char",
		keyDelete:    "delete-char-only",
		keyTab:       "complete",
		keyCtrlL:     "clear-screen",
		keyCtrlT:     "transpose-chars",

		keyCtrlA:    "beginning-of-line",
		keyCtrlE:    "end-of-line",
		keyHome:     "beginning-of-line",
		keyEnd:      "end-of-line",
		keyHomeSS3:  "beginning-of-line",
		keyEndSS3:   "end-of-line",
		keyHomeVT:   "beginning-of-line",
		keyEndVT:    "end-of-line",
		keyCtrlB:    "backward-char",
		keyCtrlF:    "forward-char",
		keyLeft:     "backward-char",
		keyRight:    "forward-char",
		keyLeftSS3:  "backward-char",
		keyRightSS3: "forward-char",

		keyMetaB:     "backward-word",
		keyMetaF:     "forward-word",
		keyMetaLeft:  "backward-word",
		keyMetaRight: "forward-word",
		keyCtrlLeft:  "backward-word",
		keyCtrlRight: "forward-word",

		keyCtrlP:       "previous-history",
		keyCtrlN:       "next-history",
		keyUp:          "previous-history",
		keyDown:        "next-history",
		keyUpSS3:       "previous-history",
		keyDownSS3:     "next-history",
		keyMetaLess:    "beginning-of-history",
		keyMetaGreater: "end-of-history",

		keyCtrlK:         "kill-line",
		keyCtrlU:         "unix-line-discard",
		keyCtrlW:         "unix-word-rubout",
		keyMetaD:         "kill-word",
		keyMetaBackspace: "backward-kill-word",
		keyCtrlY:         "yank",
	}

	km := make(Keymap, len(bind))
	for seq, name := range bind {
		km[seq] = commands[name]
	}
	return km
}

// Bind binds seq to the function called name.
func (km Keymap) Bind(seq, name string) error {
	cmd, ok := commands[name]
	if !ok {
		return &UnknownFunctionError{Name: name}
	}
	km[seq] = cmd
	return nil
}

// isPrefix reports whether seq is a strict prefix of a bound sequence.
func (km Keymap) isPrefix(seq string) bool {
	for k := range km {
		if len(k) > len(seq) && strings.HasPrefix(k, seq) {
			return true
		}
	}
	return false
}

// UnknownFunctionError is returned when binding a name that is not a known
// editing function.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return "unknown function " + e.Name
}
