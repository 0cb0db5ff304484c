package session

// Status is the outcome of a ReadLine call.
type Status int

const (
	// Completed means a full line was read. The line may be empty.
	Completed Status = iota
	// Interrupted means SIGINT arrived, or reading failed, before the line
	// was complete. Partial input was discarded.
	Interrupted
	// EndOfInput means the input ended on an empty line.
	EndOfInput
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case EndOfInput:
		return "end-of-input"
	}
	return "unknown"
}

// Result is returned by ReadLine. Line is only meaningful when Status is
// Completed and never contains the line terminator.
type Result struct {
	Status Status
	Line   string
}

// readState lives for the duration of one ReadLine call.
type readState struct {
	prompt string
	line   string
	done   bool
	eof    bool
}

func (st *readState) result() Result {
	if st.eof {
		return Result{Status: EndOfInput}
	}
	return Result{Status: Completed, Line: st.line}
}
