package upline

const (
	// session events
	EventLineRead    = "line-read"
	EventInterrupted = "interrupted"
	EventEndOfInput  = "end-of-input"

	// misc
	HistoryFileSuffix  = "_history"
	DefaultHistoryFile = ".history"
	DefaultHistoryMax  = 10000
	InitFileEnvVar     = "INPUTRC"
)
