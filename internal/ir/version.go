package ir

const (
	// FormatVersion is the records.json / store payload version.
	FormatVersion = "1"

	// CompilerVersion is recorded with every persisted compilation.
	CompilerVersion = "0.3.0"
)
