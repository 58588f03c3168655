package reader

// defaultCursor backs ReadRecord and FinishDefault.
var defaultCursor = NewCursor()

// ReadRecord reads the next record of path using a package level cursor,
// for simple programs that read one stream at a time. It is not safe for
// concurrent use, and interleaving paths restarts the cursor. Call
// FinishDefault when done reading.
func ReadRecord(path string, opts Options) (*Result, error) {
	return defaultCursor.Read(path, opts)
}

// FinishDefault releases the package level cursor used by ReadRecord.
func FinishDefault() error {
	return defaultCursor.Finish()
}
