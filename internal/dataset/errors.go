package dataset

import "errors"

var (
	// ErrInputNotFound: the labels file or the image directory is missing.
	ErrInputNotFound = errors.New("input not found")
	// ErrInputCorrupt: the labels file is not a JSON array.
	ErrInputCorrupt = errors.New("input corrupt")
	// ErrNoValidRecords: no record survived filtering.
	ErrNoValidRecords = errors.New("no valid records")
	// ErrTooFewRecords: too few records to give every partition one.
	ErrTooFewRecords = errors.New("too few records to split")
)
