package models

import "fmt"

// ParseError reports a malformed record in a fingerprint database file.
type ParseError struct {
	Source string // file name or other input label
	Line   int    // 1-based line number, 0 when unknown
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
