package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound indicates the target path does not exist or is not a regular file.
	ErrFileNotFound = errors.New("file not found")

	// ErrNotUTF8 indicates the target file is not UTF-8 text.
	ErrNotUTF8 = errors.New("file is not UTF-8 text")

	// ErrOutOfRange indicates an edit references a line outside the file.
	ErrOutOfRange = errors.New("edit out of range")

	// ErrOverlap indicates two hunks touch the same line.
	ErrOverlap = errors.New("overlapping edits")

	// ErrWriteFailed indicates the file could not be rewritten. The original is unchanged.
	ErrWriteFailed = errors.New("write failed")

	// ErrInvalidProposal indicates a proposal with an unknown kind or no hunks.
	ErrInvalidProposal = errors.New("invalid proposal")
)

// OutOfRangeError reports the first line number that falls outside 1..LineCount+1.
type OutOfRangeError struct {
	Line      int
	LineCount int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("edit references line %d but the file has %d lines", e.Line, e.LineCount)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// OverlapError reports two hunks whose ranges intersect.
type OverlapError struct {
	First  Hunk
	Second Hunk
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("hunk at lines %d-%d overlaps hunk at lines %d-%d",
		e.Second.Start, e.Second.End, e.First.Start, e.First.End)
}

func (e *OverlapError) Is(target error) bool { return target == ErrOverlap }

// WriteError wraps the I/O failure that aborted an apply.
type WriteError struct {
	Op   string // "backup", "temp", "sync", "chmod" or "rename"
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed (%s %s): %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Is(target error) bool { return target == ErrWriteFailed }

func (e *WriteError) Unwrap() error { return e.Err }
