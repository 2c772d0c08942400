package patch

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// SourceFile is the snapshot of the target file taken once per session.
// Content is never modified; every edit is computed against it.
type SourceFile struct {
	Path    string
	Content []byte
	Mode    fs.FileMode
}

// ReadSource reads path into a SourceFile. Symlinks are resolved so the
// final rename replaces the real file instead of the link.
func ReadSource(path string) (*SourceFile, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrFileNotFound, path)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !utf8.Valid(content) || bytes.IndexByte(content, 0) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotUTF8, path)
	}

	return &SourceFile{
		Path:    resolved,
		Content: content,
		Mode:    info.Mode().Perm(),
	}, nil
}

// NewSourceFile builds a snapshot from in-memory content.
func NewSourceFile(path string, content []byte) *SourceFile {
	return &SourceFile{
		Path:    path,
		Content: bytes.Clone(content),
		Mode:    0o644,
	}
}

// LineCount returns the number of lines. A trailing newline does not start a new line.
func (s *SourceFile) LineCount() int {
	return len(splitLines(string(s.Content)))
}

// Lines returns the file lines without their terminators.
func (s *SourceFile) Lines() []string {
	raw := splitLines(string(s.Content))
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = trimEOL(line)
	}
	return lines
}

// splitLines splits content after each "\n", keeping terminators.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// lineEnding returns "\r\n" when most lines of content end that way.
func lineEnding(content string) string {
	lf := strings.Count(content, "\n")
	crlf := strings.Count(content, "\r\n")
	if lf > 0 && crlf*2 > lf {
		return "\r\n"
	}
	return "\n"
}
