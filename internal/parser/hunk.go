package parser

import (
	"strconv"
	"strings"

	"github.com/iishyfishyy/tweak/internal/patch"
)

// parseHunkBlock turns a block labeled "hunk START-END" (or "hunk LINE")
// into a hunk. The block body is the replacement; an empty body deletes
// the range.
func parseHunkBlock(b block) (patch.Hunk, error) {
	fields := strings.Fields(b.info)
	if len(fields) < 2 {
		return patch.Hunk{}, unparseable("hunk block %q has no line range", b.info)
	}

	start, end, ok := parseRange(fields[1])
	if !ok {
		return patch.Hunk{}, unparseable("hunk block has malformed line range %q", fields[1])
	}
	return patch.Hunk{Start: start, End: end, Replacement: b.content}, nil
}

// parseRange accepts "12", "12-15", "12..15", "12:15" and "L12-L15".
func parseRange(s string) (start, end int, ok bool) {
	for _, sep := range []string{"..", "-", ":", ","} {
		lo, hi, found := strings.Cut(s, sep)
		if !found {
			continue
		}
		var okLo, okHi bool
		start, okLo = lineNumber(lo)
		end, okHi = lineNumber(hi)
		return start, end, okLo && okHi
	}
	start, ok = lineNumber(s)
	return start, start, ok
}

func lineNumber(s string) (int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "L")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
