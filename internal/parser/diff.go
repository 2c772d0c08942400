package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/iishyfishyy/tweak/internal/patch"
)

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// diffLine is one body line of a unified diff hunk.
type diffLine struct {
	op   byte // ' ', '-' or '+'
	text string
}

// diffHunk is one "@@" section of a unified diff.
type diffHunk struct {
	oldStart int
	lines    []diffLine
}

// old returns the context and removed lines, the text the hunk expects to find.
func (h diffHunk) old() []string {
	var out []string
	for _, l := range h.lines {
		if l.op != '+' {
			out = append(out, l.text)
		}
	}
	return out
}

func (h diffHunk) hasChange() bool {
	for _, l := range h.lines {
		if l.op != ' ' {
			return true
		}
	}
	return false
}

// parseUnifiedDiff splits a diff block body into hunks. File headers and
// "\ No newline" markers are skipped.
func parseUnifiedDiff(body string) []diffHunk {
	var (
		hunks   []diffHunk
		current *diffHunk
	)
	lines := strings.Split(body, "\n")
	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")

		if m := hunkHeader.FindStringSubmatch(line); m != nil {
			start, _ := strconv.Atoi(m[1])
			hunks = append(hunks, diffHunk{oldStart: start})
			current = &hunks[len(hunks)-1]
			continue
		}
		if current == nil {
			continue
		}

		var next string
		if i+1 < len(lines) {
			next = lines[i+1]
		}

		switch {
		case startsFile(line, next):
			current = nil
		case strings.HasPrefix(line, `\`):
		case line == "":
			current.lines = append(current.lines, diffLine{op: ' '})
		case line[0] == ' ' || line[0] == '-' || line[0] == '+':
			current.lines = append(current.lines, diffLine{op: line[0], text: line[1:]})
		default:
			// Models often drop the leading space on context lines.
			current.lines = append(current.lines, diffLine{op: ' ', text: line})
		}
	}

	for i := range hunks {
		hunks[i].lines = trimTrailingBlank(hunks[i].lines)
	}
	return hunks
}

// startsFile reports whether line opens the next file of a multi-file diff.
// A removed line such as "-- a/x" in SQL reads as "--- a/x", so "---" counts
// only when the "+++" header follows.
func startsFile(line, next string) bool {
	if strings.HasPrefix(line, "diff --git ") {
		return true
	}
	return strings.HasPrefix(line, "--- ") && strings.HasPrefix(next, "+++ ")
}

// trimTrailingBlank drops blank context lines left by the closing fence.
func trimTrailingBlank(lines []diffLine) []diffLine {
	for len(lines) > 0 {
		last := lines[len(lines)-1]
		if last.op != ' ' || last.text != "" {
			break
		}
		lines = lines[:len(lines)-1]
	}
	return lines
}

// anchoredHunk is a diff hunk converted to a line range. A pure insertion
// has no line of its own, so it claims the line after the insertion point;
// inserted then holds just the added text.
type anchoredHunk struct {
	patch.Hunk
	inserted string
}

// toHunk anchors a diff hunk in the file and converts it to a line-range
// replacement. Context lines keep the file's own text.
func toHunk(dh diffHunk, fileLines []string) (anchoredHunk, error) {
	old := dh.old()

	if len(old) == 0 {
		return insertionHunk(dh, fileLines), nil
	}

	start, ok := locate(old, fileLines, dh.oldStart)
	if !ok {
		return anchoredHunk{}, unparseable("diff hunk at line %d does not match the file", dh.oldStart)
	}

	var b strings.Builder
	pos := start - 1
	for _, l := range dh.lines {
		switch l.op {
		case ' ':
			b.WriteString(fileLines[pos])
			b.WriteByte('\n')
			pos++
		case '-':
			pos++
		case '+':
			b.WriteString(l.text)
			b.WriteByte('\n')
		}
	}

	return anchoredHunk{Hunk: patch.Hunk{Start: start, End: start + len(old) - 1, Replacement: b.String()}}, nil
}

// insertionHunk handles a hunk with no context or removed lines. The added
// lines are attached to the line after oldStart, or appended at the end.
func insertionHunk(dh diffHunk, fileLines []string) anchoredHunk {
	var added strings.Builder
	for _, l := range dh.lines {
		added.WriteString(l.text)
		added.WriteByte('\n')
	}
	text := added.String()

	at := dh.oldStart + 1
	if at > len(fileLines) {
		at = len(fileLines) + 1
		return anchoredHunk{Hunk: patch.Hunk{Start: at, End: at, Replacement: text}, inserted: text}
	}
	return anchoredHunk{
		Hunk:     patch.Hunk{Start: at, End: at, Replacement: text + fileLines[at-1] + "\n"},
		inserted: text,
	}
}

// mergeAnchored folds each insertion into the hunk that also claims its
// anchor line. Hunks of one diff may share that line; hunks from different
// blocks may not.
func mergeAnchored(hs []anchoredHunk) []patch.Hunk {
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].Start < hs[j].Start })

	var out []anchoredHunk
	for _, h := range hs {
		if n := len(out); n > 0 && out[n-1].inserted != "" && out[n-1].Start == h.Start {
			prev := out[n-1]
			h.Replacement = prev.inserted + h.Replacement
			if h.inserted != "" {
				h.inserted = prev.inserted + h.inserted
			}
			out[n-1] = h
			continue
		}
		out = append(out, h)
	}

	hunks := make([]patch.Hunk, len(out))
	for i, h := range out {
		hunks[i] = h.Hunk
	}
	return hunks
}

// locate finds where want occurs in lines, comparing with whitespace
// normalized. The stated position wins; otherwise the closest match, earlier
// on ties.
func locate(want, lines []string, stated int) (int, bool) {
	if len(want) > len(lines) {
		return 0, false
	}
	norm := make([]string, len(want))
	for i, w := range want {
		norm[i] = normalize(w)
	}

	matchAt := func(start int) bool {
		for i, w := range norm {
			if normalize(lines[start-1+i]) != w {
				return false
			}
		}
		return true
	}

	last := len(lines) - len(want) + 1
	if stated >= 1 && stated <= last && matchAt(stated) {
		return stated, true
	}

	best, bestDist := 0, -1
	for start := 1; start <= last; start++ {
		if !matchAt(start) {
			continue
		}
		dist := start - stated
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = start, dist
		}
	}
	return best, bestDist >= 0
}

func normalize(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
