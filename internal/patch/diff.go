package patch

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is the kind of a diff segment.
type Op int

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	default:
		return "equal"
	}
}

// Segment is a run of whole lines sharing one Op.
type Segment struct {
	Op   Op
	Text string
}

// Lines splits the segment text into lines without terminators.
func (s Segment) Lines() []string {
	raw := splitLines(s.Text)
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = trimEOL(line)
	}
	return lines
}

// DiffView is a display-only comparison of the original and proposed content.
// Nothing is ever applied from it.
type DiffView struct {
	Segments []Segment
}

// Diff compares src with the content p would produce.
func Diff(src *SourceFile, p *Proposal) (*DiffView, error) {
	proposed, err := Render(src, p)
	if err != nil {
		return nil, err
	}
	return DiffText(string(src.Content), string(proposed)), nil
}

// DiffText computes a line-level diff. Lines are mapped to single runes so
// the Myers alignment runs over whole lines, and the semantic cleanup pass
// merges small equalities to keep unchanged runs long.
func DiffText(original, proposed string) *DiffView {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(original, proposed)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	view := &DiffView{Segments: make([]Segment, 0, len(diffs))}
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		}
		if n := len(view.Segments); n > 0 && view.Segments[n-1].Op == op {
			view.Segments[n-1].Text += d.Text
			continue
		}
		view.Segments = append(view.Segments, Segment{Op: op, Text: d.Text})
	}
	return view
}

// Changed reports whether any segment inserts or deletes.
func (v *DiffView) Changed() bool {
	for _, s := range v.Segments {
		if s.Op != OpEqual {
			return true
		}
	}
	return false
}

// Stats returns the number of inserted and deleted lines.
func (v *DiffView) Stats() (added, deleted int) {
	for _, s := range v.Segments {
		n := len(splitLines(s.Text))
		switch s.Op {
		case OpInsert:
			added += n
		case OpDelete:
			deleted += n
		}
	}
	return added, deleted
}

// Original reassembles the left-hand side of the diff.
func (v *DiffView) Original() string {
	return v.join(OpDelete)
}

// Proposed reassembles the right-hand side of the diff.
func (v *DiffView) Proposed() string {
	return v.join(OpInsert)
}

func (v *DiffView) join(side Op) string {
	var b strings.Builder
	for _, s := range v.Segments {
		if s.Op == OpEqual || s.Op == side {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
