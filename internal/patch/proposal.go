package patch

import (
	"bytes"
	"fmt"
	"sort"
)

// Kind distinguishes the two proposal shapes.
type Kind int

const (
	FullReplace Kind = iota + 1
	HunkSet
)

func (k Kind) String() string {
	switch k {
	case FullReplace:
		return "full-replace"
	case HunkSet:
		return "hunk-set"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Hunk replaces the 1-based inclusive line range Start..End with Replacement.
// Line LineCount+1 is the position just past the end of the file, so a hunk
// starting there appends.
type Hunk struct {
	Start       int
	End         int
	Replacement string
}

// Proposal is a structured edit against a SourceFile.
type Proposal struct {
	Kind    Kind
	Content []byte // FullReplace only
	Hunks   []Hunk // HunkSet only, sorted by Start
}

// NewFullReplace returns a proposal that replaces the whole file with content.
func NewFullReplace(content []byte) *Proposal {
	return &Proposal{Kind: FullReplace, Content: bytes.Clone(content)}
}

// NewHunkSet sorts hunks by start line and validates them against a file of
// lineCount lines. The input slice is not modified.
func NewHunkSet(hunks []Hunk, lineCount int) (*Proposal, error) {
	sorted := make([]Hunk, len(hunks))
	copy(sorted, hunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	p := &Proposal{Kind: HunkSet, Hunks: sorted}
	if err := p.Validate(lineCount); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the proposal invariants for a file of lineCount lines.
func (p *Proposal) Validate(lineCount int) error {
	switch p.Kind {
	case FullReplace:
		return nil
	case HunkSet:
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidProposal, p.Kind)
	}

	if len(p.Hunks) == 0 {
		return fmt.Errorf("%w: hunk set is empty", ErrInvalidProposal)
	}

	limit := lineCount + 1
	for i, h := range p.Hunks {
		switch {
		case h.Start < 1 || h.Start > limit:
			return &OutOfRangeError{Line: h.Start, LineCount: lineCount}
		case h.End < h.Start || h.End > limit:
			return &OutOfRangeError{Line: h.End, LineCount: lineCount}
		}
		if i == 0 {
			continue
		}
		prev := p.Hunks[i-1]
		if h.Start < prev.Start {
			return fmt.Errorf("%w: hunks are not sorted by start line", ErrInvalidProposal)
		}
		if h.Start <= prev.End {
			return &OverlapError{First: prev, Second: h}
		}
	}
	return nil
}
