package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/iishyfishyy/tweak/internal/patch"
)

// DefaultContext is the number of unchanged lines shown around each change.
const DefaultContext = 3

var (
	addColor  = color.New(color.FgGreen)
	delColor  = color.New(color.FgRed)
	foldColor = color.New(color.FgHiBlack)
	statColor = color.New(color.FgCyan, color.Bold)
)

// RenderDiff writes view to w. Unchanged runs longer than twice the context
// are folded into a single marker line.
func RenderDiff(w io.Writer, view *patch.DiffView, context int) {
	if context < 0 {
		context = 0
	}

	added, deleted := view.Stats()
	statColor.Fprintf(w, "%s, %s\n", lineCount(added, "+"), lineCount(deleted, "-"))

	segs := view.Segments
	for i, seg := range segs {
		lines := seg.Lines()
		switch seg.Op {
		case patch.OpInsert:
			for _, l := range lines {
				addColor.Fprintf(w, "+ %s\n", l)
			}
		case patch.OpDelete:
			for _, l := range lines {
				delColor.Fprintf(w, "- %s\n", l)
			}
		case patch.OpEqual:
			renderEqual(w, lines, context, i == 0, i == len(segs)-1)
		}
	}
}

func renderEqual(w io.Writer, lines []string, context int, first, last bool) {
	head, tail := context, context
	if first {
		head = 0
	}
	if last {
		tail = 0
	}

	if head+tail >= len(lines) {
		for _, l := range lines {
			fmt.Fprintf(w, "  %s\n", l)
		}
		return
	}

	for _, l := range lines[:head] {
		fmt.Fprintf(w, "  %s\n", l)
	}
	foldColor.Fprintf(w, "  ⋯ %s unchanged\n", lineCount(len(lines)-head-tail, ""))
	for _, l := range lines[len(lines)-tail:] {
		fmt.Fprintf(w, "  %s\n", l)
	}
}

func lineCount(n int, sign string) string {
	if n == 1 {
		return sign + "1 line"
	}
	return fmt.Sprintf("%s%d lines", sign, n)
}
