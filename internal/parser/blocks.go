package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// blockKind classifies a fenced code block by its info string.
type blockKind int

const (
	kindFile blockKind = iota
	kindHunk
	kindDiff
)

// block is one fenced code block from the response.
type block struct {
	kind    blockKind
	info    string // full info string
	content string
	hint    string // text of the block preceding the fence, if any
}

var markdown = goldmark.New()

// extractBlocks returns every fenced code block in document order.
func extractBlocks(source []byte) []block {
	doc := markdown.Parser().Parse(text.NewReader(source))

	var blocks []block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		b := block{content: segmentsText(fence.Lines(), source)}
		if fence.Info != nil {
			b.info = strings.TrimSpace(string(fence.Info.Segment.Value(source)))
		}
		if prev := fence.PreviousSibling(); prev != nil && prev.Type() == ast.TypeBlock {
			b.hint = segmentsText(prev.Lines(), source)
		}
		b.kind = classify(b.info)
		blocks = append(blocks, b)
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

func segmentsText(lines *text.Segments, source []byte) string {
	if lines == nil {
		return ""
	}
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		for j := 0; j < seg.Padding; j++ {
			buf.WriteByte(' ')
		}
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func classify(info string) blockKind {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return kindFile
	}
	switch strings.ToLower(fields[0]) {
	case "hunk", "lines":
		return kindHunk
	case "diff", "patch", "udiff":
		return kindDiff
	default:
		return kindFile
	}
}

// namesFile reports whether s mentions base as a standalone file name.
func namesFile(s, base string) bool {
	if base == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(s[from:], base)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(base)
		if (start == 0 || !nameByte(s[start-1])) && (end == len(s) || !nameByte(s[end]) || s[end] == '.' && (end+1 == len(s) || !nameByte(s[end+1]))) {
			return true
		}
		from = start + 1
	}
}

func nameByte(c byte) bool {
	return c == '_' || c == '-' || c == '.' ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}
