package patch

import (
	"bytes"
	"strings"
)

// Render returns the content the file would have after applying p to src.
// Hunks are spliced in one pass over the snapshot lines, so every hunk is
// interpreted against the original line numbers.
func Render(src *SourceFile, p *Proposal) ([]byte, error) {
	if err := p.Validate(src.LineCount()); err != nil {
		return nil, err
	}

	if p.Kind == FullReplace {
		return bytes.Clone(p.Content), nil
	}
	return []byte(renderHunks(string(src.Content), p.Hunks)), nil
}

func renderHunks(content string, hunks []Hunk) string {
	lines := splitLines(content)
	eol := lineEnding(content)
	trailing := content == "" || strings.HasSuffix(content, "\n")

	var b strings.Builder
	b.Grow(len(content))

	next := 1
	for _, h := range hunks {
		for ; next < h.Start; next++ {
			b.WriteString(terminate(lines[next-1], eol))
		}
		b.WriteString(normalizeReplacement(h.Replacement, eol))
		next = h.End + 1
	}
	for ; next <= len(lines); next++ {
		b.WriteString(terminate(lines[next-1], eol))
	}

	out := b.String()
	if !trailing {
		out = strings.TrimSuffix(out, eol)
	}
	return out
}

// terminate keeps a line's own terminator and only adds one to the
// unterminated last line.
func terminate(line, eol string) string {
	if strings.HasSuffix(line, "\n") {
		return line
	}
	return line + eol
}

func normalizeReplacement(text, eol string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if eol != "\n" {
		text = strings.ReplaceAll(text, "\n", eol)
	}
	return text
}
