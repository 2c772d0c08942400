// Package parser turns a model's markdown reply into a patch.Proposal.
//
// Three fenced-block shapes are recognized: a whole-file block, blocks
// labeled "hunk START-END", and unified diffs. A non-empty whole-file block
// wins; otherwise every hunk found is collected, sorted and validated. Next to
// hunk or diff blocks, a plain block counts as the whole file only when it is
// labeled with the file's name.
package parser

import (
	"path/filepath"
	"strings"

	"github.com/iishyfishyy/tweak/internal/patch"
	"github.com/iishyfishyy/tweak/internal/provider"
)

// Parse extracts the edit in resp for src. It is deterministic and never
// returns an empty proposal.
func Parse(resp *provider.Response, src *patch.SourceFile) (*patch.Proposal, error) {
	if resp == nil || !resp.OK || strings.TrimSpace(resp.Text) == "" {
		return nil, unparseable("empty response")
	}

	blocks := extractBlocks([]byte(resp.Text))
	if len(blocks) == 0 {
		return nil, unparseable("no fenced code block in response")
	}

	base := filepath.Base(src.Path)
	if full, ok := pickFullFile(blocks, base, hasEdits(blocks, base)); ok {
		return patch.NewFullReplace([]byte(full.content)), nil
	}

	hunks, err := collectHunks(blocks, src)
	if err != nil {
		return nil, err
	}
	if len(hunks) == 0 {
		return nil, unparseable("code blocks were empty")
	}
	return patch.NewHunkSet(hunks, src.LineCount())
}

// pickFullFile chooses among whole-file candidates: blocks naming the target
// file first, then the longest, with the earliest winning ties. With
// namedOnly set, unnamed candidates are ignored.
func pickFullFile(blocks []block, base string, namedOnly bool) (block, bool) {
	var (
		best       block
		found      bool
		bestHinted bool
	)
	for _, b := range blocks {
		if !isFullFile(b, base) || strings.TrimSpace(b.content) == "" {
			continue
		}
		hinted := namesFile(b.info, base) || namesFile(b.hint, base)
		if namedOnly && !hinted {
			continue
		}
		switch {
		case !found:
		case hinted && !bestHinted:
		case hinted == bestHinted && len(b.content) > len(best.content):
		default:
			continue
		}
		best, found, bestHinted = b, true, hinted
	}
	return best, found
}

// isFullFile reports whether b is a whole-file candidate. Diff-labeled blocks
// count as whole files only when the target itself is a diff.
func isFullFile(b block, base string) bool {
	switch b.kind {
	case kindFile:
		return true
	case kindDiff:
		ext := strings.ToLower(filepath.Ext(base))
		return (ext == ".diff" || ext == ".patch") && !strings.Contains(b.content, "@@ -")
	default:
		return false
	}
}

// hasEdits reports whether any block is a hunk or a diff against the file.
func hasEdits(blocks []block, base string) bool {
	for _, b := range blocks {
		switch {
		case b.kind == kindHunk:
			return true
		case b.kind == kindDiff && !isFullFile(b, base) && len(parseUnifiedDiff(b.content)) > 0:
			return true
		}
	}
	return false
}

func collectHunks(blocks []block, src *patch.SourceFile) ([]patch.Hunk, error) {
	var (
		hunks     []patch.Hunk
		fileLines []string
	)
	for _, b := range blocks {
		switch b.kind {
		case kindHunk:
			h, err := parseHunkBlock(b)
			if err != nil {
				return nil, err
			}
			hunks = append(hunks, h)

		case kindDiff:
			if fileLines == nil {
				fileLines = src.Lines()
			}
			var converted []anchoredHunk
			for _, dh := range parseUnifiedDiff(b.content) {
				if !dh.hasChange() {
					continue
				}
				h, err := toHunk(dh, fileLines)
				if err != nil {
					return nil, err
				}
				converted = append(converted, h)
			}
			hunks = append(hunks, mergeAnchored(converted)...)
		}
	}
	return hunks, nil
}
