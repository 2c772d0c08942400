package session

import (
	"path/filepath"
	"strings"

	"github.com/iishyfishyy/tweak/internal/patch"
	"github.com/iishyfishyy/tweak/internal/provider"
)

// SystemPrompt asks for output the parser understands.
const SystemPrompt = `You are an assistant helping a developer edit a single source file. Follow the instructions carefully.

Reply with the edit in one of these forms and nothing else:
1. The complete updated file in a single fenced code block whose info string is the file name.
2. For changes to part of the file, a unified diff in a fenced "diff" block with "@@ -a,b +c,d @@" headers and at least one unchanged context line around each change. Context lines must match the file exactly.
3. Only if you are certain of the line numbers, one fenced block per changed region labeled "hunk START-END", where START and END are 1-based inclusive line numbers of the original file and the block holds the replacement lines. An empty block deletes the lines. Use START = END = one past the last line to append.

Prefer form 2 over form 3. The file is sent without line numbers; diff context is matched against the file, hunk line numbers are used as given.
Do not add explanations inside code blocks.`

// buildRequest assembles the completion request for src.
// The model is filled in once the route is known.
func buildRequest(src *patch.SourceFile, instruction string) provider.Request {
	return provider.Request{
		SystemPrompt: SystemPrompt,
		UserPrompt:   strings.TrimSpace(instruction),
		FileContent:  fenceFile(src),
	}
}

// fenceFile wraps the file in a fence longer than any backtick run inside it.
func fenceFile(src *patch.SourceFile) string {
	content := string(src.Content)
	fence := strings.Repeat("`", max(3, longestRun(content, '`')+1))

	var b strings.Builder
	b.Grow(len(content) + 2*len(fence) + 64)
	b.WriteString("File: ")
	b.WriteString(filepath.Base(src.Path))
	b.WriteString(" (")
	b.WriteString(plural(src.LineCount(), "line"))
	b.WriteString(")\n")
	b.WriteString(fence)
	b.WriteString(filepath.Base(src.Path))
	b.WriteByte('\n')
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteByte('\n')
	return b.String()
}

func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}
