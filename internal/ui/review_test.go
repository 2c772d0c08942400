package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iishyfishyy/tweak/internal/patch"
	"github.com/iishyfishyy/tweak/internal/session"
)

func testReview(t *testing.T) *session.Review {
	t.Helper()
	src := patch.NewSourceFile("/tmp/main.go", []byte("a\nb\nc\n"))
	p, err := patch.NewHunkSet([]patch.Hunk{{Start: 2, End: 2, Replacement: "B\n"}}, src.LineCount())
	require.NoError(t, err)
	diff, err := patch.Diff(src, p)
	require.NoError(t, err)
	return &session.Review{Source: src, Proposal: p, Diff: diff, Provider: "hyperbolic", Model: "m"}
}

// scripted returns a reviewer that answers the menu from choices in order.
func scripted(out *bytes.Buffer, choices ...int) (*TerminalReviewer, *[]string) {
	var copied []string
	r := &TerminalReviewer{
		Out:     out,
		Context: DefaultContext,
		isTTY:   func() bool { return true },
		copy: func(text string) error {
			copied = append(copied, text)
			return nil
		},
	}
	r.choose = func(string, []string) (int, error) {
		if len(choices) == 0 {
			return -1, errors.New("no more answers")
		}
		c := choices[0]
		choices = choices[1:]
		return c, nil
	}
	return r, &copied
}

func TestTerminalReviewer_Apply(t *testing.T) {
	var out bytes.Buffer
	r, _ := scripted(&out, int(ActionApply))

	d, err := r.Review(context.Background(), testReview(t))
	require.NoError(t, err)
	assert.Equal(t, session.Accept, d)
	assert.Contains(t, out.String(), "+ B\n")
}

func TestTerminalReviewer_ShowAndCopyThenDiscard(t *testing.T) {
	var out bytes.Buffer
	r, copied := scripted(&out, int(ActionShow), int(ActionCopy), int(ActionDiscard))

	d, err := r.Review(context.Background(), testReview(t))
	require.NoError(t, err)
	assert.Equal(t, session.Reject, d)
	assert.Equal(t, []string{"a\nB\nc\n"}, *copied)
	assert.Contains(t, out.String(), "a\nB\nc\n")
}

func TestTerminalReviewer_Interrupt(t *testing.T) {
	var out bytes.Buffer
	r, _ := scripted(&out)
	r.choose = func(string, []string) (int, error) { return -1, ErrInterrupted }

	_, err := r.Review(context.Background(), testReview(t))
	require.ErrorIs(t, err, session.ErrInterrupted)
}

func TestTerminalReviewer_AutoApplySkipsPrompt(t *testing.T) {
	var out bytes.Buffer
	r, _ := scripted(&out)
	r.AutoApply = true
	r.isTTY = func() bool { return false }

	d, err := r.Review(context.Background(), testReview(t))
	require.NoError(t, err)
	assert.Equal(t, session.Accept, d)
	assert.Contains(t, out.String(), "- b\n")
}

func TestTerminalReviewer_NeedsTTY(t *testing.T) {
	var out bytes.Buffer
	r, _ := scripted(&out, int(ActionApply))
	r.isTTY = func() bool { return false }

	d, err := r.Review(context.Background(), testReview(t))
	require.ErrorIs(t, err, ErrNoTTY)
	assert.Equal(t, session.Reject, d)
}

func TestTerminalReviewer_CanceledContext(t *testing.T) {
	var out bytes.Buffer
	r, _ := scripted(&out, int(ActionApply))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Review(ctx, testReview(t))
	require.ErrorIs(t, err, context.Canceled)
}
