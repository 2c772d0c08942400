package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/iishyfishyy/tweak/internal/patch"
	"github.com/iishyfishyy/tweak/internal/session"
)

// ErrNoTTY is returned when review needs a terminal and none is attached.
var ErrNoTTY = errors.New("review needs an interactive terminal (use --yes to apply without prompting)")

// ReviewAction is one entry of the review menu.
type ReviewAction int

const (
	ActionApply ReviewAction = iota
	ActionDiscard
	ActionShow
	ActionCopy
)

var reviewOptions = []string{
	ActionApply:   "Apply changes",
	ActionDiscard: "Discard",
	ActionShow:    "Show proposed file",
	ActionCopy:    "Copy proposed file to clipboard",
}

// TerminalReviewer prints the diff and asks the user what to do with it.
type TerminalReviewer struct {
	Out     io.Writer
	Context int
	// AutoApply accepts after printing the diff.
	AutoApply bool

	isTTY  func() bool
	choose func(message string, options []string) (int, error)
	copy   func(text string) error
}

// NewTerminalReviewer creates a reviewer writing to stdout.
func NewTerminalReviewer(autoApply bool) *TerminalReviewer {
	return &TerminalReviewer{
		Out:       color.Output,
		Context:   DefaultContext,
		AutoApply: autoApply,
		isTTY: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
		choose: ShowMenu,
		copy:   clipboard.WriteAll,
	}
}

// Review implements session.Reviewer.
func (t *TerminalReviewer) Review(ctx context.Context, r *session.Review) (session.Decision, error) {
	name := filepath.Base(r.Source.Path)

	ShowSection(fmt.Sprintf("Proposed changes to %s (%s, %s)", name, r.Provider, r.Model))
	if r.Diff.Changed() {
		RenderDiff(t.Out, r.Diff, t.Context)
	} else {
		fmt.Fprintln(t.Out, "The proposal is identical to the current file.")
	}
	fmt.Fprintln(t.Out)

	if t.AutoApply {
		return session.Accept, nil
	}
	if !t.isTTY() {
		return session.Reject, ErrNoTTY
	}

	for {
		if err := ctx.Err(); err != nil {
			return session.Reject, err
		}

		choice, err := t.choose("What would you like to do?", reviewOptions)
		if err != nil {
			return session.Reject, err
		}

		switch ReviewAction(choice) {
		case ActionApply:
			return session.Accept, nil

		case ActionDiscard:
			return session.Reject, nil

		case ActionShow:
			content, err := patch.Render(r.Source, r.Proposal)
			if err != nil {
				return session.Reject, err
			}
			ShowSection(name + " (proposed)")
			fmt.Fprint(t.Out, string(content))
			if len(content) > 0 && content[len(content)-1] != '\n' {
				fmt.Fprintln(t.Out)
			}
			fmt.Fprintln(t.Out)

		case ActionCopy:
			content, err := patch.Render(r.Source, r.Proposal)
			if err != nil {
				return session.Reject, err
			}
			if err := t.copy(string(content)); err != nil {
				ShowError(fmt.Sprintf("Failed to copy to clipboard: %v", err))
			} else {
				ShowSuccess("Proposed file copied to clipboard!")
			}
		}
	}
}
