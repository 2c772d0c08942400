package patch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHunkSet_SortsByStart(t *testing.T) {
	p, err := NewHunkSet([]Hunk{
		{Start: 5, End: 5, Replacement: "e"},
		{Start: 1, End: 2, Replacement: "ab"},
		{Start: 3, End: 3, Replacement: "c"},
	}, 5)
	require.NoError(t, err)

	starts := []int{}
	for _, h := range p.Hunks {
		starts = append(starts, h.Start)
	}
	assert.Equal(t, []int{1, 3, 5}, starts)
}

func TestNewHunkSet_DoesNotModifyInput(t *testing.T) {
	in := []Hunk{{Start: 3, End: 3}, {Start: 1, End: 1}}
	_, err := NewHunkSet(in, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, in[0].Start)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		hunks     []Hunk
		lineCount int
		wantErr   error
		wantLine  int
	}{
		{name: "single line", hunks: []Hunk{{Start: 2, End: 2}}, lineCount: 3},
		{name: "append at virtual end", hunks: []Hunk{{Start: 4, End: 4}}, lineCount: 3},
		{name: "range through virtual end", hunks: []Hunk{{Start: 3, End: 4}}, lineCount: 3},
		{name: "empty file append", hunks: []Hunk{{Start: 1, End: 1}}, lineCount: 0},
		{name: "adjacent hunks", hunks: []Hunk{{Start: 1, End: 1}, {Start: 2, End: 2}}, lineCount: 3},
		{name: "start zero", hunks: []Hunk{{Start: 0, End: 1}}, lineCount: 3, wantErr: ErrOutOfRange, wantLine: 0},
		{name: "start past end", hunks: []Hunk{{Start: 5, End: 5}}, lineCount: 3, wantErr: ErrOutOfRange, wantLine: 5},
		{name: "end past end", hunks: []Hunk{{Start: 2, End: 9}}, lineCount: 3, wantErr: ErrOutOfRange, wantLine: 9},
		{name: "end before start", hunks: []Hunk{{Start: 3, End: 2}}, lineCount: 3, wantErr: ErrOutOfRange, wantLine: 2},
		{name: "overlap", hunks: []Hunk{{Start: 1, End: 2}, {Start: 2, End: 3}}, lineCount: 3, wantErr: ErrOverlap},
		{name: "same line twice", hunks: []Hunk{{Start: 2, End: 2}, {Start: 2, End: 2}}, lineCount: 3, wantErr: ErrOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHunkSet(tt.hunks, tt.lineCount)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)

			var rangeErr *OutOfRangeError
			if errors.As(err, &rangeErr) {
				assert.Equal(t, tt.wantLine, rangeErr.Line)
			}
		})
	}
}

func TestValidate_EmptyHunkSet(t *testing.T) {
	p := &Proposal{Kind: HunkSet}
	assert.ErrorIs(t, p.Validate(3), ErrInvalidProposal)
}

func TestValidate_UnsortedRejected(t *testing.T) {
	p := &Proposal{Kind: HunkSet, Hunks: []Hunk{{Start: 3, End: 3}, {Start: 1, End: 1}}}
	assert.ErrorIs(t, p.Validate(3), ErrInvalidProposal)
}
