package state

import (
	"testing"

	"github.com/Deadly1ne/ChapBuddy/internal/chapters"

	"github.com/stretchr/testify/assert"
)

func chs(nums ...int) []chapters.Chapter {
	out := make([]chapters.Chapter, len(nums))
	for i, n := range nums {
		out[i] = chapters.Chapter{Number: n}
	}
	return out
}

func nums(in []chapters.Chapter) []int {
	out := make([]int, len(in))
	for i, ch := range in {
		out[i] = ch.Number
	}
	return out
}

func TestPendingTruncatesToEarliest(t *testing.T) {
	got := Pending(chs(4, 5, 6, 7, 8, 9), 3, 5)
	assert.Equal(t, []int{4, 5, 6, 7, 8}, nums(got))
}

func TestPendingSortsUnorderedListing(t *testing.T) {
	// listing pages often show newest first
	got := Pending(chs(9, 8, 7, 6, 5, 4), 3, 5)
	assert.Equal(t, []int{4, 5, 6, 7, 8}, nums(got))
}

func TestPendingSkipsProcessedAndToleratesGaps(t *testing.T) {
	got := Pending(chs(1, 2, 5, 9), 2, 5)
	assert.Equal(t, []int{5, 9}, nums(got))
}

func TestPendingEmpty(t *testing.T) {
	assert.Empty(t, Pending(chs(1, 2, 3), 3, 5))
	assert.Empty(t, Pending(nil, 0, 5))
}

func TestPendingZeroCapMeansUnbounded(t *testing.T) {
	got := Pending(chs(1, 2, 3, 4, 5, 6, 7), 0, 0)
	assert.Len(t, got, 7)
}

func TestFailedChapterStaysPendingNextRun(t *testing.T) {
	available := chs(4, 5, 6, 7, 8, 9)

	first := Pending(available, 3, 5)
	assert.Equal(t, []int{4, 5, 6, 7, 8}, nums(first))

	// chapter 4 succeeded, chapter 5 failed during upload: the mark stops at 4
	again := Pending(available, 4, 5)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, nums(again))
}
