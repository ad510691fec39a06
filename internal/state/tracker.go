package state

import "github.com/Deadly1ne/ChapBuddy/internal/chapters"

// Pending selects the chapters that still need processing: everything
// strictly past the high-water mark, in ascending order, truncated to the
// earliest maxPerRun entries. Truncated chapters are deferred, not dropped;
// the mark only moves through chapters actually completed, so the next
// invocation picks them up.
func Pending(available []chapters.Chapter, lastProcessed, maxPerRun int) []chapters.Chapter {
	var out []chapters.Chapter
	for _, ch := range available {
		if ch.Number > lastProcessed {
			out = append(out, ch)
		}
	}

	chapters.SortAscending(out)

	if maxPerRun > 0 && len(out) > maxPerRun {
		out = out[:maxPerRun]
	}

	return out
}
