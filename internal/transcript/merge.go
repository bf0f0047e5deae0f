package transcript

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrResultsOutOfOrder indicates the caller handed Merge results whose
// window indices do not match their positions. This is a contract
// violation, not a data-quality issue.
var ErrResultsOutOfOrder = errors.New("window results out of order")

// Merge stitches ordered per-window results into one absolute-timestamped
// timeline. Window-relative timestamps are shifted by the window's start.
// For any region two adjacent windows both cover, the later window is
// authoritative: it has more leading context and may re-emit the context
// lines it was primed with, so the earlier window contributes only lines
// strictly before the later window's start. Identical-timestamp ties go
// to the later window by the same rule. Speaker labels pass through
// verbatim.
func Merge(results []WindowResult) ([]MergedLine, error) {
	for i, r := range results {
		if r.Window.Index != i {
			return nil, fmt.Errorf("%w: result at position %d has window index %d", ErrResultsOutOfOrder, i, r.Window.Index)
		}
	}

	var merged []MergedLine
	for i, r := range results {
		cut := time.Duration(-1)
		if i+1 < len(results) {
			cut = results[i+1].Window.Start
		}

		kept := make([]MergedLine, 0, len(r.Lines))
		for _, line := range r.Lines {
			abs := r.Window.Start + line.Timestamp
			if cut >= 0 && abs >= cut {
				continue
			}
			kept = append(kept, MergedLine{
				Timestamp: abs,
				Speaker:   line.Speaker,
				Text:      line.Text,
			})
		}

		// The model usually emits lines in order, but the merged
		// timeline must be non-decreasing regardless.
		sort.SliceStable(kept, func(a, b int) bool {
			return kept[a].Timestamp < kept[b].Timestamp
		})

		for _, line := range kept {
			if isDuplicate(merged, line) {
				continue
			}
			merged = append(merged, line)
		}
	}
	return merged, nil
}

// isDuplicate reports whether an identical (timestamp, speaker, text)
// entry is already on the timeline. Equal timestamps are adjacent in
// merged, so only the tail needs checking.
func isDuplicate(merged []MergedLine, line MergedLine) bool {
	for i := len(merged) - 1; i >= 0; i-- {
		if merged[i].Timestamp != line.Timestamp {
			return false
		}
		if merged[i] == line {
			return true
		}
	}
	return false
}
