package fetch

import (
	"fmt"
	"time"

	"github.com/deploymetrics/harness-export/pkg/extract"
)

// Window is a closed time interval [Start, End] in epoch milliseconds.
type Window struct {
	Start int64
	End   int64
}

// Validate checks the interval invariant.
func (w Window) Validate() error {
	if w.Start > w.End {
		return fmt.Errorf("invalid window: start %d after end %d", w.Start, w.End)
	}
	return nil
}

// String renders the window bounds as UTC timestamps for logging.
func (w Window) String() string {
	return fmt.Sprintf("%s to %s", extract.FormatTimestamp(w.Start), extract.FormatTimestamp(w.End))
}

// Split partitions the window into consecutive closed sub-windows of the
// given width. Sub-windows are contiguous and non-overlapping: each one
// ends one millisecond before the next starts, the first starts at w.Start
// and the last ends at w.End.
func (w Window) Split(width time.Duration) []Window {
	widthMs := width.Milliseconds()
	if widthMs <= 0 {
		return []Window{w}
	}

	var windows []Window
	cursor := w.Start
	for cursor <= w.End {
		end := cursor + widthMs - 1
		if end > w.End {
			end = w.End
		}
		windows = append(windows, Window{Start: cursor, End: end})
		cursor = end + 1
	}

	return windows
}
