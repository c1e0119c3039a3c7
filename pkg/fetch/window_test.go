package fetch

import (
	"testing"
	"time"
)

const dayMs = int64(24 * 60 * 60 * 1000)

func TestWindow_Validate(t *testing.T) {
	if err := (Window{Start: 100, End: 100}).Validate(); err != nil {
		t.Errorf("single-millisecond window should be valid: %v", err)
	}
	if err := (Window{Start: 200, End: 100}).Validate(); err == nil {
		t.Error("inverted window should fail validation")
	}
}

func TestWindow_Split_Contiguity(t *testing.T) {
	tests := []struct {
		name      string
		window    Window
		width     time.Duration
		wantCount int
	}{
		{
			name:      "90 days into 10-day windows",
			window:    Window{Start: 1735689600000, End: 1735689600000 + 90*dayMs - 1},
			width:     10 * 24 * time.Hour,
			wantCount: 9,
		},
		{
			name:      "uneven remainder gets a short tail window",
			window:    Window{Start: 0, End: 25*dayMs - 1},
			width:     10 * 24 * time.Hour,
			wantCount: 3,
		},
		{
			name:      "window smaller than width",
			window:    Window{Start: 5000, End: 9000},
			width:     10 * 24 * time.Hour,
			wantCount: 1,
		},
		{
			name:      "single millisecond",
			window:    Window{Start: 42, End: 42},
			width:     10 * 24 * time.Hour,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := tt.window.Split(tt.width)

			if len(subs) != tt.wantCount {
				t.Fatalf("sub-windows = %d, want %d", len(subs), tt.wantCount)
			}

			if subs[0].Start != tt.window.Start {
				t.Errorf("first start = %d, want %d", subs[0].Start, tt.window.Start)
			}
			if subs[len(subs)-1].End != tt.window.End {
				t.Errorf("last end = %d, want %d", subs[len(subs)-1].End, tt.window.End)
			}

			for i, sub := range subs {
				if err := sub.Validate(); err != nil {
					t.Errorf("sub-window %d invalid: %v", i, err)
				}
				if i > 0 && subs[i-1].End+1 != sub.Start {
					t.Errorf("gap between sub-window %d and %d: %d+1 != %d",
						i-1, i, subs[i-1].End, sub.Start)
				}
			}
		})
	}
}

func TestWindow_Split_ExactWidths(t *testing.T) {
	w := Window{Start: 0, End: 30*dayMs - 1}
	subs := w.Split(10 * 24 * time.Hour)

	for i, sub := range subs {
		width := sub.End - sub.Start + 1
		if width != 10*dayMs {
			t.Errorf("sub-window %d width = %d ms, want %d", i, width, 10*dayMs)
		}
	}
}

func TestWindow_Split_ZeroWidthReturnsWhole(t *testing.T) {
	w := Window{Start: 10, End: 20}
	subs := w.Split(0)
	if len(subs) != 1 || subs[0] != w {
		t.Errorf("Split(0) = %v, want [%v]", subs, w)
	}
}
