package fetch

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/deploymetrics/harness-export/internal/testutil"
)

func TestFetchProject_WithinLimitNoSplit(t *testing.T) {
	mock := testutil.NewMockHarness()
	defer mock.Close()

	exec := testutil.ExecutionJSON("deploy", "pipe", "plan1", 1000, 2000,
		"Production", "prod", "svc", "Success")
	mock.SetExecutionHandler(func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, testutil.ExecutionPageBody(1, 1, exec))
	})

	f := newTestFetcher(t, mock, DefaultOptions())

	records, err := f.FetchProject(context.Background(), "proj1", Window{Start: 0, End: 1000})
	if err != nil {
		t.Fatalf("FetchProject: %v", err)
	}

	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}

	// One probe, which doubles as page 0: no extra fetch, no double count.
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1 (probe page reused)", mock.GetRequestCount())
	}
}

func TestFetchProject_SplitsLargeRange(t *testing.T) {
	mock := testutil.NewMockHarness()
	defer mock.Close()

	start := int64(1735689600000)
	full := Window{Start: start, End: start + 90*dayMs - 1}

	// The full window reports 15000 matching executions; every sub-window
	// reports one page with one qualifying execution.
	mock.SetExecutionHandler(func(w http.ResponseWriter, r *http.Request) {
		req := parseWindow(r)
		if req == full {
			testutil.WriteJSON(w, testutil.ExecutionPageBody(300, 15000))
			return
		}
		exec := testutil.ExecutionJSON(
			fmt.Sprintf("deploy-%d", req.Start), "pipe", fmt.Sprintf("plan-%d", req.Start),
			req.Start, req.Start+1000, "Production", "prod", "svc", "Success")
		testutil.WriteJSON(w, testutil.ExecutionPageBody(1, 1, exec))
	})

	f := newTestFetcher(t, mock, DefaultOptions())

	records, err := f.FetchProject(context.Background(), "proj1", full)
	if err != nil {
		t.Fatalf("FetchProject: %v", err)
	}

	// 90 days at 10-day width is exactly 9 sub-windows, one record each.
	if len(records) != 9 {
		t.Fatalf("records = %d, want 9", len(records))
	}

	var subWindows []Window
	for _, req := range mock.GetExecutionRequests() {
		w := Window{Start: req.StartTime, End: req.EndTime}
		if w != full {
			subWindows = append(subWindows, w)
		}
	}

	if len(subWindows) != 9 {
		t.Fatalf("sub-window fetches = %d, want 9", len(subWindows))
	}

	// Chronological, contiguous coverage of the full window.
	if subWindows[0].Start != full.Start {
		t.Errorf("first sub-window start = %d, want %d", subWindows[0].Start, full.Start)
	}
	if subWindows[len(subWindows)-1].End != full.End {
		t.Errorf("last sub-window end = %d, want %d", subWindows[len(subWindows)-1].End, full.End)
	}
	for i := 1; i < len(subWindows); i++ {
		if subWindows[i-1].End+1 != subWindows[i].Start {
			t.Errorf("sub-windows %d and %d not contiguous: %d+1 != %d",
				i-1, i, subWindows[i-1].End, subWindows[i].Start)
		}
	}

	// Output is concatenated in chronological window order.
	for i, r := range records {
		want := fmt.Sprintf("deploy-%d", subWindows[i].Start)
		if r.Pipeline != want {
			t.Errorf("records[%d].Pipeline = %q, want %q", i, r.Pipeline, want)
		}
	}
}

func TestFetchProject_SplitTransparentRecordCount(t *testing.T) {
	mock := testutil.NewMockHarness()
	defer mock.Close()

	start := int64(1735689600000)
	threshold := 10

	// Small-threshold variant of the completeness property: the same
	// per-sub-window data must surface fully whether or not a split
	// happens.
	opts := DefaultOptions()
	opts.SplitThreshold = threshold

	full := Window{Start: start, End: start + 30*dayMs - 1}

	mock.SetExecutionHandler(func(w http.ResponseWriter, r *http.Request) {
		req := parseWindow(r)
		if req == full {
			testutil.WriteJSON(w, testutil.ExecutionPageBody(1, threshold+1))
			return
		}
		execs := []string{
			testutil.ExecutionJSON(fmt.Sprintf("a-%d", req.Start), "pipe", "p1", req.Start, req.Start+1, "Production", "prod", "svc", "Success"),
			testutil.ExecutionJSON(fmt.Sprintf("b-%d", req.Start), "pipe", "p2", req.Start, req.Start+1, "Production", "prod", "svc", "Success"),
		}
		testutil.WriteJSON(w, testutil.ExecutionPageBody(1, 2, execs...))
	})

	f := newTestFetcher(t, mock, opts)

	records, err := f.FetchProject(context.Background(), "proj1", full)
	if err != nil {
		t.Fatalf("FetchProject: %v", err)
	}

	// 3 sub-windows times 2 records.
	if len(records) != 6 {
		t.Errorf("records = %d, want 6 (splitting must be transparent)", len(records))
	}
}

// parseWindow reads the request window out of an execution-summary request
// already recorded by the mock, matching on the live request body.
func parseWindow(r *http.Request) Window {
	req := testutil.ParseExecutionRequest(r)
	return Window{Start: req.StartTime, End: req.EndTime}
}
