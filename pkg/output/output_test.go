package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sdejongh/duopane/pkg/models"
)

func init() {
	color.NoColor = true
}

func TestNew(t *testing.T) {
	tests := []struct {
		format   string
		progress bool
		want     string
	}{
		{"json", true, "json"},
		{"human", true, "progress"},
		{"human", false, "human"},
	}

	for _, tt := range tests {
		if got := New(tt.format, tt.progress).Name(); got != tt.want {
			t.Errorf("New(%q, %v).Name() = %q, want %q", tt.format, tt.progress, got, tt.want)
		}
	}
}

func TestConversions(t *testing.T) {
	op := FromOperation(models.OperationProgress{
		CurrentItem: "a.txt",
		ItemsDone:   2,
		ItemsTotal:  4,
		BytesDone:   10,
		BytesTotal:  40,
	})
	if op.CurrentItem != "a.txt" || op.ItemsDone != 2 || op.BytesTotal != 40 {
		t.Errorf("FromOperation() = %+v", op)
	}

	ar := FromArchive(models.ArchiveProgressEvent{
		CurrentFile:    "dir/b.txt",
		FilesCompleted: 3,
		TotalFiles:     5,
		BytesProcessed: 7,
		TotalBytes:     9,
		ItemsFailed:    1,
	})
	if ar.CurrentItem != "dir/b.txt" || ar.ItemsDone != 3 || ar.ItemsFailed != 1 || ar.BytesDone != 7 {
		t.Errorf("FromArchive() = %+v", ar)
	}

	report := ReportFromArchive("Archive extract", models.ArchiveSummary{
		TotalFiles:     3,
		ItemsProcessed: 3,
		ItemsFailed:    1,
		Errors:         []string{"x: boom"},
	}, time.Second)
	if report.Succeeded != 2 || report.Failed != 1 || !strings.HasPrefix(report.Message, "Archive extract completed with errors") {
		t.Errorf("ReportFromArchive() = %+v", report)
	}
}

func TestHumanFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()

	if err := f.Start(&buf, "Copy", 2, 2048); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.Progress(ProgressUpdate{CurrentItem: "a.txt", ItemsDone: 1, ItemsTotal: 2})
	f.Progress(ProgressUpdate{CurrentItem: "a.txt", ItemsDone: 1, ItemsTotal: 2})
	f.Progress(ProgressUpdate{CurrentItem: "b.txt", ItemsDone: 2, ItemsTotal: 2, ItemsFailed: 1})
	f.Complete(ReportFromOperation(models.OperationResult{
		Kind:      models.OpCopy,
		Succeeded: 1,
		Failed:    1,
		Total:     2,
		Errors:    []string{"b.txt: permission denied"},
	}, 0))

	out := buf.String()
	for _, want := range []string{
		"Copy: 2 items, 2.0 KiB total",
		"[1/2] ✓ a.txt",
		"[2/2] ✗ b.txt",
		"Copy completed with errors.",
		"b.txt: permission denied",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "a.txt") != 1 {
		t.Errorf("repeated updates should print once:\n%s", out)
	}
}

func TestHumanEntriesAndConflicts(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()

	f.Entries(&buf, []models.ArchiveEntry{
		{Path: "docs", IsDir: true},
		{Path: "docs/readme.md", Size: 1536},
	}, true)
	f.Conflicts(&buf, []string{"docs/readme.md"})
	f.Conflicts(&buf, nil)

	out := buf.String()
	for _, want := range []string{"docs/\n", "1.5 KiB  docs/readme.md", "2 entries", "listing truncated", "1 conflict", "no conflicts"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()
	f.Start(&buf, "Move", 3, 0)
	f.Progress(ProgressUpdate{ItemsDone: 1})
	f.Complete(ReportFromOperation(models.OperationResult{Kind: models.OpMove, Succeeded: 1, Total: 3, Cancelled: true}, 1500*time.Millisecond))

	var data JSONReportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("output is not a single JSON document: %v\n%s", err, buf.String())
	}
	if data.Status != "cancelled" || data.Message != "Move cancelled (1/3)" || data.DurationMs != 1500 {
		t.Errorf("report = %+v", data)
	}
}

func TestJSONListingAndErrors(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()
	f.Start(&buf, "List", 0, 0)

	f.Entries(&buf, []models.ArchiveEntry{{Path: "a.txt", Size: 3}}, false)
	var listing JSONListingData
	if err := json.Unmarshal(buf.Bytes(), &listing); err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(listing.Entries) != 1 || listing.Entries[0].Path != "a.txt" {
		t.Errorf("listing = %+v", listing)
	}

	buf.Reset()
	f.Conflicts(&buf, nil)
	if !strings.Contains(buf.String(), `"conflicts": []`) {
		t.Errorf("empty conflicts should encode as an array: %s", buf.String())
	}

	buf.Reset()
	f.Error(errors.New("wrong password"))
	var e JSONErrorData
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil || e.Error != "wrong password" {
		t.Errorf("error document = %s", buf.String())
	}
}

func TestProgressFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter()

	if err := f.Start(&buf, "Archive create", 2, 100); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.Progress(ProgressUpdate{CurrentItem: strings.Repeat("long/", 40) + "file.bin", ItemsDone: 1, ItemsTotal: 2, BytesDone: 50, BytesTotal: 100})
	f.Progress(ProgressUpdate{ItemsDone: 2, ItemsTotal: 2, BytesDone: 100, BytesTotal: 100})
	f.Complete(Report{Operation: "Archive create", Message: "Archive create completed: 2 items"})

	out := buf.String()
	if !strings.Contains(out, "Archive create completed: 2 items") {
		t.Errorf("summary missing:\n%s", out)
	}
	if !strings.Contains(out, "100%") {
		t.Errorf("bar should reach 100%%:\n%s", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
