package runner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pricelens/pricelens/internal/stats"
)

func TestWriteResults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.json")

	results := []Result{
		{URL: "https://a.example.com", Success: true, ScreenshotPath: "a.png", DurationMs: 1200, Timestamp: time.Now()},
		{URL: "https://b.example.com", Success: false, Error: "navigate: timeout", Timestamp: time.Now()},
	}

	domains := map[string]stats.DomainStats{
		"a.example.com": {Attempts: 1, Captures: 1},
		"b.example.com": {Attempts: 1, Failures: 1},
	}
	if err := WriteResults(path, results, domains); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Read results file: %v", err)
	}

	var rep report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("Unmarshal results: %v", err)
	}
	if rep.Total != 2 || rep.Succeeded != 1 || rep.Failed != 1 {
		t.Errorf("Counts = %d/%d/%d, want 2/1/1", rep.Total, rep.Succeeded, rep.Failed)
	}
	if rep.Results[1].Error != "navigate: timeout" {
		t.Errorf("Error field = %q", rep.Results[1].Error)
	}
	if got := rep.Domains["a.example.com"].Captures; got != 1 {
		t.Errorf("Domain captures = %d, want 1", got)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temp file left behind after successful write")
	}
}

func TestWriteResultsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	if err := WriteResults(path, nil, nil); err != nil {
		t.Fatalf("WriteResults(nil) error = %v", err)
	}

	data, _ := os.ReadFile(path)
	var rep report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rep.Total != 0 {
		t.Errorf("Total = %d, want 0", rep.Total)
	}
}
