package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSONFile(t *testing.T) {
	rep := ReplayReport{Pcap: "a.pcap", Sent: 3, Failed: 1, State: "done", Token: "aabbccdd"}
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteJSONFile(path, rep); err != nil {
		t.Fatalf("WriteJSONFile error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if decoded["session_token"] != "aabbccdd" || decoded["sent"] != float64(3) {
		t.Errorf("decoded = %v", decoded)
	}
	if _, ok := decoded["error"]; ok {
		t.Error("empty error should be omitted")
	}
}

func TestWriteJSONFileBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "report.json")
	if err := WriteJSONFile(path, ReplayReport{}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
