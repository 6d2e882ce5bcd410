package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/yildizm/diagd/internal/report"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	logPath := writeTempFile(t, dir, "ds_agent.log",
		"2024-03-01 10:00:00.000000 [CRITICAL] AMSP engine crash detected\n"+
			"2024-03-01 10:00:01.000000 [INFO] scheduler started\n")
	outPath := filepath.Join(dir, "report.json")

	cmd := NewRootCommand("test", "", "")
	cmd.SetArgs([]string{"analyze", logPath, "-o", "json", "--output-file", outPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("analyze command failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}

	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if r.Processing.Status != report.StatusFull {
		t.Errorf("Processing status = %s", r.Processing.Status)
	}
	if len(r.Issues.MainIssues) == 0 {
		t.Error("Expected at least one issue in the report")
	}
}

func TestAnalyzeCommandWithDocs(t *testing.T) {
	dir := t.TempDir()
	logPath := writeTempFile(t, dir, "ds_agent.log",
		"2024-03-01 10:00:00.000000 [CRITICAL] AMSP engine crash detected\n")

	docsDir := filepath.Join(dir, "kb")
	if err := os.Mkdir(docsDir, 0o750); err != nil {
		t.Fatal(err)
	}
	writeTempFile(t, docsDir, "amsp.md", "# AMSP Guide\n## Crash recovery\nRestart the AMSP service.\n")

	outPath := filepath.Join(dir, "report.json")
	cmd := NewRootCommand("test", "", "")
	cmd.SetArgs([]string{"analyze", logPath, "--docs", docsDir, "-o", "json", "--output-file", outPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("analyze command failed: %v", err)
	}

	data, _ := os.ReadFile(outPath)
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if r.Knowledge.Status == report.StatusAbsent && r.Knowledge.Reason == "no knowledge directory configured" {
		t.Error("Knowledge base was configured but not wired through")
	}
}

func TestAnalyzeCommandMissingFile(t *testing.T) {
	cmd := NewRootCommand("test", "", "")
	cmd.SetArgs([]string{"analyze", "/nonexistent/never.log"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for missing input file")
	}
}

func TestDocsCommand(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "guide.md", "# Guide\n## Section\nContent.\n")

	cmd := NewRootCommand("test", "", "")
	cmd.SetArgs([]string{"docs", dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("docs command failed: %v", err)
	}
}
