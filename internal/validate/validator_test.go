package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"main.go":    "go",
		"script.py":  "python",
		"app.ts":     "typescript",
		"data.json":  "json",
		"README.md":  "",
	}
	for path, want := range cases {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestValidateFileGoSyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "broken.go", "package main\n\nfunc main( {\n")

	v := New()
	result, err := v.ValidateFile(context.Background(), path, "")
	if err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected invalid result for broken Go source")
	}
}

func TestValidateFileGoValid(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "ok.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")

	v := New()
	result, err := v.ValidateFile(context.Background(), path, "")
	if err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid result, got errors=%v issues=%v", result.Errors, result.Issues)
	}
}

func TestValidateFileJSONInvalid(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "bad.json", "{\"a\": }")

	v := New()
	result, err := v.ValidateFile(context.Background(), path, "")
	if err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected invalid result for malformed JSON")
	}
}

func TestCheckCompletenessFlagsStubAndUnbalanced(t *testing.T) {
	issues := CheckCompleteness("func main() {\n  // TODO\n", "go")
	if len(issues) == 0 {
		t.Fatalf("expected at least one completeness issue")
	}

	found := map[CompletenessIssue]bool{}
	for _, i := range issues {
		found[i] = true
	}
	if !found[IssueUnbalancedDelimiters] {
		t.Errorf("expected unbalanced delimiters to be flagged")
	}
	if !found[IssueStubPattern] {
		t.Errorf("expected stub pattern to be flagged")
	}
}

func TestDetectTestFrameworkGoModule(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "go.mod", "module example\n")

	fw := DetectTestFramework(dir)
	if fw == nil || fw.Name != "go test" {
		t.Fatalf("expected go test framework, got %+v", fw)
	}
}

func TestDetectTestFrameworkNone(t *testing.T) {
	dir := t.TempDir()
	if fw := DetectTestFramework(dir); fw != nil {
		t.Fatalf("expected nil framework, got %+v", fw)
	}
}
