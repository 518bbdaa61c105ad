package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatcherBasics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gittyignore")
	content := "*.log\n/build/\n!important.log\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cases := []struct {
		relPath string
		isDir   bool
		want    bool
	}{
		{"debug.log", false, true},
		{"important.log", false, false},
		{"build", true, true},
		{"build", false, false}, // dirOnly rule shouldn't match a file named build
		{"src/main.go", false, false},
	}
	for _, c := range cases {
		got := m.ShouldSkip(c.relPath, c.isDir)
		if got != c.want {
			t.Errorf("ShouldSkip(%q, isDir=%v) = %v, want %v", c.relPath, c.isDir, got, c.want)
		}
	}
}

func TestMissingGittyignoreIsEmptyMatcher(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), ".gittyignore"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.ShouldSkip("anything", false) {
		t.Fatalf("expected no rules to skip anything")
	}
}
