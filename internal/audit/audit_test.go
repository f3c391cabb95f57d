package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestLogWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	if err := Init(path, false, 0); err != nil {
		t.Fatal(err)
	}
	defer Reset()

	entries := []Entry{
		{Hook: "pre-commit", ReposPath: "/repo", Txn: "42-a", RuleFile: "pre-commit.xml", ExitCode: 0},
		{Hook: "pre-commit", ReposPath: "/repo", Txn: "43-b", RuleFile: "pre-commit.xml", ExitCode: 1, ClientMessage: "rejected"},
	}
	for _, e := range entries {
		if err := Log(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var got []Entry
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad JSON line %q: %v", scanner.Text(), err)
		}
		got = append(got, e)
	}

	if len(got) != 2 {
		t.Fatalf("read %d entries, want 2", len(got))
	}
	for i, e := range got {
		if e.Version != Version {
			t.Errorf("entry %d version = %d, want %d", i, e.Version, Version)
		}
		if e.Timestamp == "" {
			t.Errorf("entry %d has no timestamp", i)
		}
	}
	if got[1].ExitCode != 1 || got[1].ClientMessage != "rejected" {
		t.Errorf("second entry = %+v", got[1])
	}
}

func TestLogDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	if err := Init(path, true, 0); err != nil {
		t.Fatal(err)
	}
	defer Reset()

	if IsEnabled() {
		t.Error("audit should be disabled")
	}
	if err := Log(Entry{Hook: "pre-commit"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("disabled audit log still created the file")
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	old := strings.Repeat(`{"version":1,"hook":"pre-commit"}`+"\n", 100)
	if err := os.WriteFile(path, []byte(old), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Init(path, false, 64); err != nil {
		t.Fatal(err)
	}
	defer Reset()
	if err := Log(Entry{Hook: "post-commit", ReposPath: "/repo"}); err != nil {
		t.Fatal(err)
	}
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	// The oversized log was archived and the live file restarted.
	gz, err := os.Open(path + ".1.gz")
	if err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	defer gz.Close()
	zr, err := gzip.NewReader(gz)
	if err != nil {
		t.Fatal(err)
	}
	archived, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(archived, []byte(old)) {
		t.Error("archive does not match rotated content")
	}

	live, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(live), `"post-commit"`) {
		t.Errorf("live log = %q", live)
	}
	if strings.Contains(string(live), `"pre-commit"`) {
		t.Error("live log still contains rotated entries")
	}
}

func TestRotationBelowThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	if err := os.WriteFile(path, []byte("small\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Init(path, false, 1<<20); err != nil {
		t.Fatal(err)
	}
	defer Reset()

	if _, err := os.Stat(path + ".1.gz"); !os.IsNotExist(err) {
		t.Error("undersized log was rotated")
	}
}
