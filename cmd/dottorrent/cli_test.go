package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prxssh/dottorrent/internal/metafile"
)

func TestParseProtocol(t *testing.T) {
	cases := map[string]metafile.Protocol{
		"v1":     metafile.ProtocolV1,
		"V1":     metafile.ProtocolV1,
		"v2":     metafile.ProtocolV2,
		"hybrid": metafile.ProtocolHybrid,
		"Hybrid": metafile.ProtocolHybrid,
	}
	for in, want := range cases {
		got, err := parseProtocol(in)
		if err != nil {
			t.Fatalf("parseProtocol(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("parseProtocol(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := parseProtocol("bogus"); err == nil {
		t.Fatal("expected error for unknown protocol")
	}
}

func TestParseChecksums(t *testing.T) {
	got, err := parseChecksums([]string{"sha256", "MD5"})
	if err != nil {
		t.Fatalf("parseChecksums error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d algorithms, want 2", len(got))
	}

	if _, err := parseChecksums([]string{"crc32"}); err == nil {
		t.Fatal("expected error for unsupported checksum algorithm")
	}
}

func TestExcluded(t *testing.T) {
	patterns := []string{"*.log", "tmp/**"}

	if !excluded("debug.log", patterns) {
		t.Error("debug.log should match *.log")
	}
	if !excluded("tmp/a/b.txt", patterns) {
		t.Error("tmp/a/b.txt should match tmp/**")
	}
	if excluded("keep.txt", patterns) {
		t.Error("keep.txt should not be excluded")
	}
}

func TestBuildStorageSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error = %v", err)
	}

	storage, err := buildStorage(path, info)
	if err != nil {
		t.Fatalf("buildStorage error = %v", err)
	}
	if len(storage.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(storage.Files))
	}
	if storage.Files[0].PathString() != "payload.bin" {
		t.Errorf("path = %q, want payload.bin", storage.Files[0].PathString())
	}
}

func TestBuildStorageDirectoryExcludesAndSorts(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "b.txt", "b")
	mustWrite(t, dir, "a.txt", "a")
	mustWrite(t, dir, "skip.tmp", "x")

	createExclude = []string{"*.tmp"}
	defer func() { createExclude = nil }()

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Stat error = %v", err)
	}
	storage, err := buildStorage(dir, info)
	if err != nil {
		t.Fatalf("buildStorage error = %v", err)
	}
	if len(storage.Files) != 2 {
		t.Fatalf("got %d files, want 2: %+v", len(storage.Files), storage.Files)
	}
	if storage.Files[0].PathString() != "a.txt" || storage.Files[1].PathString() != "b.txt" {
		t.Errorf("files not sorted: %q, %q", storage.Files[0].PathString(), storage.Files[1].PathString())
	}
}

func TestFieldValue(t *testing.T) {
	mf := metafile.New("/tmp/example")
	mf.Name = "example"
	mf.Comment = "a comment"
	mf.Private = true

	got, err := fieldValue(mf, "name")
	if err != nil || got != "example" {
		t.Errorf("fieldValue(name) = %q, %v", got, err)
	}
	got, err = fieldValue(mf, "private")
	if err != nil || got != "true" {
		t.Errorf("fieldValue(private) = %q, %v", got, err)
	}
	if _, err := fieldValue(mf, "nonsense"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func mustWrite(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
}
