package metafile

import (
	"testing"

	"github.com/prxssh/dottorrent/internal/digest"
)

// TestInfohashV1SingleFile covers S3: a single-file torrent named
// "hello.txt" holding "hello" with one 16 KiB piece.
func TestInfohashV1SingleFile(t *testing.T) {
	m := New("")
	m.Name = "hello.txt"
	must(t, m.Storage.AddFile(&FileEntry{Path: []string{"hello.txt"}, Size: 5}))
	must(t, m.Storage.SetPieceSize(16*1024))
	m.Storage.AllocatePieces()
	if m.Storage.PieceCount() != 1 {
		t.Fatalf("got piece count %d, want 1", m.Storage.PieceCount())
	}
	must(t, m.Storage.SetPieceHash(0, digest.SumHash1([]byte("hello"))))

	hash, err := m.InfohashV1()
	if err != nil {
		t.Fatalf("InfohashV1 error = %v", err)
	}
	if hash.IsZero() {
		t.Fatal("expected a non-zero infohash")
	}
}

// TestInfohashV1Stability covers property 8: infohash survives an
// encode/parse round trip.
func TestInfohashV1Stability(t *testing.T) {
	m := New("")
	m.Name = "hello.txt"
	must(t, m.Storage.AddFile(&FileEntry{Path: []string{"hello.txt"}, Size: 5}))
	must(t, m.Storage.SetPieceSize(16*1024))
	m.Storage.AllocatePieces()
	must(t, m.Storage.SetPieceHash(0, digest.SumHash1([]byte("hello"))))
	must(t, m.Announce.Insert("http://tracker.example/announce", 0))

	before, err := m.InfohashV1()
	if err != nil {
		t.Fatalf("InfohashV1 error = %v", err)
	}

	encoded, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode error = %v", err)
	}

	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	after, err := parsed.InfohashV1()
	if err != nil {
		t.Fatalf("InfohashV1 (parsed) error = %v", err)
	}

	if before != after {
		t.Fatalf("infohash changed across round trip: %v != %v", before, after)
	}
	if parsed.Name != m.Name {
		t.Fatalf("got name %q, want %q", parsed.Name, m.Name)
	}
	if parsed.Announce.Primary() != "http://tracker.example/announce" {
		t.Fatalf("got announce %q", parsed.Announce.Primary())
	}
}

func TestParseMultiFileWithPadding(t *testing.T) {
	m := New("")
	m.Name = "pack"
	must(t, m.Storage.AddFile(&FileEntry{Path: []string{"a.txt"}, Size: 100}))
	must(t, m.Storage.AddFile(&FileEntry{Path: []string{"dir", "b.txt"}, Size: 200}))
	must(t, m.Storage.SetPieceSize(16*1024))
	must(t, m.Storage.OptimizeAlignment())
	m.Storage.AllocatePieces()
	for i := range m.Storage.Pieces {
		m.Storage.Pieces[i] = digest.SumHash1([]byte{byte(i)})
	}

	encoded, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode error = %v", err)
	}
	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	if len(parsed.Storage.Files) != len(m.Storage.Files) {
		t.Fatalf("got %d files after round trip, want %d", len(parsed.Storage.Files), len(m.Storage.Files))
	}

	var sawPadding bool
	for _, f := range parsed.Storage.Files {
		if f.IsPadding() {
			sawPadding = true
		}
	}
	if !sawPadding {
		t.Fatal("expected a padding entry to survive the round trip")
	}
}
