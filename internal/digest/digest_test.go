package digest

import "testing"

func TestHash1RoundTrip(t *testing.T) {
	h := SumHash1([]byte("hello"))
	s := h.String()

	got, err := NewHash1FromHex(s)
	if err != nil {
		t.Fatalf("NewHash1FromHex(%q) error = %v", s, err)
	}
	if got != h {
		t.Fatalf("got %v, want %v", got, h)
	}
}

func TestHash1InvalidLength(t *testing.T) {
	if _, err := NewHash1(make([]byte, 19)); err == nil {
		t.Fatal("expected error for short hash1")
	}
}

func TestHash2Compare(t *testing.T) {
	a := Hash2{0x01}
	b := Hash2{0x02}

	if a.Compare(b) >= 0 {
		t.Fatalf("expected a < b")
	}
	if b.Compare(a) <= 0 {
		t.Fatalf("expected b > a")
	}
	if a.Compare(a) != 0 {
		t.Fatalf("expected a == a")
	}
}

func TestHasherSHA1MatchesStdlib(t *testing.T) {
	h, err := NewHasher(SHA1)
	if err != nil {
		t.Fatalf("NewHasher(SHA1) error = %v", err)
	}

	h.Update([]byte("hello"))
	buf := make([]byte, h.Size())
	h.FinalizeTo(buf)

	want := SumHash1([]byte("hello"))
	if string(buf) != string(want[:]) {
		t.Fatalf("got %x, want %x", buf, want)
	}

	h.Reset()
	h.Update([]byte("world"))
	h.FinalizeTo(buf)
	if string(buf) == string(want[:]) {
		t.Fatal("expected different digest after reset and new input")
	}
}

func TestHasherUnknownAlgorithm(t *testing.T) {
	if _, err := NewHasher("not-a-real-algo"); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}
