package metafile

import "testing"

func TestAutoPieceSize(t *testing.T) {
	// S4: 100 MiB total -> exp = clamp(27-9, 15, 24) = 18 -> 256 KiB.
	got := AutoPieceSize(100 * 1024 * 1024)
	want := int64(256 * 1024)
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestAutoPieceSizeClampsToBounds(t *testing.T) {
	if got := AutoPieceSize(1); got != 32*1024 {
		t.Fatalf("got %d, want 32 KiB floor", got)
	}
	huge := int64(1) << 40
	if got := AutoPieceSize(huge); got != 16*1024*1024 {
		t.Fatalf("got %d, want 16 MiB ceiling", got)
	}
}

func TestOptimizeAlignmentS5(t *testing.T) {
	fs := NewFileStorage("")
	sizes := []int64{2 * 1024 * 1024, 123 * 1024, 3 * 1024, 18 * 1024}
	for i, sz := range sizes {
		if err := fs.AddFile(&FileEntry{Path: []string{pathName(i)}, Size: sz}); err != nil {
			t.Fatalf("AddFile error = %v", err)
		}
	}
	if err := fs.SetPieceSize(1024 * 1024); err != nil {
		t.Fatalf("SetPieceSize error = %v", err)
	}
	if err := fs.OptimizeAlignment(); err != nil {
		t.Fatalf("OptimizeAlignment error = %v", err)
	}

	if len(fs.Files) != 6 {
		t.Fatalf("got %d entries, want 6: %+v", len(fs.Files), fs.Files)
	}

	regularTotal := fs.RegularTotalSize()
	wantRegular := sizes[0] + sizes[1] + sizes[2] + sizes[3]
	if regularTotal != wantRegular {
		t.Fatalf("got regular total %d, want %d", regularTotal, wantRegular)
	}
	padTotal := fs.TotalSize() - regularTotal
	if padTotal != (1024*1024-123*1024)+(1024*1024-3*1024) {
		t.Fatalf("unexpected padding total %d", padTotal)
	}

	var offset int64
	for _, f := range fs.Files {
		if !f.IsPadding() && offset%fs.PieceSize != 0 {
			t.Fatalf("non-padding file %q does not start on a piece boundary (offset %d)", f.PathString(), offset)
		}
		offset += f.Size
	}
}

func pathName(i int) string {
	names := []string{"a", "b", "c", "d"}
	return names[i]
}

func TestGetPiecesSpan(t *testing.T) {
	fs := NewFileStorage("")
	must(t, fs.AddFile(&FileEntry{Path: []string{"a"}, Size: 10}))
	must(t, fs.AddFile(&FileEntry{Path: []string{"b"}, Size: 10}))
	must(t, fs.SetPieceSize(16 * 1024))

	start, end, err := fs.GetPiecesSpan(0)
	if err != nil {
		t.Fatalf("GetPiecesSpan error = %v", err)
	}
	if start != 0 || end != 1 {
		t.Fatalf("got [%d,%d), want [0,1)", start, end)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFileModeClassification(t *testing.T) {
	fs := NewFileStorage("")
	if fs.FileMode() != FileModeEmpty {
		t.Fatalf("got %v, want empty", fs.FileMode())
	}
	must(t, fs.AddFile(&FileEntry{Path: []string{"solo.txt"}, Size: 5}))
	if fs.FileMode() != FileModeSingle {
		t.Fatalf("got %v, want single", fs.FileMode())
	}
	must(t, fs.AddFile(&FileEntry{Path: []string{"dir", "other.txt"}, Size: 5}))
	if fs.FileMode() != FileModeMulti {
		t.Fatalf("got %v, want multi", fs.FileMode())
	}
}
