package metafile

import (
	"fmt"
	"math/bits"
	"strconv"

	"github.com/prxssh/dottorrent/internal/digest"
)

const minPieceSize = 16 * 1024

// FileStorage is the ordered set of files that make up a torrent's
// payload, along with the piece size and the v1 piece-hash table.
type FileStorage struct {
	// Root is the absolute directory the files were (or will be) read
	// from. Empty for an "unphysical" storage parsed from a metafile
	// with no corresponding files on disk.
	Root string

	Files []*FileEntry

	PieceSize int64

	// Pieces holds the v1 SHA-1 piece hashes, indexed by global piece
	// index. Allocated by AllocatePieces once PieceSize and the file
	// list are final.
	Pieces []digest.Hash1
}

// NewFileStorage returns an empty storage rooted at root.
func NewFileStorage(root string) *FileStorage {
	return &FileStorage{Root: root}
}

// AddFile appends f after validating its structural invariants and
// checking for a duplicate path.
func (fs *FileStorage) AddFile(f *FileEntry) error {
	if err := f.Validate(); err != nil {
		return err
	}
	for _, existing := range fs.Files {
		if existing.PathString() == f.PathString() {
			return fmt.Errorf("metafile: duplicate file path %q", f.PathString())
		}
	}
	fs.Files = append(fs.Files, f)
	return nil
}

// RemoveFile removes the file at path, reporting whether it was present.
func (fs *FileStorage) RemoveFile(path []string) bool {
	target := joinPath(path)
	for i, f := range fs.Files {
		if f.PathString() == target {
			fs.Files = append(fs.Files[:i], fs.Files[i+1:]...)
			return true
		}
	}
	return false
}

func joinPath(path []string) string {
	fe := FileEntry{Path: path}
	return fe.PathString()
}

// SetPieceSize validates and sets the piece size: must be a power of two
// no smaller than 16 KiB.
func (fs *FileStorage) SetPieceSize(size int64) error {
	if size < minPieceSize {
		return fmt.Errorf("metafile: piece size %d is smaller than the 16 KiB minimum", size)
	}
	if size&(size-1) != 0 {
		return fmt.Errorf("metafile: piece size %d is not a power of two", size)
	}
	fs.PieceSize = size
	return nil
}

// TotalSize returns the sum of every file's size, including padding.
func (fs *FileStorage) TotalSize() int64 {
	var total int64
	for _, f := range fs.Files {
		total += f.Size
	}
	return total
}

// RegularTotalSize returns TotalSize excluding padding file entries.
func (fs *FileStorage) RegularTotalSize() int64 {
	var total int64
	for _, f := range fs.Files {
		if !f.IsPadding() {
			total += f.Size
		}
	}
	return total
}

func (fs *FileStorage) regularFiles() []*FileEntry {
	out := make([]*FileEntry, 0, len(fs.Files))
	for _, f := range fs.Files {
		if !f.IsPadding() {
			out = append(out, f)
		}
	}
	return out
}

// PieceCount returns ceil(TotalSize / PieceSize). PieceSize must already
// be set.
func (fs *FileStorage) PieceCount() int64 {
	if fs.PieceSize == 0 {
		return 0
	}
	total := fs.TotalSize()
	return (total + fs.PieceSize - 1) / fs.PieceSize
}

// FileMode classifies the storage by file count and path depth.
func (fs *FileStorage) FileMode() FileMode {
	reg := fs.regularFiles()
	switch {
	case len(reg) == 0:
		return FileModeEmpty
	case len(reg) == 1 && len(reg[0].Path) == 1:
		return FileModeSingle
	default:
		return FileModeMulti
	}
}

// Protocol reports which metainfo generation(s) this storage carries
// data for, based on whether v1 pieces and v2 per-file roots are
// present.
func (fs *FileStorage) Protocol() Protocol {
	hasV1 := len(fs.Pieces) > 0
	hasV2 := false
	for _, f := range fs.regularFiles() {
		if !f.PiecesRoot.IsZero() {
			hasV2 = true
			break
		}
	}
	switch {
	case hasV1 && hasV2:
		return ProtocolHybrid
	case hasV1:
		return ProtocolV1
	case hasV2:
		return ProtocolV2
	default:
		return ProtocolNone
	}
}

// AllocatePieces sizes Pieces to PieceCount zero digests, discarding any
// previously computed hashes.
func (fs *FileStorage) AllocatePieces() {
	fs.Pieces = make([]digest.Hash1, fs.PieceCount())
}

// SetPieceHash writes the hash for piece idx. Safe to call concurrently
// for distinct values of idx.
func (fs *FileStorage) SetPieceHash(idx int, h digest.Hash1) error {
	if idx < 0 || idx >= len(fs.Pieces) {
		return fmt.Errorf("metafile: piece index %d out of range [0,%d)", idx, len(fs.Pieces))
	}
	fs.Pieces[idx] = h
	return nil
}

// fileOffsets returns, for each file in Files (including padding), its
// starting byte offset within the storage.
func (fs *FileStorage) fileOffsets() []int64 {
	offsets := make([]int64, len(fs.Files))
	var cum int64
	for i, f := range fs.Files {
		offsets[i] = cum
		cum += f.Size
	}
	return offsets
}

// GetPiecesSpan returns the [start, end) global piece index range whose
// byte range covers fileIdx, based on cumulative byte offsets divided by
// PieceSize.
func (fs *FileStorage) GetPiecesSpan(fileIdx int) (start, end int64, err error) {
	if fileIdx < 0 || fileIdx >= len(fs.Files) {
		return 0, 0, fmt.Errorf("metafile: file index %d out of range", fileIdx)
	}
	if fs.PieceSize == 0 {
		return 0, 0, fmt.Errorf("metafile: piece size is not set")
	}
	offsets := fs.fileOffsets()
	begin := offsets[fileIdx]
	last := begin + fs.Files[fileIdx].Size
	start = begin / fs.PieceSize
	end = (last + fs.PieceSize - 1) / fs.PieceSize
	return start, end, nil
}

// AutoPieceSize picks a piece size for a storage of the given total
// size: exp = clamp(ceil(log2(totalSize)) - 9, 15, 24); P = 2^exp. This
// yields pieces in [32 KiB, 16 MiB] with a target around 2^9 pieces for
// small torrents.
func AutoPieceSize(totalSize int64) int64 {
	if totalSize < 1 {
		totalSize = 1
	}
	exp := ceilLog2(totalSize) - 9
	if exp < 15 {
		exp = 15
	}
	if exp > 24 {
		exp = 24
	}
	return 1 << exp
}

func ceilLog2(n int64) int64 {
	if n <= 1 {
		return 0
	}
	return int64(bits.Len64(uint64(n - 1)))
}

// OptimizeAlignment inserts padding file entries (hybrid torrents only)
// so every non-padding file after the first starts on a piece boundary:
// for every file except the last, if its size is not a multiple of
// PieceSize, a padding entry of the shortfall is inserted immediately
// after it, with path ".pad/<size>". PieceSize must already be set.
func (fs *FileStorage) OptimizeAlignment() error {
	if fs.PieceSize == 0 {
		return fmt.Errorf("metafile: piece size is not set")
	}

	out := make([]*FileEntry, 0, len(fs.Files))
	for i, f := range fs.Files {
		out = append(out, f)
		if i == len(fs.Files)-1 || f.IsPadding() {
			continue
		}
		rem := f.Size % fs.PieceSize
		if rem == 0 {
			continue
		}
		padSize := fs.PieceSize - rem
		out = append(out, &FileEntry{
			Path: []string{".pad", strconv.FormatInt(padSize, 10)},
			Size: padSize,
			Attr: AttrPadding,
		})
	}
	fs.Files = out
	return nil
}
