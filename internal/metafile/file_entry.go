package metafile

import (
	"fmt"
	"strings"
	"time"

	"github.com/prxssh/dottorrent/internal/digest"
)

// FileEntry is a single file within a FileStorage.
type FileEntry struct {
	// Path is the file's relative path, split into components. It must
	// never be empty, contain an absolute path, or contain a ".."
	// component.
	Path []string

	// Size is the file's length in bytes. Symlink entries always have
	// Size == 0.
	Size int64

	Attr          Attr
	SymlinkTarget string
	ModTime       time.Time

	// PiecesRoot and PieceLayer are populated for the v2/hybrid
	// protocols: the per-file Merkle tree root and its piece-layer
	// digests.
	PiecesRoot digest.Hash2
	PieceLayer []digest.Hash2

	// Checksums maps an algorithm name to its digest bytes for this
	// file, e.g. {"sha256": <32 bytes>}.
	Checksums map[digest.Algorithm][]byte
}

// IsPadding reports whether this entry is a synthetic alignment file.
func (f *FileEntry) IsPadding() bool { return f.Attr.Has(AttrPadding) }

// IsSymlink reports whether this entry is a symbolic link.
func (f *FileEntry) IsSymlink() bool { return f.Attr.Has(AttrSymlink) }

// PathString joins Path with '/', the wire-format convention for
// rendering a path in error messages and CLI output.
func (f *FileEntry) PathString() string { return strings.Join(f.Path, "/") }

// Validate checks the structural invariants a file entry must satisfy
// regardless of where it came from (constructed by the caller or parsed
// from a metafile).
func (f *FileEntry) Validate() error {
	if len(f.Path) == 0 {
		return fmt.Errorf("metafile: file entry has an empty path")
	}
	for _, c := range f.Path {
		if c == "" {
			return fmt.Errorf("metafile: file entry %q has an empty path component", f.PathString())
		}
		if c == ".." {
			return fmt.Errorf("metafile: file entry %q contains a '..' path component", f.PathString())
		}
	}
	if f.IsSymlink() {
		if f.Size != 0 {
			return fmt.Errorf("metafile: symlink entry %q must have size 0", f.PathString())
		}
		if f.SymlinkTarget == "" {
			return fmt.Errorf("metafile: symlink entry %q is missing a target", f.PathString())
		}
	}
	return nil
}
