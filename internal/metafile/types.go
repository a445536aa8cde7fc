// Package metafile implements the typed BitTorrent v1/v2/hybrid metainfo
// model: file storage, announce lists, and the top-level metafile, along
// with canonical bencode (de)serialization and infohash computation.
package metafile

import "strings"

// Attr is a bitset of optional per-file attributes, rendered in a
// metafile's "attr" string using the single-letter convention: h
// (hidden), l (symlink), p (padding file), x (executable). Letters are
// emitted in ascending byte order to keep the rendering deterministic.
type Attr uint8

const (
	AttrHidden Attr = 1 << iota
	AttrSymlink
	AttrPadding
	AttrExecutable
)

// Has reports whether flag is set.
func (a Attr) Has(flag Attr) bool { return a&flag != 0 }

// String renders the attribute set using BEP 47's single-letter
// convention, or "" if no attributes are set.
// String renders the set flags in a fixed h,l,p,x order. ParseAttr
// accepts any order, so this byte order is this package's own choice,
// not a requirement carried over from any other implementation.
func (a Attr) String() string {
	var b strings.Builder
	if a.Has(AttrHidden) {
		b.WriteByte('h')
	}
	if a.Has(AttrSymlink) {
		b.WriteByte('l')
	}
	if a.Has(AttrPadding) {
		b.WriteByte('p')
	}
	if a.Has(AttrExecutable) {
		b.WriteByte('x')
	}
	return b.String()
}

// ParseAttr parses an "attr" string back into a bitset, ignoring unknown
// letters.
func ParseAttr(s string) Attr {
	var a Attr
	for _, c := range s {
		switch c {
		case 'h':
			a |= AttrHidden
		case 'l':
			a |= AttrSymlink
		case 'p':
			a |= AttrPadding
		case 'x':
			a |= AttrExecutable
		}
	}
	return a
}

// FileMode classifies a file storage by count and path shape.
type FileMode string

const (
	FileModeEmpty  FileMode = "empty"
	FileModeSingle FileMode = "single"
	FileModeMulti  FileMode = "multi"
)

// Protocol identifies which metainfo generation(s) a file storage carries
// data for.
type Protocol string

const (
	ProtocolNone   Protocol = "none"
	ProtocolV1     Protocol = "v1"
	ProtocolV2     Protocol = "v2"
	ProtocolHybrid Protocol = "hybrid"
)
