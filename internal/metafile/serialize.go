package metafile

import (
	"fmt"
	"strings"

	"github.com/prxssh/dottorrent/internal/bencode"
	"github.com/prxssh/dottorrent/internal/digest"
)

// infoDictBytes builds the canonical info dict and returns its encoded
// bytes, shared by InfohashV1 and InfohashV2.
func (m *Metafile) infoDictBytes() ([]byte, error) {
	info, err := m.buildInfoDict()
	if err != nil {
		return nil, err
	}
	return bencode.EncodeToBytes(info)
}

func (m *Metafile) buildInfoDict() (*bencode.Value, error) {
	storage := m.Storage
	protocol := storage.Protocol()
	if protocol == ProtocolNone {
		return nil, fmt.Errorf("metafile: storage has neither v1 pieces nor v2 piece roots set")
	}

	v := bencode.NewDict()
	d, _ := v.Dict()

	d.SetStr("name", bencode.NewString(m.Name))
	if m.Private {
		d.SetStr("private", bencode.NewInteger(1))
	}
	if m.Source != "" {
		d.SetStr("source", bencode.NewString(m.Source))
	}

	if protocol == ProtocolV1 || protocol == ProtocolHybrid {
		d.SetStr("piece length", bencode.NewInteger(storage.PieceSize))
		d.SetStr("pieces", bencode.NewBytes(concatHash1(storage.Pieces)))

		switch storage.FileMode() {
		case FileModeSingle:
			f := storage.regularFiles()[0]
			d.SetStr("length", bencode.NewInteger(f.Size))
			attachFileAttrs(d, f)
		default:
			list, err := buildV1FilesList(storage.Files)
			if err != nil {
				return nil, err
			}
			d.SetStr("files", list)
		}
	}

	if protocol == ProtocolV2 || protocol == ProtocolHybrid {
		d.SetStr("meta version", bencode.NewInteger(2))
		tree, err := buildFileTree(storage.regularFiles())
		if err != nil {
			return nil, err
		}
		d.SetStr("file tree", tree)
	}

	return v, nil
}

func concatHash1(pieces []digest.Hash1) []byte {
	out := make([]byte, 0, len(pieces)*20)
	for _, h := range pieces {
		out = append(out, h[:]...)
	}
	return out
}

// attachFileAttrs writes the optional attr/symlink-path/checksum keys
// shared by the v1 single-file info dict, each v1 "files" entry, and
// each v2 file-tree leaf.
func attachFileAttrs(d *bencode.Dict, f *FileEntry) {
	if f.Attr != 0 {
		d.SetStr("attr", bencode.NewString(f.Attr.String()))
	}
	if f.IsSymlink() {
		d.SetStr("symlink path", pathList(strings.Split(f.SymlinkTarget, "/")))
	}
	for algo, sum := range f.Checksums {
		d.SetStr(string(algo), bencode.NewBytes(sum))
	}
}

func pathList(components []string) *bencode.Value {
	items := make([]*bencode.Value, len(components))
	for i, c := range components {
		items[i] = bencode.NewString(c)
	}
	return bencode.NewList(items...)
}

func buildV1FilesList(files []*FileEntry) (*bencode.Value, error) {
	items := make([]*bencode.Value, 0, len(files))
	for _, f := range files {
		entry := bencode.NewDict()
		ed, _ := entry.Dict()
		ed.SetStr("length", bencode.NewInteger(f.Size))
		ed.SetStr("path", pathList(f.Path))
		attachFileAttrs(ed, f)
		items = append(items, entry)
	}
	return bencode.NewList(items...), nil
}

// buildFileTree constructs the v2 "file tree" nested dict: interior
// dicts keyed by path component, leaf files keyed by the empty string
// and carrying {length, pieces root, attr?, ...}.
func buildFileTree(files []*FileEntry) (*bencode.Value, error) {
	rootVal := bencode.NewDict()
	root, _ := rootVal.Dict()

	for _, f := range files {
		if len(f.Path) == 0 {
			return nil, fmt.Errorf("metafile: file tree entry has an empty path")
		}
		dir := root
		for _, component := range f.Path[:len(f.Path)-1] {
			child, ok := dir.GetStr(component)
			if !ok {
				childVal := bencode.NewDict()
				dir.SetStr(component, childVal)
				child = childVal
			}
			childDict, ok := child.Dict()
			if !ok {
				return nil, fmt.Errorf("metafile: file tree path component %q collides with a leaf", component)
			}
			dir = childDict
		}

		leafVal := bencode.NewDict()
		leaf, _ := leafVal.Dict()
		leaf.SetStr("length", bencode.NewInteger(f.Size))
		if !f.PiecesRoot.IsZero() || f.Size == 0 {
			leaf.SetStr("pieces root", bencode.NewBytes(f.PiecesRoot.Bytes()))
		}
		attachFileAttrs(leaf, f)

		wrapperVal := bencode.NewDict()
		wrapper, _ := wrapperVal.Dict()
		wrapper.SetStr("", leafVal)

		name := f.Path[len(f.Path)-1]
		dir.SetStr(name, wrapperVal)
	}

	return rootVal, nil
}

// buildPieceLayers constructs the top-level "piece layers" dict: raw
// 32-byte pieces-root to concatenated 32-byte piece-layer digests, for
// every regular v2 file with a non-empty layer.
func buildPieceLayers(files []*FileEntry) *bencode.Value {
	v := bencode.NewDict()
	d, _ := v.Dict()
	for _, f := range files {
		if f.IsPadding() || len(f.PieceLayer) == 0 {
			continue
		}
		buf := make([]byte, 0, len(f.PieceLayer)*32)
		for _, h := range f.PieceLayer {
			buf = append(buf, h[:]...)
		}
		d.Set(f.PiecesRoot.Bytes(), bencode.NewBytes(buf))
	}
	return v
}

// ToValue builds the full canonical bencode dict for the metafile: every
// top-level key spec.md §6 lists, present only when non-empty.
func (m *Metafile) ToValue() (*bencode.Value, error) {
	info, err := m.buildInfoDict()
	if err != nil {
		return nil, err
	}

	root := bencode.NewDict()
	d, _ := root.Dict()

	if m.Announce != nil && m.Announce.Len() > 0 {
		d.SetStr("announce", bencode.NewString(m.Announce.Primary()))
		tiers := m.Announce.Tiers()
		tierLists := make([]*bencode.Value, len(tiers))
		for i, tier := range tiers {
			urls := make([]*bencode.Value, len(tier))
			for j, u := range tier {
				urls[j] = bencode.NewString(u)
			}
			tierLists[i] = bencode.NewList(urls...)
		}
		d.SetStr("announce-list", bencode.NewList(tierLists...))
	}

	if m.Comment != "" {
		d.SetStr("comment", bencode.NewString(m.Comment))
	}
	if m.CreatedBy != "" {
		d.SetStr("created by", bencode.NewString(m.CreatedBy))
	}
	if !m.CreationDate.IsZero() {
		d.SetStr("creation date", bencode.NewInteger(m.CreationDate.Unix()))
	}
	if len(m.HTTPSeeds) > 0 {
		d.SetStr("httpseeds", stringList(m.HTTPSeeds))
	}
	if len(m.WebSeeds) > 0 {
		d.SetStr("url-list", stringList(m.WebSeeds))
	}
	if len(m.Nodes) > 0 {
		items := make([]*bencode.Value, len(m.Nodes))
		for i, n := range m.Nodes {
			items[i] = bencode.NewList(bencode.NewString(n.Host), bencode.NewInteger(int64(n.Port)))
		}
		d.SetStr("nodes", bencode.NewList(items...))
	}
	if len(m.Similar) > 0 {
		items := make([]*bencode.Value, len(m.Similar))
		for i, h := range m.Similar {
			items[i] = bencode.NewBytes(h)
		}
		d.SetStr("similar", bencode.NewList(items...))
	}
	if len(m.Collections) > 0 {
		d.SetStr("collections", stringList(m.Collections))
	}

	d.SetStr("info", info)

	protocol := m.Storage.Protocol()
	if protocol == ProtocolV2 || protocol == ProtocolHybrid {
		layers := buildPieceLayers(m.Storage.regularFiles())
		if ld, _ := layers.Dict(); ld.Len() > 0 {
			d.SetStr("piece layers", layers)
		}
	}

	return root, nil
}

func stringList(ss []string) *bencode.Value {
	items := make([]*bencode.Value, len(ss))
	for i, s := range ss {
		items[i] = bencode.NewString(s)
	}
	return bencode.NewList(items...)
}

// Encode writes the canonical bencode form of m.
func (m *Metafile) Encode() ([]byte, error) {
	v, err := m.ToValue()
	if err != nil {
		return nil, err
	}
	return bencode.EncodeToBytes(v)
}
