package metafile

import (
	"fmt"
	"time"

	"github.com/prxssh/dottorrent/internal/bencode"
	"github.com/prxssh/dottorrent/internal/digest"
)

// Parse decodes a .torrent file's bytes into a Metafile, accepting any of
// the v1, v2, or hybrid forms. The input is decoded strictly: dictionary
// keys that are out of order or duplicated are rejected. Re-encoding a
// parsed Metafile produces canonical bytes.
func Parse(data []byte) (*Metafile, error) {
	root, err := bencode.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("metafile: %w", err)
	}
	rd, ok := root.Dict()
	if !ok {
		return nil, fmt.Errorf("metafile: top level is not a bencoded dictionary")
	}

	infoVal, ok := rd.GetStr("info")
	if !ok {
		return nil, fmt.Errorf("metafile: missing 'info' dictionary")
	}
	info, ok := infoVal.Dict()
	if !ok {
		return nil, fmt.Errorf("metafile: 'info' is not a dictionary")
	}

	pieceLayers := map[string][]byte{}
	if plVal, ok := rd.GetStr("piece layers"); ok {
		pl, ok := plVal.Dict()
		if !ok {
			return nil, fmt.Errorf("metafile: 'piece layers' is not a dictionary")
		}
		for _, key := range pl.Keys() {
			v, _ := pl.Get(key)
			b, ok := v.Bytes()
			if !ok {
				return nil, fmt.Errorf("metafile: 'piece layers' entry is not a string")
			}
			pieceLayers[string(key)] = b
		}
	}

	storage, err := parseStorage(info, pieceLayers)
	if err != nil {
		return nil, err
	}

	m := New(storage.Root)
	m.Storage = storage

	m.Name, _ = stringField(info, "name")
	m.Source, _ = stringField(info, "source")
	if priv, ok := intField(info, "private"); ok {
		m.Private = priv == 1
	}

	m.Comment, _ = stringField(rd, "comment")
	m.CreatedBy, _ = stringField(rd, "created by")
	if cd, ok := intField(rd, "creation date"); ok {
		m.CreationDate = time.Unix(cd, 0)
	}

	if err := parseAnnounce(rd, m.Announce); err != nil {
		return nil, err
	}

	m.HTTPSeeds, err = stringListField(rd, "httpseeds")
	if err != nil {
		return nil, err
	}
	m.WebSeeds, err = stringListField(rd, "url-list")
	if err != nil {
		return nil, err
	}
	m.Collections, err = stringListField(rd, "collections")
	if err != nil {
		return nil, err
	}

	if nodesVal, ok := rd.GetStr("nodes"); ok {
		list, ok := nodesVal.List()
		if !ok {
			return nil, fmt.Errorf("metafile: 'nodes' is not a list")
		}
		for i, item := range list {
			pair, ok := item.List()
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("metafile: node %d is not a 2-element list", i)
			}
			host, ok := pair[0].Str()
			if !ok {
				return nil, fmt.Errorf("metafile: node %d host is not a string", i)
			}
			port, ok := pair[1].Int()
			if !ok {
				return nil, fmt.Errorf("metafile: node %d port is not an integer", i)
			}
			m.Nodes = append(m.Nodes, DHTNode{Host: host, Port: uint16(port)})
		}
	}

	if simVal, ok := rd.GetStr("similar"); ok {
		list, ok := simVal.List()
		if !ok {
			return nil, fmt.Errorf("metafile: 'similar' is not a list")
		}
		for i, item := range list {
			b, ok := item.Bytes()
			if !ok {
				return nil, fmt.Errorf("metafile: similar entry %d is not a string", i)
			}
			if err := m.AddSimilar(b); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func stringField(d *bencode.Dict, key string) (string, bool) {
	v, ok := d.GetStr(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

func intField(d *bencode.Dict, key string) (int64, bool) {
	v, ok := d.GetStr(key)
	if !ok {
		return 0, false
	}
	return v.Int()
}

func stringListField(d *bencode.Dict, key string) ([]string, error) {
	v, ok := d.GetStr(key)
	if !ok {
		return nil, nil
	}
	list, ok := v.List()
	if !ok {
		return nil, fmt.Errorf("metafile: %q is not a list", key)
	}
	out := make([]string, len(list))
	for i, item := range list {
		s, ok := item.Str()
		if !ok {
			return nil, fmt.Errorf("metafile: %q entry %d is not a string", key, i)
		}
		out[i] = s
	}
	return out, nil
}

func parseAnnounce(rd *bencode.Dict, list *AnnounceList) error {
	if alVal, ok := rd.GetStr("announce-list"); ok {
		tiers, ok := alVal.List()
		if !ok {
			return fmt.Errorf("metafile: 'announce-list' is not a list")
		}
		for tierIdx, tierVal := range tiers {
			urls, ok := tierVal.List()
			if !ok {
				continue // tolerate malformed tier shapes from real-world torrents
			}
			for _, u := range urls {
				s, ok := u.Str()
				if !ok || s == "" {
					continue
				}
				if err := list.Insert(s, tierIdx); err != nil {
					continue // duplicate or out-of-order tier: drop rather than fail the whole parse
				}
			}
		}
	}
	if list.Len() == 0 {
		if a, ok := stringField(rd, "announce"); ok && a != "" {
			_ = list.Insert(a, 0)
		}
	}
	return nil
}

func parseStorage(info *bencode.Dict, pieceLayers map[string][]byte) (*FileStorage, error) {
	storage := NewFileStorage("")

	hasPieces := false
	if piecesVal, ok := info.GetStr("pieces"); ok {
		b, ok := piecesVal.Bytes()
		if !ok {
			return nil, fmt.Errorf("metafile: 'pieces' is not a string")
		}
		if len(b)%20 != 0 {
			return nil, fmt.Errorf("metafile: 'pieces' length %d is not a multiple of 20", len(b))
		}
		storage.Pieces = make([]digest.Hash1, len(b)/20)
		for i := range storage.Pieces {
			copy(storage.Pieces[i][:], b[i*20:(i+1)*20])
		}
		hasPieces = true
	}

	if plVal, ok := info.GetStr("piece length"); ok {
		pl, ok := plVal.Int()
		if !ok || pl <= 0 {
			return nil, fmt.Errorf("metafile: invalid 'piece length'")
		}
		storage.PieceSize = pl
	} else if hasPieces {
		return nil, fmt.Errorf("metafile: missing 'piece length'")
	}

	var v1Files []*FileEntry
	if filesVal, ok := info.GetStr("files"); ok {
		list, ok := filesVal.List()
		if !ok {
			return nil, fmt.Errorf("metafile: 'files' is not a list")
		}
		for i, item := range list {
			fd, ok := item.Dict()
			if !ok {
				return nil, fmt.Errorf("metafile: file entry %d is not a dictionary", i)
			}
			f, err := parseFileEntryDict(fd)
			if err != nil {
				return nil, fmt.Errorf("metafile: file entry %d: %w", i, err)
			}
			v1Files = append(v1Files, f)
		}
	} else if lenVal, ok := info.GetStr("length"); ok {
		length, ok := lenVal.Int()
		if !ok || length < 0 {
			return nil, fmt.Errorf("metafile: invalid 'length'")
		}
		name, _ := stringField(info, "name")
		f := &FileEntry{Path: []string{name}, Size: length}
		parseOptionalFileAttrs(info, f)
		v1Files = []*FileEntry{f}
	}

	var v2Files []*FileEntry
	if treeVal, ok := info.GetStr("file tree"); ok {
		tree, ok := treeVal.Dict()
		if !ok {
			return nil, fmt.Errorf("metafile: 'file tree' is not a dictionary")
		}
		var err error
		v2Files, err = walkFileTree(tree, nil, pieceLayers)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case len(v1Files) > 0 && len(v2Files) > 0:
		storage.Files = mergeFileLists(v1Files, v2Files)
	case len(v1Files) > 0:
		storage.Files = v1Files
	case len(v2Files) > 0:
		storage.Files = v2Files
	default:
		return nil, fmt.Errorf("metafile: info dict has neither 'files'/'length' nor 'file tree'")
	}

	return storage, nil
}

func parseFileEntryDict(fd *bencode.Dict) (*FileEntry, error) {
	lengthVal, ok := fd.GetStr("length")
	if !ok {
		return nil, fmt.Errorf("missing 'length'")
	}
	length, ok := lengthVal.Int()
	if !ok || length < 0 {
		return nil, fmt.Errorf("invalid 'length'")
	}

	pathVal, ok := fd.GetStr("path")
	if !ok {
		return nil, fmt.Errorf("missing 'path'")
	}
	pathList, ok := pathVal.List()
	if !ok || len(pathList) == 0 {
		return nil, fmt.Errorf("invalid or empty 'path'")
	}
	path := make([]string, len(pathList))
	for i, p := range pathList {
		s, ok := p.Str()
		if !ok {
			return nil, fmt.Errorf("path component %d is not a string", i)
		}
		path[i] = s
	}

	f := &FileEntry{Path: path, Size: length}
	parseOptionalFileAttrs(fd, f)
	return f, nil
}

func parseOptionalFileAttrs(fd *bencode.Dict, f *FileEntry) {
	if attrVal, ok := fd.GetStr("attr"); ok {
		if s, ok := attrVal.Str(); ok {
			f.Attr = ParseAttr(s)
		}
	}
	if symVal, ok := fd.GetStr("symlink path"); ok {
		if list, ok := symVal.List(); ok {
			parts := make([]string, len(list))
			for i, p := range list {
				parts[i], _ = p.Str()
			}
			f.SymlinkTarget = joinPath(parts)
		}
	}
	for _, algo := range []digest.Algorithm{digest.SHA1, digest.SHA256, digest.SHA512, digest.MD5, digest.Blake2b512, digest.Blake2s256} {
		if sumVal, ok := fd.GetStr(string(algo)); ok {
			if b, ok := sumVal.Bytes(); ok {
				if f.Checksums == nil {
					f.Checksums = map[digest.Algorithm][]byte{}
				}
				f.Checksums[algo] = append([]byte(nil), b...)
			}
		}
	}
}

// walkFileTree recursively descends a parsed "file tree" dict, emitting
// one FileEntry per leaf (a dict keyed by the empty string).
func walkFileTree(tree *bencode.Dict, prefix []string, pieceLayers map[string][]byte) ([]*FileEntry, error) {
	var out []*FileEntry
	for _, key := range tree.Keys() {
		child, _ := tree.Get(key)
		childDict, ok := child.Dict()
		if !ok {
			return nil, fmt.Errorf("metafile: file tree node %q is not a dictionary", key)
		}

		if leaf, ok := childDict.Get([]byte("")); ok {
			leafDict, ok := leaf.Dict()
			if !ok {
				return nil, fmt.Errorf("metafile: file tree leaf %q is not a dictionary", key)
			}
			lengthVal, ok := leafDict.GetStr("length")
			if !ok {
				return nil, fmt.Errorf("metafile: file tree leaf %q missing 'length'", key)
			}
			length, ok := lengthVal.Int()
			if !ok || length < 0 {
				return nil, fmt.Errorf("metafile: file tree leaf %q has invalid 'length'", key)
			}

			path := append(append([]string(nil), prefix...), string(key))
			f := &FileEntry{Path: path, Size: length}
			parseOptionalFileAttrs(leafDict, f)

			if rootVal, ok := leafDict.GetStr("pieces root"); ok {
				b, ok := rootVal.Bytes()
				if ok && len(b) == 32 {
					f.PiecesRoot, _ = digest.NewHash2(b)
					if layerBytes, ok := pieceLayers[string(b)]; ok {
						f.PieceLayer = make([]digest.Hash2, len(layerBytes)/32)
						for i := range f.PieceLayer {
							copy(f.PieceLayer[i][:], layerBytes[i*32:(i+1)*32])
						}
					}
				}
			}

			out = append(out, f)
			continue
		}

		nested, err := walkFileTree(childDict, append(append([]string(nil), prefix...), string(key)), pieceLayers)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// mergeFileLists reconciles the v1 "files" list (which includes explicit
// padding entries) with the v2 "file tree" walk (which carries pieces
// roots/layers but no padding) for hybrid torrents, attaching v2 data to
// the matching v1 entry by path.
func mergeFileLists(v1Files, v2Files []*FileEntry) []*FileEntry {
	v2ByPath := make(map[string]*FileEntry, len(v2Files))
	for _, f := range v2Files {
		v2ByPath[joinPath(f.Path)] = f
	}
	for _, f := range v1Files {
		if v2, ok := v2ByPath[joinPath(f.Path)]; ok {
			f.PiecesRoot = v2.PiecesRoot
			f.PieceLayer = v2.PieceLayer
		}
	}
	return v1Files
}
