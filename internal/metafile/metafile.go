package metafile

import (
	"fmt"
	"time"

	"github.com/prxssh/dottorrent/internal/digest"
)

// DHTNode is a bootstrap node advertised in the top-level "nodes" list.
type DHTNode struct {
	Host string
	Port uint16
}

// Metafile is the top-level torrent object: trackers, seeds, DHT nodes,
// descriptive metadata, and the file storage.
type Metafile struct {
	Announce *AnnounceList

	// HTTPSeeds are BEP 17 ("Hoffman-style") HTTP seed URLs.
	HTTPSeeds []string
	// WebSeeds are BEP 19 ("GetRight-style") web seed URLs.
	WebSeeds []string
	Nodes    []DHTNode

	Name         string
	Comment      string
	CreatedBy    string
	CreationDate time.Time
	Source       string
	Private      bool

	// Similar holds infohashes (20 or 32 bytes each) of related
	// torrents (BEP 38).
	Similar     [][]byte
	Collections []string

	Storage *FileStorage
}

// New returns an empty Metafile with an initialized announce list and
// file storage rooted at root.
func New(root string) *Metafile {
	return &Metafile{
		Announce: NewAnnounceList(),
		Storage:  NewFileStorage(root),
	}
}

// FileMode delegates to Storage.
func (m *Metafile) FileMode() FileMode { return m.Storage.FileMode() }

// Protocol delegates to Storage.
func (m *Metafile) Protocol() Protocol { return m.Storage.Protocol() }

// SetPrivate sets the BEP 27 private flag.
func (m *Metafile) SetPrivate(private bool) { m.Private = private }

// SetComment sets the free-form comment field.
func (m *Metafile) SetComment(comment string) { m.Comment = comment }

// SetSource sets the source tag some trackers require to produce a
// distinct infohash per tracker.
func (m *Metafile) SetSource(source string) { m.Source = source }

// AddSimilar records a related torrent's infohash (BEP 38), rejecting
// any length other than 20 (v1) or 32 (v2) bytes.
func (m *Metafile) AddSimilar(hash []byte) error {
	if len(hash) != 20 && len(hash) != 32 {
		return fmt.Errorf("metafile: similar infohash must be 20 or 32 bytes, got %d", len(hash))
	}
	cp := make([]byte, len(hash))
	copy(cp, hash)
	m.Similar = append(m.Similar, cp)
	return nil
}

// AddCollection records a collection name (BEP 38) this torrent belongs
// to.
func (m *Metafile) AddCollection(name string) {
	m.Collections = append(m.Collections, name)
}

// InfohashV1 computes the BitTorrent v1 infohash: SHA-1 of the canonical
// bencode encoding of the info dict. Valid for the v1 and hybrid
// protocols.
func (m *Metafile) InfohashV1() (digest.Hash1, error) {
	raw, err := m.infoDictBytes()
	if err != nil {
		return digest.Hash1{}, err
	}
	return digest.SumHash1(raw), nil
}

// InfohashV2 computes the BitTorrent v2 infohash: SHA-256 of the
// canonical bencode encoding of the info dict. For hybrid torrents this
// is the same combined info dict used by InfohashV1 (spec.md §4.I).
// Valid for the v2 and hybrid protocols.
func (m *Metafile) InfohashV2() (digest.Hash2, error) {
	raw, err := m.infoDictBytes()
	if err != nil {
		return digest.Hash2{}, err
	}
	return digest.SumHash2(raw), nil
}
