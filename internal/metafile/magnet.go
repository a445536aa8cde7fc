package metafile

import "net/url"

// MagnetURI renders a magnet link (BEP 9) for the metafile: the v1
// infohash when only v1 data is present, the v2 multihash-prefixed
// "btmh" parameter when only v2 data is present, or both for a hybrid
// torrent (clients then prefer v2). Tracker URLs become "tr" parameters
// and the display name becomes "dn".
func (m *Metafile) MagnetURI() (string, error) {
	q := url.Values{}

	protocol := m.Storage.Protocol()
	if protocol == ProtocolV1 || protocol == ProtocolHybrid {
		v1, err := m.InfohashV1()
		if err != nil {
			return "", err
		}
		q.Add("xt", "urn:btih:"+v1.String())
	}
	if protocol == ProtocolV2 || protocol == ProtocolHybrid {
		v2, err := m.InfohashV2()
		if err != nil {
			return "", err
		}
		// 0x12 = sha2-256, 0x20 = 32-byte digest length, per the
		// multihash varint-prefix convention BEP 52 reuses for "btmh".
		q.Add("xt", "urn:btmh:1220"+v2.String())
	}

	if m.Name != "" {
		q.Set("dn", m.Name)
	}
	for _, tier := range m.Announce.Tiers() {
		for _, u := range tier {
			q.Add("tr", u)
		}
	}

	return "magnet:?" + q.Encode(), nil
}
