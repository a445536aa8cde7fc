package metafile

import "fmt"

// AnnounceEntry is a single tracker URL and the tier it belongs to. Lower
// tiers are tried first (BEP 12).
type AnnounceEntry struct {
	URL  string
	Tier int
}

// AnnounceList is a sequence of announce URLs grouped into tiers, kept
// sorted by (tier, url). Tiers are contiguous starting at 0: inserting
// into a new tier requires it to be exactly the next one, and removing
// the last URL of a tier shifts every later tier down by one so no gaps
// ever appear.
type AnnounceList struct {
	entries []AnnounceEntry
}

// NewAnnounceList returns an empty list.
func NewAnnounceList() *AnnounceList { return &AnnounceList{} }

// tierCount returns the number of distinct tiers currently present.
func (a *AnnounceList) tierCount() int {
	max := -1
	for _, e := range a.entries {
		if e.Tier > max {
			max = e.Tier
		}
	}
	return max + 1
}

// Insert adds url to tier, rejecting duplicates and tiers greater than
// the current tier count.
func (a *AnnounceList) Insert(url string, tier int) error {
	if url == "" {
		return fmt.Errorf("metafile: empty announce url")
	}
	for _, e := range a.entries {
		if e.URL == url {
			return fmt.Errorf("metafile: duplicate announce url %q", url)
		}
	}
	if tier < 0 || tier > a.tierCount() {
		return fmt.Errorf("metafile: tier %d is not reachable (current tier count %d)", tier, a.tierCount())
	}

	idx := 0
	for idx < len(a.entries) {
		e := a.entries[idx]
		if e.Tier > tier || (e.Tier == tier && e.URL > url) {
			break
		}
		idx++
	}
	a.entries = append(a.entries, AnnounceEntry{})
	copy(a.entries[idx+1:], a.entries[idx:])
	a.entries[idx] = AnnounceEntry{URL: url, Tier: tier}
	return nil
}

// Erase removes url, reporting whether it was present. If url was the
// last entry in its tier, every subsequent tier is shifted down by one.
func (a *AnnounceList) Erase(url string) bool {
	idx := -1
	for i, e := range a.entries {
		if e.URL == url {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	tier := a.entries[idx].Tier
	a.entries = append(a.entries[:idx], a.entries[idx+1:]...)

	stillPresent := false
	for _, e := range a.entries {
		if e.Tier == tier {
			stillPresent = true
			break
		}
	}
	if !stillPresent {
		for i := range a.entries {
			if a.entries[i].Tier > tier {
				a.entries[i].Tier--
			}
		}
	}
	return true
}

// Len returns the total number of announce urls.
func (a *AnnounceList) Len() int { return len(a.entries) }

// Tiers returns the urls grouped by tier, in ascending tier and
// within-tier url order.
func (a *AnnounceList) Tiers() [][]string {
	if len(a.entries) == 0 {
		return nil
	}
	out := make([][]string, a.tierCount())
	for _, e := range a.entries {
		out[e.Tier] = append(out[e.Tier], e.URL)
	}
	return out
}

// Primary returns the first tier's first url, the conventional value for
// the top-level "announce" key, or "" if the list is empty.
func (a *AnnounceList) Primary() string {
	if len(a.entries) == 0 {
		return ""
	}
	return a.entries[0].URL
}
