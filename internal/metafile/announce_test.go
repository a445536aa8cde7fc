package metafile

import "testing"

func TestAnnounceListInsertTierOrdering(t *testing.T) {
	a := NewAnnounceList()
	if err := a.Insert("http://tier0-a", 0); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	if err := a.Insert("http://tier1-a", 1); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	if err := a.Insert("http://tier0-b", 0); err != nil {
		t.Fatalf("Insert error = %v", err)
	}
	// Tier 2 is unreachable: only tiers 0 and 1 exist so far.
	if err := a.Insert("http://tier2", 2); err == nil {
		t.Fatal("expected error inserting into an unreachable tier")
	}

	tiers := a.Tiers()
	if len(tiers) != 2 {
		t.Fatalf("got %d tiers, want 2", len(tiers))
	}
	if len(tiers[0]) != 2 || len(tiers[1]) != 1 {
		t.Fatalf("unexpected tier shapes: %+v", tiers)
	}
}

func TestAnnounceListRejectsDuplicates(t *testing.T) {
	a := NewAnnounceList()
	must(t, a.Insert("http://x", 0))
	if err := a.Insert("http://x", 0); err == nil {
		t.Fatal("expected error inserting a duplicate url")
	}
}

func TestAnnounceListEraseShiftsTiersDown(t *testing.T) {
	a := NewAnnounceList()
	must(t, a.Insert("http://t0", 0))
	must(t, a.Insert("http://t1", 1))
	must(t, a.Insert("http://t2", 2))

	if !a.Erase("http://t1") {
		t.Fatal("expected Erase to report found")
	}

	tiers := a.Tiers()
	if len(tiers) != 2 {
		t.Fatalf("got %d tiers after erase, want 2: %+v", len(tiers), tiers)
	}
	if tiers[0][0] != "http://t0" || tiers[1][0] != "http://t2" {
		t.Fatalf("tier 2 did not shift down to tier 1: %+v", tiers)
	}
}

func TestAnnounceListEraseKeepsTierWhenSiblingsRemain(t *testing.T) {
	a := NewAnnounceList()
	must(t, a.Insert("http://t0-a", 0))
	must(t, a.Insert("http://t0-b", 0))
	must(t, a.Insert("http://t1", 1))

	a.Erase("http://t0-a")

	tiers := a.Tiers()
	if len(tiers) != 2 || tiers[1][0] != "http://t1" {
		t.Fatalf("tier 1 should not shift when tier 0 still has entries: %+v", tiers)
	}
}
