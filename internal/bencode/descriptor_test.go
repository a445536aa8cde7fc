package bencode

import "testing"

func TestDescriptorsToValueMatchesDecode(t *testing.T) {
	samples := []string{
		"i42e",
		"4:spam",
		"l4:spam4:eggse",
		"d3:cow3:moo4:spam4:eggse",
		"d4:infod4:name5:filesee",
	}
	for _, s := range samples {
		treeVal, err := Decode([]byte(s))
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", s, err)
		}

		descs, err := ParseDescriptors([]byte(s), DefaultOptions())
		if err != nil {
			t.Fatalf("ParseDescriptors(%q) error = %v", s, err)
		}
		descVal, err := descs.Root().ToValue()
		if err != nil {
			t.Fatalf("ToValue(%q) error = %v", s, err)
		}

		if !treeVal.Equal(descVal) {
			t.Fatalf("descriptor view disagrees with tree decode for %q", s)
		}

		reenc, err := EncodeToBytes(descVal)
		if err != nil {
			t.Fatalf("EncodeToBytes error = %v", err)
		}
		if string(reenc) != s {
			t.Fatalf("got %q, want %q", reenc, s)
		}
	}
}

func TestCursorForEachListItem(t *testing.T) {
	descs, err := ParseDescriptors([]byte("li1ei2ei3ee"), DefaultOptions())
	if err != nil {
		t.Fatalf("ParseDescriptors error = %v", err)
	}

	var got []int64
	err = descs.Root().ForEachListItem(func(item Cursor) error {
		got = append(got, item.Int())
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachListItem error = %v", err)
	}
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCursorForEachDictEntry(t *testing.T) {
	descs, err := ParseDescriptors([]byte("d3:cow3:moo4:spam4:eggse"), DefaultOptions())
	if err != nil {
		t.Fatalf("ParseDescriptors error = %v", err)
	}

	got := map[string]string{}
	err = descs.Root().ForEachDictEntry(func(key []byte, value Cursor) error {
		got[string(key)] = value.Str()
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachDictEntry error = %v", err)
	}
	if got["cow"] != "moo" || got["spam"] != "eggs" {
		t.Fatalf("got %v", got)
	}
}

func TestDescriptorNextSkipsSubtree(t *testing.T) {
	descs, err := ParseDescriptors([]byte("lli1ei2ee4:taile"), DefaultOptions())
	if err != nil {
		t.Fatalf("ParseDescriptors error = %v", err)
	}

	outer := descs.Root()
	inner := outer.FirstChild()
	if inner.Kind() != DListBegin {
		t.Fatalf("expected nested list, got %v", inner.Kind())
	}
	tail := inner.Next()
	if tail.Kind() != DString || tail.Str() != "tail" {
		t.Fatalf("Next() did not skip the nested list subtree: got %v", tail.Kind())
	}
}
