package bencode

import "testing"

func TestEncodeRoundTrip(t *testing.T) {
	cases := []string{
		"i42e",
		"i-7e",
		"i0e",
		"4:spam",
		"0:",
		"l4:spam4:eggse",
		"d3:cow3:moo4:spam4:eggse",
	}
	for _, want := range cases {
		v, err := Decode([]byte(want))
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", want, err)
		}
		got, err := EncodeToBytes(v)
		if err != nil {
			t.Fatalf("EncodeToBytes error = %v", err)
		}
		if string(got) != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestEncodeCanonicalizesKeyOrder(t *testing.T) {
	v := NewDict()
	d, _ := v.Dict()
	d.SetStr("spam", NewString("eggs"))
	d.SetStr("cow", NewString("moo"))

	got, err := EncodeToBytes(v)
	if err != nil {
		t.Fatalf("EncodeToBytes error = %v", err)
	}
	want := "d3:cow3:moo4:spam4:eggse"
	if string(got) != want {
		t.Fatalf("got %q, want %q (insertion order must not affect wire order)", got, want)
	}
}

func TestEncodeOverwriteKeepsSortedSingleEntry(t *testing.T) {
	v := NewDict()
	d, _ := v.Dict()
	d.SetStr("name", NewString("a"))
	d.SetStr("name", NewString("b"))

	if d.Len() != 1 {
		t.Fatalf("got %d entries, want 1 after overwrite", d.Len())
	}
	got, err := EncodeToBytes(v)
	if err != nil {
		t.Fatalf("EncodeToBytes error = %v", err)
	}
	if string(got) != "d4:name1:be" {
		t.Fatalf("got %q", got)
	}
}
