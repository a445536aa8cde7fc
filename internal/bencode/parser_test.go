package bencode

import (
	"errors"
	"testing"
)

func mustDecode(t *testing.T, data string) *Value {
	t.Helper()
	v, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode(%q) error = %v", data, err)
	}
	return v
}

func TestDecodeScalars(t *testing.T) {
	if v := mustDecode(t, "i42e"); mustInt(t, v) != 42 {
		t.Fatalf("got %d, want 42", mustInt(t, v))
	}
	if v := mustDecode(t, "i-7e"); mustInt(t, v) != -7 {
		t.Fatalf("got %d, want -7", mustInt(t, v))
	}
	if v := mustDecode(t, "i0e"); mustInt(t, v) != 0 {
		t.Fatalf("got %d, want 0", mustInt(t, v))
	}
	if v := mustDecode(t, "4:spam"); mustStr(t, v) != "spam" {
		t.Fatalf("got %q, want spam", mustStr(t, v))
	}
	if v := mustDecode(t, "0:"); mustStr(t, v) != "" {
		t.Fatalf("got %q, want empty", mustStr(t, v))
	}
}

func mustInt(t *testing.T, v *Value) int64 {
	t.Helper()
	n, ok := v.Int()
	if !ok {
		t.Fatalf("value is not an integer: %v", v.Kind())
	}
	return n
}

func mustStr(t *testing.T, v *Value) string {
	t.Helper()
	s, ok := v.Str()
	if !ok {
		t.Fatalf("value is not a string: %v", v.Kind())
	}
	return s
}

func TestDecodeListAndDict(t *testing.T) {
	v := mustDecode(t, "l4:spam4:eggse")
	list, ok := v.List()
	if !ok || len(list) != 2 {
		t.Fatalf("expected 2-element list, got %+v", v)
	}
	if mustStr(t, list[0]) != "spam" || mustStr(t, list[1]) != "eggs" {
		t.Fatalf("unexpected list contents")
	}

	v = mustDecode(t, "d3:cow3:moo4:spam4:eggse")
	d, ok := v.Dict()
	if !ok {
		t.Fatalf("expected dict")
	}
	if val, ok := d.GetStr("cow"); !ok || mustStr(t, val) != "moo" {
		t.Fatalf("dict lookup failed for cow")
	}
	if val, ok := d.GetStr("spam"); !ok || mustStr(t, val) != "eggs" {
		t.Fatalf("dict lookup failed for spam")
	}
}

func asParseError(t *testing.T, err error) *ParseError {
	t.Helper()
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error is not a *ParseError: %v", err)
	}
	return pe
}

func TestLeadingZeroOffset(t *testing.T) {
	_, err := Decode([]byte("i002e"))
	pe := asParseError(t, err)
	if pe.Kind != LeadingZero || pe.Offset != 1 {
		t.Fatalf("got %+v, want LeadingZero at offset 1", pe)
	}
}

func TestNegativeZeroRejected(t *testing.T) {
	_, err := Decode([]byte("i-0e"))
	pe := asParseError(t, err)
	if pe.Kind != NegativeZero {
		t.Fatalf("got %+v, want NegativeZero", pe)
	}
}

func TestStringLeadingZeroLength(t *testing.T) {
	_, err := Decode([]byte("02:hi"))
	pe := asParseError(t, err)
	if pe.Kind != LeadingZero {
		t.Fatalf("got %+v, want LeadingZero", pe)
	}
}

func TestUnsortedDictKeys(t *testing.T) {
	_, err := Decode([]byte("d4:spam3:foo3:cow3:mooe"))
	pe := asParseError(t, err)
	if pe.Kind != UnsortedKeys {
		t.Fatalf("got %+v, want UnsortedKeys", pe)
	}
}

func TestDuplicateDictKey(t *testing.T) {
	_, err := Decode([]byte("d3:cow3:moo3:cow3:mooe"))
	pe := asParseError(t, err)
	if pe.Kind != DuplicateKey {
		t.Fatalf("got %+v, want DuplicateKey", pe)
	}
}

func TestTruncatedInput(t *testing.T) {
	_, err := Decode([]byte("4:sp"))
	pe := asParseError(t, err)
	if pe.Kind != UnexpectedEOF {
		t.Fatalf("got %+v, want UnexpectedEOF", pe)
	}
}

func TestInvalidLeadByte(t *testing.T) {
	_, err := Decode([]byte("x"))
	pe := asParseError(t, err)
	if pe.Kind != ExpectedValue {
		t.Fatalf("got %+v, want ExpectedValue", pe)
	}
}

func TestRecursionLimit(t *testing.T) {
	data := []byte{}
	for i := 0; i < 10; i++ {
		data = append(data, 'l')
	}
	for i := 0; i < 10; i++ {
		data = append(data, 'e')
	}
	b := &builder{}
	err := Parse(data, b, Options{RecursionLimit: 5})
	pe := asParseError(t, err)
	if pe.Kind != RecursionDepthExceeded {
		t.Fatalf("got %+v, want RecursionDepthExceeded", pe)
	}
}

func TestValueLimit(t *testing.T) {
	b := &builder{}
	err := Parse([]byte("li1ei2ei3ee"), b, Options{ValueLimit: 2})
	pe := asParseError(t, err)
	if pe.Kind != ValueLimitExceeded {
		t.Fatalf("got %+v, want ValueLimitExceeded", pe)
	}
}

func TestParseAllRejectsTrailingBytes(t *testing.T) {
	b := &builder{}
	err := ParseAll([]byte("i1ei2e"), b, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for trailing bytes after the first value")
	}
}
