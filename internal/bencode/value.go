package bencode

import "bytes"

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	KindInteger Kind = iota
	KindString
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	default:
		return "invalid"
	}
}

// Value is an owning, mutable bencode value tree. The zero Value is not
// valid; construct one with NewInteger, NewBytes, NewList, or NewDict.
type Value struct {
	kind Kind
	i    int64
	s    []byte
	list []*Value
	dict *Dict
}

// NewInteger returns an integer Value.
func NewInteger(v int64) *Value { return &Value{kind: KindInteger, i: v} }

// NewBytes returns a string (byte-string) Value. b is copied.
func NewBytes(b []byte) *Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Value{kind: KindString, s: cp}
}

// NewString returns a string Value from a Go string.
func NewString(s string) *Value { return NewBytes([]byte(s)) }

// NewList returns a list Value containing items, in order.
func NewList(items ...*Value) *Value {
	return &Value{kind: KindList, list: append([]*Value(nil), items...)}
}

// NewDict returns an empty dict Value.
func NewDict() *Value { return &Value{kind: KindDict, dict: &Dict{}} }

// Kind reports the dynamic type of v.
func (v *Value) Kind() Kind { return v.kind }

// Int returns the integer value and true, or (0, false) if v is not an
// integer.
func (v *Value) Int() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.i, true
}

// Bytes returns the raw bytes and true, or (nil, false) if v is not a
// string. The returned slice is shared with v; callers must not mutate it.
func (v *Value) Bytes() ([]byte, bool) {
	if v.kind != KindString {
		return nil, false
	}
	return v.s, true
}

// Str returns the string and true, or ("", false) if v is not a string.
func (v *Value) Str() (string, bool) {
	b, ok := v.Bytes()
	if !ok {
		return "", false
	}
	return string(b), true
}

// List returns the element slice and true, or (nil, false) if v is not a
// list. The returned slice is shared with v.
func (v *Value) List() ([]*Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Append appends an item to a list Value. Panics if v is not a list.
func (v *Value) Append(item *Value) {
	if v.kind != KindList {
		panic("bencode: Append on non-list Value")
	}
	v.list = append(v.list, item)
}

// Dict returns the underlying Dict and true, or (nil, false) if v is not
// a dict.
func (v *Value) Dict() (*Dict, bool) {
	if v.kind != KindDict {
		return nil, false
	}
	return v.dict, true
}

// Equal reports whether v and other hold the same value, recursively.
// Dict comparison is order-sensitive, which is safe because Dict always
// maintains canonical (sorted) key order.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == other.i
	case KindString:
		return bytes.Equal(v.s, other.s)
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindDict:
		return v.dict.equal(other.dict)
	default:
		return false
	}
}

// dictEntry is a single sorted (key, value) pair.
type dictEntry struct {
	key   []byte
	value *Value
}

// Dict is an ordered map keyed by raw byte strings, always kept in
// ascending byte order with unique keys. This is the canonical order
// bencode requires for dict serialization (spec.md §4.A), so a Dict built
// through Set always round-trips through Encode deterministically
// regardless of the order callers insert in.
type Dict struct {
	entries []dictEntry
}

// search returns the index at which key is present, or would be inserted
// to preserve sort order, and whether it was found.
func (d *Dict) search(key []byte) (int, bool) {
	lo, hi := 0, len(d.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		switch bytes.Compare(d.entries[mid].key, key) {
		case 0:
			return mid, true
		case -1:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// Set inserts or overwrites the value for key, maintaining sorted order.
// key is copied.
func (d *Dict) Set(key []byte, v *Value) {
	idx, found := d.search(key)
	if found {
		d.entries[idx].value = v
		return
	}
	cp := make([]byte, len(key))
	copy(cp, key)
	d.entries = append(d.entries, dictEntry{})
	copy(d.entries[idx+1:], d.entries[idx:])
	d.entries[idx] = dictEntry{key: cp, value: v}
}

// SetStr is Set with a Go string key.
func (d *Dict) SetStr(key string, v *Value) { d.Set([]byte(key), v) }

// Get returns the value for key and true, or (nil, false) if absent.
func (d *Dict) Get(key []byte) (*Value, bool) {
	idx, found := d.search(key)
	if !found {
		return nil, false
	}
	return d.entries[idx].value, true
}

// GetStr is Get with a Go string key.
func (d *Dict) GetStr(key string) (*Value, bool) { return d.Get([]byte(key)) }

// Delete removes key, reporting whether it was present.
func (d *Dict) Delete(key []byte) bool {
	idx, found := d.search(key)
	if !found {
		return false
	}
	d.entries = append(d.entries[:idx], d.entries[idx+1:]...)
	return true
}

// Keys returns the dict's keys in ascending (canonical) order. The
// returned slice shares backing arrays with d and must not be mutated.
func (d *Dict) Keys() [][]byte {
	keys := make([][]byte, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
	}
	return keys
}

// Len returns the number of entries in d.
func (d *Dict) Len() int { return len(d.entries) }

func (d *Dict) equal(other *Dict) bool {
	if len(d.entries) != len(other.entries) {
		return false
	}
	for i := range d.entries {
		if !bytes.Equal(d.entries[i].key, other.entries[i].key) {
			return false
		}
		if !d.entries[i].value.Equal(other.entries[i].value) {
			return false
		}
	}
	return true
}
