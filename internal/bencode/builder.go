package bencode

import "fmt"

// builder is an EventSink that assembles an owning Value tree. It is the
// sink Decode uses internally.
type builder struct {
	stack    []*Value // open containers, innermost last
	pendKeys [][]byte // pending dict key per open dict container, parallel to stack
	root     *Value
}

func (b *builder) attach(v *Value) error {
	if len(b.stack) == 0 {
		if b.root != nil {
			return fmt.Errorf("bencode: builder: multiple top-level values")
		}
		b.root = v
		return nil
	}
	top := b.stack[len(b.stack)-1]
	switch top.kind {
	case KindList:
		top.Append(v)
	case KindDict:
		i := len(b.stack) - 1
		key := b.pendKeys[i]
		if key == nil {
			return fmt.Errorf("bencode: builder: dict value with no pending key")
		}
		top.dict.Set(key, v)
		b.pendKeys[i] = nil
	default:
		return fmt.Errorf("bencode: builder: cannot attach value to %s container", top.kind)
	}
	return nil
}

func (b *builder) Integer(v int64) error { return b.attach(NewInteger(v)) }
func (b *builder) String(s []byte) error { return b.attach(NewBytes(s)) }

func (b *builder) ListBegin() error {
	v := NewList()
	b.stack = append(b.stack, v)
	b.pendKeys = append(b.pendKeys, nil)
	return nil
}

func (b *builder) ListEnd() error {
	v := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.pendKeys = b.pendKeys[:len(b.pendKeys)-1]
	return b.attach(v)
}

func (b *builder) DictBegin() error {
	v := NewDict()
	b.stack = append(b.stack, v)
	b.pendKeys = append(b.pendKeys, nil)
	return nil
}

func (b *builder) DictKey(key []byte) error {
	b.pendKeys[len(b.pendKeys)-1] = append([]byte(nil), key...)
	return nil
}

func (b *builder) DictValueBegin() error { return nil }
func (b *builder) DictValueEnd() error   { return nil }

func (b *builder) DictEnd() error {
	v := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.pendKeys = b.pendKeys[:len(b.pendKeys)-1]
	return b.attach(v)
}

// Decode parses a single bencode value from data using the default
// Options and returns the owning tree. The full input need not be
// consumed; trailing bytes after the value are ignored (metafile torrent
// files sometimes carry trailing newlines).
func Decode(data []byte) (*Value, error) {
	b := &builder{}
	if err := Parse(data, b, DefaultOptions()); err != nil {
		return nil, err
	}
	if b.root == nil {
		return nil, fmt.Errorf("bencode: empty input")
	}
	return b.root, nil
}
