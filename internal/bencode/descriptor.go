package bencode

import "fmt"

// DescKind identifies the kind of a single Descriptor.
type DescKind uint8

const (
	DInteger DescKind = iota
	DString
	DListBegin
	DListEnd
	DDictBegin
	DDictEnd
)

// Descriptor is one flat entry in a parsed Descriptors array. Its fields
// are interpreted according to Kind:
//
//   - DInteger: Offset is the position of the leading 'i'; Next holds the
//     parsed integer value itself.
//   - DString: Offset is the position of the first payload byte (after
//     "len:"); Next holds the payload length.
//   - DListBegin / DDictBegin: Offset is the position of the 'l'/'d' tag
//     byte; Next is the number of descriptors to skip, from this one, to
//     land exactly on the matching End descriptor (so Cursor.Next can
//     jump over an entire subtree in O(1)).
//   - DListEnd / DDictEnd: Offset is the position of the 'e' tag byte;
//     Next is unused (zero).
//
// This mirrors the flat, SIMD-friendly descriptor layout used by the
// reference bencode library's descriptor_parser: values are never copied
// out of the backing buffer.
type Descriptor struct {
	Kind   DescKind
	Offset int
	Next   int64
}

// Descriptors is the result of ParseDescriptors: a flat array of
// Descriptor entries backed by the original buffer.
type Descriptors struct {
	Buf   []byte
	Items []Descriptor
}

// Root returns a Cursor positioned at the first (top-level) descriptor.
func (d *Descriptors) Root() Cursor { return Cursor{d: d, idx: 0} }

// ParseDescriptors parses a single bencode value from buf into a flat,
// zero-copy Descriptor array. It uses the same grammar and error kinds as
// Parse, but does not allocate a Value tree: string and dict-key payloads
// are referenced by (offset, length) into buf rather than copied.
func ParseDescriptors(buf []byte, opts Options) (*Descriptors, error) {
	d := &Descriptors{Buf: buf}
	p := &descParser{data: buf, out: d, opts: opts}
	if err := p.parseValue(); err != nil {
		return nil, err
	}
	return d, nil
}

type descParser struct {
	data       []byte
	pos        int
	out        *Descriptors
	opts       Options
	depth      int
	valueCount int
}

func (p *descParser) countValue() error {
	p.valueCount++
	if p.opts.ValueLimit > 0 && p.valueCount > p.opts.ValueLimit {
		return errAt(ValueLimitExceeded, p.pos)
	}
	return nil
}

func (p *descParser) enter() error {
	p.depth++
	if p.opts.RecursionLimit > 0 && p.depth > p.opts.RecursionLimit {
		return errAt(RecursionDepthExceeded, p.pos)
	}
	return nil
}

func (p *descParser) leave() { p.depth-- }

func (p *descParser) parseValue() error {
	if p.pos >= len(p.data) {
		return errAt(UnexpectedEOF, p.pos)
	}
	if err := p.countValue(); err != nil {
		return err
	}
	switch c := p.data[p.pos]; {
	case c == 'i':
		return p.parseInteger()
	case c == 'l':
		return p.parseContainer(DListBegin, DListEnd, p.parseListBody)
	case c == 'd':
		return p.parseContainer(DDictBegin, DDictEnd, p.parseDictBody)
	case isDigit(c):
		return p.parseString()
	default:
		return errAt(ExpectedValue, p.pos)
	}
}

func (p *descParser) parseInteger() error {
	start := p.pos
	p.pos++

	negative := false
	if p.pos < len(p.data) && p.data[p.pos] == '-' {
		negative = true
		p.pos++
	}
	digitsStart := p.pos
	if p.pos >= len(p.data) {
		return errAt(UnexpectedEOF, p.pos)
	}
	if !isDigit(p.data[p.pos]) {
		return errAt(ExpectedDigit, p.pos)
	}
	for p.pos < len(p.data) && isDigit(p.data[p.pos]) {
		p.pos++
	}
	digits := p.data[digitsStart:p.pos]
	if len(digits) > 1 && digits[0] == '0' {
		return errAt(LeadingZero, digitsStart)
	}
	if negative && len(digits) == 1 && digits[0] == '0' {
		return errAt(NegativeZero, start+1)
	}
	if p.pos >= len(p.data) {
		return errAt(UnexpectedEOF, p.pos)
	}
	if p.data[p.pos] != 'e' {
		return errAt(InvalidCharacter, p.pos)
	}

	n, err := parseInt64(digits)
	if err != nil {
		return errAt(InvalidCharacter, digitsStart)
	}
	if negative {
		n = -n
	}
	p.pos++

	p.out.Items = append(p.out.Items, Descriptor{Kind: DInteger, Offset: start, Next: n})
	return nil
}

// parseStringSpan parses a "<len>:<bytes>" token and returns the payload
// offset and length without appending a descriptor (used for dict keys).
func (p *descParser) parseStringSpan() (offset int, length int64, err error) {
	digitsStart := p.pos
	if p.pos >= len(p.data) {
		return 0, 0, errAt(UnexpectedEOF, p.pos)
	}
	if !isDigit(p.data[p.pos]) {
		return 0, 0, errAt(ExpectedDigit, p.pos)
	}
	for p.pos < len(p.data) && isDigit(p.data[p.pos]) {
		p.pos++
	}
	digits := p.data[digitsStart:p.pos]
	if len(digits) > 1 && digits[0] == '0' {
		return 0, 0, errAt(LeadingZero, digitsStart)
	}
	n, err := parseInt64(digits)
	if err != nil || n < 0 {
		return 0, 0, errAt(InvalidCharacter, digitsStart)
	}
	if p.pos >= len(p.data) || p.data[p.pos] != ':' {
		return 0, 0, errAt(ExpectedColon, p.pos)
	}
	p.pos++
	end := p.pos + int(n)
	if end < p.pos || end > len(p.data) {
		return 0, 0, errAt(UnexpectedEOF, p.pos)
	}
	offset = p.pos
	p.pos = end
	return offset, n, nil
}

func (p *descParser) parseString() error {
	offset, n, err := p.parseStringSpan()
	if err != nil {
		return err
	}
	p.out.Items = append(p.out.Items, Descriptor{Kind: DString, Offset: offset, Next: n})
	return nil
}

func (p *descParser) parseContainer(beginKind, endKind DescKind, body func() error) error {
	start := p.pos
	p.pos++ // consume 'l' or 'd'
	if err := p.enter(); err != nil {
		return err
	}

	beginIdx := len(p.out.Items)
	p.out.Items = append(p.out.Items, Descriptor{Kind: beginKind, Offset: start})

	if err := body(); err != nil {
		return err
	}

	endOffset := p.pos
	p.pos++ // consume 'e'
	p.leave()

	endIdx := len(p.out.Items)
	p.out.Items[beginIdx].Next = int64(endIdx - beginIdx)
	p.out.Items = append(p.out.Items, Descriptor{Kind: endKind, Offset: endOffset})
	return nil
}

func (p *descParser) parseListBody() error {
	for {
		if p.pos >= len(p.data) {
			return errAt(UnexpectedEOF, p.pos)
		}
		if p.data[p.pos] == 'e' {
			return nil
		}
		if !canStartValue(p.data[p.pos]) {
			return errAt(ExpectedListValueOrEnd, p.pos)
		}
		if err := p.parseValue(); err != nil {
			return err
		}
	}
}

func (p *descParser) parseDictBody() error {
	var prevKey []byte
	first := true
	for {
		if p.pos >= len(p.data) {
			return errAt(UnexpectedEOF, p.pos)
		}
		if p.data[p.pos] == 'e' {
			return nil
		}
		if !isDigit(p.data[p.pos]) {
			return errAt(ExpectedDictKeyOrEnd, p.pos)
		}

		keyStart := p.pos
		offset, n, err := p.parseStringSpan()
		if err != nil {
			return err
		}
		key := p.data[offset : offset+int(n)]
		if !first {
			switch bcmp(key, prevKey) {
			case 0:
				return errAt(DuplicateKey, keyStart)
			case -1:
				return errAt(UnsortedKeys, keyStart)
			}
		}
		prevKey, first = key, false
		p.out.Items = append(p.out.Items, Descriptor{Kind: DString, Offset: offset, Next: n})

		if p.pos >= len(p.data) || !canStartValue(p.data[p.pos]) {
			return errAt(ExpectedDictValue, p.pos)
		}
		if err := p.parseValue(); err != nil {
			return err
		}
	}
}

func parseInt64(digits []byte) (int64, error) {
	var n int64
	for _, c := range digits {
		n = n*10 + int64(c-'0')
		if n < 0 {
			return 0, fmt.Errorf("bencode: integer overflow")
		}
	}
	return n, nil
}

// Cursor navigates a Descriptors array without copying. The zero Cursor
// is not meaningful; obtain one from Descriptors.Root or a navigation
// method.
type Cursor struct {
	d   *Descriptors
	idx int
}

// Valid reports whether the cursor refers to an in-range descriptor.
func (c Cursor) Valid() bool { return c.d != nil && c.idx >= 0 && c.idx < len(c.d.Items) }

// Kind returns the descriptor kind at the cursor.
func (c Cursor) Kind() DescKind { return c.d.Items[c.idx].Kind }

// Int returns the integer value. Valid only when Kind() == DInteger.
func (c Cursor) Int() int64 { return c.d.Items[c.idx].Next }

// Bytes returns the raw payload bytes, shared with the backing buffer.
// Valid only when Kind() == DString.
func (c Cursor) Bytes() []byte {
	desc := c.d.Items[c.idx]
	return c.d.Buf[desc.Offset : desc.Offset+int(desc.Next)]
}

// Str returns the payload as a string. Valid only when Kind() == DString.
func (c Cursor) Str() string { return string(c.Bytes()) }

// FirstChild returns a cursor at the first child of a list/dict
// container. Valid only when Kind() is DListBegin or DDictBegin.
func (c Cursor) FirstChild() Cursor { return Cursor{d: c.d, idx: c.idx + 1} }

// End returns a cursor at the matching End descriptor for a container
// Begin cursor.
func (c Cursor) End() Cursor {
	desc := c.d.Items[c.idx]
	return Cursor{d: c.d, idx: c.idx + int(desc.Next)}
}

// Next returns a cursor at the next sibling: for a scalar, the
// immediately following descriptor; for a container Begin, the
// descriptor immediately after its matching End.
func (c Cursor) Next() Cursor {
	switch c.Kind() {
	case DListBegin, DDictBegin:
		return Cursor{d: c.d, idx: c.End().idx + 1}
	default:
		return Cursor{d: c.d, idx: c.idx + 1}
	}
}

// ForEachListItem calls fn for each element of a list, in order. Valid
// only when Kind() == DListBegin.
func (c Cursor) ForEachListItem(fn func(item Cursor) error) error {
	end := c.End().idx
	for cur := c.FirstChild(); cur.idx < end; cur = cur.Next() {
		if err := fn(cur); err != nil {
			return err
		}
	}
	return nil
}

// ForEachDictEntry calls fn for each (key, value) entry of a dict, in
// ascending key order. Valid only when Kind() == DDictBegin.
func (c Cursor) ForEachDictEntry(fn func(key []byte, value Cursor) error) error {
	end := c.End().idx
	cur := c.FirstChild()
	for cur.idx < end {
		key := cur.Bytes()
		val := cur.Next()
		if err := fn(key, val); err != nil {
			return err
		}
		cur = val.Next()
	}
	return nil
}

// ToValue materializes the subtree at the cursor into an owning Value
// tree, copying string payloads out of the backing buffer.
func (c Cursor) ToValue() (*Value, error) {
	switch c.Kind() {
	case DInteger:
		return NewInteger(c.Int()), nil
	case DString:
		return NewBytes(c.Bytes()), nil
	case DListBegin:
		v := NewList()
		err := c.ForEachListItem(func(item Cursor) error {
			iv, err := item.ToValue()
			if err != nil {
				return err
			}
			v.Append(iv)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	case DDictBegin:
		v := NewDict()
		d, _ := v.Dict()
		err := c.ForEachDictEntry(func(key []byte, value Cursor) error {
			vv, err := value.ToValue()
			if err != nil {
				return err
			}
			d.Set(key, vv)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("bencode: ToValue called on %v cursor", c.Kind())
	}
}
