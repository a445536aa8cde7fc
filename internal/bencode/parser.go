// Package bencode implements the bencode encoding used by BitTorrent
// metainfo files (spec.md §4.A): a push (SAX) parser driving an
// EventSink, an owning Value/Dict tree for construction and mutation, a
// canonical encoder (Encode, EncodeToBytes), and a zero-copy Descriptor/Cursor view for reading
// large dictionaries without allocating a tree.
package bencode

import "strconv"

// Options bounds parser resource usage. The zero Options imposes no
// limits; DefaultOptions sets a recursion limit.
type Options struct {
	// RecursionLimit caps list/dict nesting depth. 0 means unlimited.
	RecursionLimit int
	// ValueLimit caps the total number of values (scalars and
	// containers) the parser will produce. 0 means unlimited.
	ValueLimit int
}

// DefaultOptions returns the Options used by Decode: a generous recursion
// limit that still rejects pathological/adversarial input, and no value
// limit.
func DefaultOptions() Options {
	return Options{RecursionLimit: 512}
}

// Parse parses a single bencode value from data, starting at offset 0,
// and drives sink with the resulting events. Bytes after that value are
// not examined; ParseAll rejects them.
func Parse(data []byte, sink EventSink, opts Options) error {
	p := &parser{data: data, sink: sink, opts: opts}
	if err := p.parseValue(); err != nil {
		return err
	}
	return nil
}

// ParseAll is Parse but additionally requires that data contains exactly
// one value with no trailing bytes.
func ParseAll(data []byte, sink EventSink, opts Options) error {
	p := &parser{data: data, sink: sink, opts: opts}
	if err := p.parseValue(); err != nil {
		return err
	}
	if p.pos != len(data) {
		return errAt(InvalidCharacter, p.pos)
	}
	return nil
}

type parser struct {
	data       []byte
	pos        int
	sink       EventSink
	opts       Options
	depth      int
	valueCount int
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *parser) countValue() error {
	p.valueCount++
	if p.opts.ValueLimit > 0 && p.valueCount > p.opts.ValueLimit {
		return errAt(ValueLimitExceeded, p.pos)
	}
	return nil
}

func (p *parser) enter() error {
	p.depth++
	if p.opts.RecursionLimit > 0 && p.depth > p.opts.RecursionLimit {
		return errAt(RecursionDepthExceeded, p.pos)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// parseValue dispatches on the current byte. Precondition: none; it
// itself checks for EOF.
func (p *parser) parseValue() error {
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
		return p.parseList()
	case c == 'd':
		return p.parseDict()
	case isDigit(c):
		return p.parseString()
	default:
		return errAt(ExpectedValue, p.pos)
	}
}

func (p *parser) parseInteger() error {
	start := p.pos
	p.pos++ // consume 'i'

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

	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return errAt(InvalidCharacter, digitsStart)
	}
	if negative {
		n = -n
	}

	p.pos++ // consume 'e'
	return p.sink.Integer(n)
}

// parseStringRaw reads a "<len>:<bytes>" value and returns the raw bytes
// without emitting a sink event, for use both as a standalone value and
// as a dict key.
func (p *parser) parseStringRaw() ([]byte, error) {
	digitsStart := p.pos
	if p.pos >= len(p.data) {
		return nil, errAt(UnexpectedEOF, p.pos)
	}
	if !isDigit(p.data[p.pos]) {
		return nil, errAt(ExpectedDigit, p.pos)
	}
	for p.pos < len(p.data) && isDigit(p.data[p.pos]) {
		p.pos++
	}
	digits := p.data[digitsStart:p.pos]
	if len(digits) > 1 && digits[0] == '0' {
		return nil, errAt(LeadingZero, digitsStart)
	}

	n, err := strconv.ParseUint(string(digits), 10, 63)
	if err != nil {
		return nil, errAt(InvalidCharacter, digitsStart)
	}

	if p.pos >= len(p.data) || p.data[p.pos] != ':' {
		return nil, errAt(ExpectedColon, p.pos)
	}
	p.pos++ // consume ':'

	end := p.pos + int(n)
	if end < p.pos || end > len(p.data) {
		return nil, errAt(UnexpectedEOF, p.pos)
	}
	s := p.data[p.pos:end]
	p.pos = end
	return s, nil
}

func (p *parser) parseString() error {
	s, err := p.parseStringRaw()
	if err != nil {
		return err
	}
	return p.sink.String(s)
}

// canStartValue reports whether c can begin a bencode value.
func canStartValue(c byte) bool { return c == 'i' || c == 'l' || c == 'd' || isDigit(c) }

func (p *parser) parseList() error {
	p.pos++ // consume 'l'
	if err := p.enter(); err != nil {
		return err
	}
	if err := p.sink.ListBegin(); err != nil {
		return err
	}

	for {
		if p.pos >= len(p.data) {
			return errAt(UnexpectedEOF, p.pos)
		}
		if p.data[p.pos] == 'e' {
			p.pos++
			break
		}
		if !canStartValue(p.data[p.pos]) {
			return errAt(ExpectedListValueOrEnd, p.pos)
		}
		if err := p.parseValue(); err != nil {
			return err
		}
	}

	p.leave()
	return p.sink.ListEnd()
}

func (p *parser) parseDict() error {
	p.pos++ // consume 'd'
	if err := p.enter(); err != nil {
		return err
	}
	if err := p.sink.DictBegin(); err != nil {
		return err
	}

	var prevKey []byte
	first := true
	for {
		if p.pos >= len(p.data) {
			return errAt(UnexpectedEOF, p.pos)
		}
		if p.data[p.pos] == 'e' {
			p.pos++
			break
		}
		if !isDigit(p.data[p.pos]) {
			return errAt(ExpectedDictKeyOrEnd, p.pos)
		}

		keyStart := p.pos
		key, err := p.parseStringRaw()
		if err != nil {
			return err
		}
		if !first {
			switch bcmp(key, prevKey) {
			case 0:
				return errAt(DuplicateKey, keyStart)
			case -1:
				return errAt(UnsortedKeys, keyStart)
			}
		}
		prevKey, first = key, false

		if err := p.sink.DictKey(key); err != nil {
			return err
		}

		if p.pos >= len(p.data) || !canStartValue(p.data[p.pos]) {
			return errAt(ExpectedDictValue, p.pos)
		}
		if err := p.sink.DictValueBegin(); err != nil {
			return err
		}
		if err := p.parseValue(); err != nil {
			return err
		}
		if err := p.sink.DictValueEnd(); err != nil {
			return err
		}
	}

	p.leave()
	return p.sink.DictEnd()
}

// bcmp is a tiny byte-slice comparator returning -1/0/1, avoiding an
// import of bytes in the hot parse loop for this single use.
func bcmp(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
