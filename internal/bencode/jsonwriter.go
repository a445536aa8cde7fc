package bencode

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
)

// JSONSink is an EventSink that renders the parsed value as JSON to w,
// suitable for a human- or tool-facing "--raw" dump of a metafile's
// bencode structure. Bencode byte strings are not valid UTF-8 in
// general, so JSONSink renders every string value as a base64-encoded
// JSON string rather than guessing at text decoding; this keeps the
// output lossless and diffable.
type JSONSink struct {
	w          io.Writer
	err        error
	needsComma []bool // per open container, whether a comma is needed before the next element
	pendingKey bool
}

// NewJSONSink returns a JSONSink writing to w.
func NewJSONSink(w io.Writer) *JSONSink { return &JSONSink{w: w} }

func (s *JSONSink) writeStr(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

func (s *JSONSink) beforeValue() {
	n := len(s.needsComma)
	if n == 0 {
		return
	}
	if s.pendingKey {
		s.pendingKey = false
		return // a ':' already separated key from value; no comma needed
	}
	if s.needsComma[n-1] {
		s.writeStr(",")
	}
	s.needsComma[n-1] = true
}

func (s *JSONSink) Integer(v int64) error {
	s.beforeValue()
	s.writeStr(strconv.FormatInt(v, 10))
	return s.err
}

func (s *JSONSink) String(b []byte) error {
	s.beforeValue()
	s.writeStr(fmt.Sprintf("{\"b64\":%q}", base64.StdEncoding.EncodeToString(b)))
	return s.err
}

func (s *JSONSink) ListBegin() error {
	s.beforeValue()
	s.writeStr("[")
	s.needsComma = append(s.needsComma, false)
	return s.err
}

func (s *JSONSink) ListEnd() error {
	s.needsComma = s.needsComma[:len(s.needsComma)-1]
	s.writeStr("]")
	return s.err
}

func (s *JSONSink) DictBegin() error {
	s.beforeValue()
	s.writeStr("{")
	s.needsComma = append(s.needsComma, false)
	return s.err
}

func (s *JSONSink) DictKey(b []byte) error {
	n := len(s.needsComma)
	if s.needsComma[n-1] {
		s.writeStr(",")
	}
	s.needsComma[n-1] = true
	s.writeStr(fmt.Sprintf("%q:", string(b)))
	s.pendingKey = true
	return s.err
}

func (s *JSONSink) DictValueBegin() error { return nil }
func (s *JSONSink) DictValueEnd() error   { return nil }

func (s *JSONSink) DictEnd() error {
	s.needsComma = s.needsComma[:len(s.needsComma)-1]
	s.writeStr("}")
	return s.err
}
