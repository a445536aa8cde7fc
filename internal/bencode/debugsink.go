package bencode

import (
	"fmt"
	"io"
	"strings"
)

// DebugSink is an EventSink that writes a human-readable trace of the
// SAX event stream to w, indented by nesting depth: one line per scalar,
// dict key, and list or dict opening; the end and dict-value events
// print nothing.
// Intended for diagnosing malformed or unexpected metainfo files, not for
// machine consumption.
type DebugSink struct {
	w     io.Writer
	depth int
}

// NewDebugSink returns a DebugSink writing to w.
func NewDebugSink(w io.Writer) *DebugSink { return &DebugSink{w: w} }

func (s *DebugSink) indent() string { return strings.Repeat("  ", s.depth) }

func (s *DebugSink) Integer(v int64) error {
	fmt.Fprintf(s.w, "%sinteger %d\n", s.indent(), v)
	return nil
}

func (s *DebugSink) String(b []byte) error {
	fmt.Fprintf(s.w, "%sstring %q (%d bytes)\n", s.indent(), truncate(b, 64), len(b))
	return nil
}

func (s *DebugSink) ListBegin() error {
	fmt.Fprintf(s.w, "%slist\n", s.indent())
	s.depth++
	return nil
}

func (s *DebugSink) ListEnd() error {
	s.depth--
	return nil
}

func (s *DebugSink) DictBegin() error {
	fmt.Fprintf(s.w, "%sdict\n", s.indent())
	s.depth++
	return nil
}

func (s *DebugSink) DictKey(b []byte) error {
	fmt.Fprintf(s.w, "%skey %q\n", s.indent(), truncate(b, 64))
	return nil
}

func (s *DebugSink) DictValueBegin() error { return nil }
func (s *DebugSink) DictValueEnd() error   { return nil }

func (s *DebugSink) DictEnd() error {
	s.depth--
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
