package bencode

// EventSink receives a SAX-style stream of events from Parse. Integer and
// String report scalar leaves; the Begin/End pairs bracket containers.
// DictKey fires once per entry, immediately before the DictValueBegin/End
// pair that brackets its value. A sink may return an error to abort
// parsing early; Parse returns it unchanged to the caller.
type EventSink interface {
	Integer(v int64) error
	String(b []byte) error
	ListBegin() error
	ListEnd() error
	DictBegin() error
	DictKey(b []byte) error
	DictValueBegin() error
	DictValueEnd() error
	DictEnd() error
}

// NopSink is an EventSink whose methods all no-op and return nil. Embed it
// to implement only the events a particular sink cares about.
type NopSink struct{}

func (NopSink) Integer(v int64) error   { return nil }
func (NopSink) String(b []byte) error   { return nil }
func (NopSink) ListBegin() error        { return nil }
func (NopSink) ListEnd() error          { return nil }
func (NopSink) DictBegin() error        { return nil }
func (NopSink) DictKey(b []byte) error  { return nil }
func (NopSink) DictValueBegin() error   { return nil }
func (NopSink) DictValueEnd() error     { return nil }
func (NopSink) DictEnd() error          { return nil }
