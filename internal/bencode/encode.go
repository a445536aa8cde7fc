package bencode

import (
	"bytes"
	"io"
	"strconv"
)

// Encode writes v to w in canonical bencode form: shortest decimal
// integers, no leading zeros, no negative zero (neither is reachable
// through the Value API since NewInteger takes an int64), and dict keys
// in ascending byte order (guaranteed by Dict).
func Encode(v *Value, w io.Writer) error {
	e := &encoder{w: w}
	return e.encodeValue(v)
}

// EncodeToBytes is Encode into a freshly allocated buffer.
func EncodeToBytes(v *Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(v, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeString(s string) { e.write([]byte(s)) }

func (e *encoder) encodeValue(v *Value) error {
	switch v.kind {
	case KindInteger:
		e.writeString("i")
		e.writeString(strconv.FormatInt(v.i, 10))
		e.writeString("e")
	case KindString:
		e.writeString(strconv.Itoa(len(v.s)))
		e.writeString(":")
		e.write(v.s)
	case KindList:
		e.writeString("l")
		for _, item := range v.list {
			if e.err != nil {
				break
			}
			e.err = e.encodeValue(item)
		}
		e.writeString("e")
	case KindDict:
		e.writeString("d")
		for _, entry := range v.dict.entries {
			if e.err != nil {
				break
			}
			e.writeString(strconv.Itoa(len(entry.key)))
			e.writeString(":")
			e.write(entry.key)
			e.err = e.encodeValue(entry.value)
		}
		e.writeString("e")
	}
	return e.err
}
