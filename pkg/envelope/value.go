package envelope

import "fmt"

// ValueKind discriminates the tagged union Value represents on the wire.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindText
	KindInteger
	KindFloat
	KindBoolean
)

// Value is the document field union: every field in a Document's Fields
// map holds one of these. It round-trips through msgpack as a compact
// struct rather than an interface{}, so decoders in other languages don't
// need type-registry tricks to read it back.
type Value struct {
	Kind ValueKind `msgpack:"k"`
	Text string    `msgpack:"t,omitempty"`
	Int  int64     `msgpack:"i,omitempty"`
	Flt  float64   `msgpack:"f,omitempty"`
	Bool bool      `msgpack:"b,omitempty"`
}

func Null() Value                { return Value{Kind: KindNull} }
func Text(s string) Value        { return Value{Kind: KindText, Text: s} }
func Integer(n int64) Value      { return Value{Kind: KindInteger, Int: n} }
func Float(f float64) Value      { return Value{Kind: KindFloat, Flt: f} }
func Boolean(b bool) Value       { return Value{Kind: KindBoolean, Bool: b} }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsText returns the text payload and whether Kind was KindText.
func (v Value) AsText() (string, bool) { return v.Text, v.Kind == KindText }

// AsInteger returns the integer payload and whether Kind was KindInteger.
func (v Value) AsInteger() (int64, bool) { return v.Int, v.Kind == KindInteger }

// AsFloat returns the float payload, widening KindInteger so numeric
// scan filters don't need to special-case which numeric kind they hit.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Flt, true
	case KindInteger:
		return float64(v.Int), true
	default:
		return 0, false
	}
}

// AsBoolean returns the boolean payload and whether Kind was KindBoolean.
func (v Value) AsBoolean() (bool, bool) { return v.Bool, v.Kind == KindBoolean }

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindText:
		return v.Text
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Flt)
	case KindBoolean:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return "?"
	}
}
