package blueprint

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"
)

// Untyped Plutus Core terms in de Bruijn form, as they travel in the flat
// encoding of a compiled validator.

const (
	termTagBits    = 4
	builtinTagBits = 7
	typeTagBits    = 4
)

const (
	tagVar byte = iota
	tagDelay
	tagLambda
	tagApply
	tagConst
	tagForce
	tagError
	tagBuiltin
	tagConstr
	tagCase
)

const (
	typeInteger    byte = 0
	typeByteString byte = 1
	typeString     byte = 2
	typeUnit       byte = 3
	typeBool       byte = 4
	typeList       byte = 5
	typePair       byte = 6
	typeApply      byte = 7
	typeData       byte = 8
)

var errFlatEOF = errors.New("flat: unexpected end of input")

type term interface{}

type (
	varTerm     struct{ index *big.Int }
	delayTerm   struct{ body term }
	lambdaTerm  struct{ body term }
	applyTerm   struct{ fn, arg term }
	forceTerm   struct{ body term }
	errorTerm   struct{}
	builtinTerm struct{ fn byte }
	constrTerm  struct {
		tag    *big.Int
		fields []term
	}
	caseTerm struct {
		scrutinee term
		branches  []term
	}
	constTerm struct {
		typ   uplcType
		value any
	}
)

// uplcType is a constant type; args holds the element types of list and pair.
type uplcType struct {
	tag  byte
	args []uplcType
}

type pairValue struct {
	first, second any
}

type program struct {
	version [3]*big.Int
	body    term
}

// dataConst wraps CBOR-encoded Plutus data as a constant term.
func dataConst(cborData []byte) term {
	return constTerm{typ: uplcType{tag: typeData}, value: append([]byte(nil), cborData...)}
}

func decodeProgram(buf []byte) (*program, error) {
	r := &bitReader{buf: buf}
	p := &program{}
	for i := range p.version {
		v, err := r.natural()
		if err != nil {
			return nil, fmt.Errorf("flat: version: %w", err)
		}
		p.version[i] = v
	}
	body, err := r.term()
	if err != nil {
		return nil, err
	}
	p.body = body
	if err := r.filler(); err != nil {
		return nil, fmt.Errorf("flat: trailing filler: %w", err)
	}
	if r.pos != len(buf)*8 {
		return nil, fmt.Errorf("flat: %d trailing bits", len(buf)*8-r.pos)
	}
	return p, nil
}

func encodeProgram(p *program) ([]byte, error) {
	w := &bitWriter{}
	for _, v := range p.version {
		w.natural(v)
	}
	if err := w.term(p.body); err != nil {
		return nil, err
	}
	w.filler()
	return w.bytes(), nil
}

type bitReader struct {
	buf []byte
	pos int
}

func (r *bitReader) bit() (byte, error) {
	if r.pos >= len(r.buf)*8 {
		return 0, errFlatEOF
	}
	b := (r.buf[r.pos/8] >> (7 - uint(r.pos%8))) & 1
	r.pos++
	return b, nil
}

func (r *bitReader) bits(n int) (uint64, error) {
	var v uint64
	for i := 0; i < n; i++ {
		b, err := r.bit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | uint64(b)
	}
	return v, nil
}

// natural reads little-endian 7-bit groups, each prefixed by a continuation bit.
func (r *bitReader) natural() (*big.Int, error) {
	out := new(big.Int)
	var shift uint
	for {
		chunk, err := r.bits(8)
		if err != nil {
			return nil, err
		}
		part := new(big.Int).SetUint64(chunk & 0x7f)
		out.Or(out, part.Lsh(part, shift))
		shift += 7
		if chunk&0x80 == 0 {
			return out, nil
		}
	}
}

func (r *bitReader) integer() (*big.Int, error) {
	z, err := r.natural()
	if err != nil {
		return nil, err
	}
	if z.Bit(0) == 0 {
		return z.Rsh(z, 1), nil
	}
	z.Add(z, big.NewInt(1))
	z.Rsh(z, 1)
	return z.Neg(z), nil
}

// filler consumes zero bits up to and including the terminating one bit.
func (r *bitReader) filler() error {
	for {
		b, err := r.bit()
		if err != nil {
			return err
		}
		if b == 1 {
			return nil
		}
	}
}

func (r *bitReader) byteString() ([]byte, error) {
	if err := r.filler(); err != nil {
		return nil, err
	}
	if r.pos%8 != 0 {
		return nil, fmt.Errorf("flat: bytestring not byte aligned")
	}
	out := make([]byte, 0)
	for {
		if r.pos/8 >= len(r.buf) {
			return nil, errFlatEOF
		}
		n := int(r.buf[r.pos/8])
		r.pos += 8
		if n == 0 {
			return out, nil
		}
		start := r.pos / 8
		if start+n > len(r.buf) {
			return nil, errFlatEOF
		}
		out = append(out, r.buf[start:start+n]...)
		r.pos += n * 8
	}
}

// list reads one-bit-prefixed elements until a zero bit.
func (r *bitReader) list(elem func() error) error {
	for {
		more, err := r.bit()
		if err != nil {
			return err
		}
		if more == 0 {
			return nil
		}
		if err := elem(); err != nil {
			return err
		}
	}
}

func (r *bitReader) terms() ([]term, error) {
	var out []term
	err := r.list(func() error {
		t, err := r.term()
		if err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

func (r *bitReader) term() (term, error) {
	tag, err := r.bits(termTagBits)
	if err != nil {
		return nil, err
	}
	switch byte(tag) {
	case tagVar:
		idx, err := r.natural()
		if err != nil {
			return nil, err
		}
		return varTerm{index: idx}, nil
	case tagDelay:
		body, err := r.term()
		if err != nil {
			return nil, err
		}
		return delayTerm{body: body}, nil
	case tagLambda:
		body, err := r.term()
		if err != nil {
			return nil, err
		}
		return lambdaTerm{body: body}, nil
	case tagApply:
		fn, err := r.term()
		if err != nil {
			return nil, err
		}
		arg, err := r.term()
		if err != nil {
			return nil, err
		}
		return applyTerm{fn: fn, arg: arg}, nil
	case tagConst:
		return r.constant()
	case tagForce:
		body, err := r.term()
		if err != nil {
			return nil, err
		}
		return forceTerm{body: body}, nil
	case tagError:
		return errorTerm{}, nil
	case tagBuiltin:
		fn, err := r.bits(builtinTagBits)
		if err != nil {
			return nil, err
		}
		return builtinTerm{fn: byte(fn)}, nil
	case tagConstr:
		ctag, err := r.natural()
		if err != nil {
			return nil, err
		}
		fields, err := r.terms()
		if err != nil {
			return nil, err
		}
		return constrTerm{tag: ctag, fields: fields}, nil
	case tagCase:
		scrutinee, err := r.term()
		if err != nil {
			return nil, err
		}
		branches, err := r.terms()
		if err != nil {
			return nil, err
		}
		return caseTerm{scrutinee: scrutinee, branches: branches}, nil
	default:
		return nil, fmt.Errorf("flat: unknown term tag %d at bit %d", tag, r.pos-termTagBits)
	}
}

func (r *bitReader) constant() (term, error) {
	var tags []byte
	err := r.list(func() error {
		t, err := r.bits(typeTagBits)
		if err != nil {
			return err
		}
		tags = append(tags, byte(t))
		return nil
	})
	if err != nil {
		return nil, err
	}
	typ, rest, err := parseType(tags)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("flat: %d unused type tags", len(rest))
	}
	value, err := r.value(typ)
	if err != nil {
		return nil, err
	}
	return constTerm{typ: typ, value: value}, nil
}

func parseType(tags []byte) (uplcType, []byte, error) {
	if len(tags) == 0 {
		return uplcType{}, nil, fmt.Errorf("flat: empty constant type")
	}
	switch tags[0] {
	case typeInteger, typeByteString, typeString, typeUnit, typeBool, typeData:
		return uplcType{tag: tags[0]}, tags[1:], nil
	case typeApply:
		if len(tags) > 1 && tags[1] == typeList {
			elem, rest, err := parseType(tags[2:])
			if err != nil {
				return uplcType{}, nil, err
			}
			return uplcType{tag: typeList, args: []uplcType{elem}}, rest, nil
		}
		if len(tags) > 2 && tags[1] == typeApply && tags[2] == typePair {
			first, rest, err := parseType(tags[3:])
			if err != nil {
				return uplcType{}, nil, err
			}
			second, rest, err := parseType(rest)
			if err != nil {
				return uplcType{}, nil, err
			}
			return uplcType{tag: typePair, args: []uplcType{first, second}}, rest, nil
		}
		return uplcType{}, nil, fmt.Errorf("flat: unsupported type application")
	default:
		return uplcType{}, nil, fmt.Errorf("flat: unsupported constant type %d", tags[0])
	}
}

func (r *bitReader) value(typ uplcType) (any, error) {
	switch typ.tag {
	case typeInteger:
		return r.integer()
	case typeByteString, typeData:
		return r.byteString()
	case typeString:
		raw, err := r.byteString()
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("flat: string constant is not utf-8")
		}
		return string(raw), nil
	case typeUnit:
		return struct{}{}, nil
	case typeBool:
		b, err := r.bit()
		if err != nil {
			return nil, err
		}
		return b == 1, nil
	case typeList:
		var items []any
		err := r.list(func() error {
			v, err := r.value(typ.args[0])
			if err != nil {
				return err
			}
			items = append(items, v)
			return nil
		})
		return items, err
	case typePair:
		first, err := r.value(typ.args[0])
		if err != nil {
			return nil, err
		}
		second, err := r.value(typ.args[1])
		if err != nil {
			return nil, err
		}
		return pairValue{first: first, second: second}, nil
	default:
		return nil, fmt.Errorf("flat: unsupported constant type %d", typ.tag)
	}
}

type bitWriter struct {
	buf  []byte
	used int
}

func (w *bitWriter) bit(b byte) {
	if w.used%8 == 0 {
		w.buf = append(w.buf, 0)
	}
	if b != 0 {
		w.buf[len(w.buf)-1] |= 1 << (7 - uint(w.used%8))
	}
	w.used++
}

func (w *bitWriter) bits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bit(byte(v>>uint(i)) & 1)
	}
}

func (w *bitWriter) natural(v *big.Int) {
	d := new(big.Int).Set(v)
	mask := big.NewInt(0x7f)
	for {
		chunk := new(big.Int).And(d, mask).Uint64()
		d.Rsh(d, 7)
		if d.Sign() != 0 {
			chunk |= 0x80
		}
		w.bits(chunk, 8)
		if d.Sign() == 0 {
			return
		}
	}
}

func (w *bitWriter) integer(v *big.Int) {
	z := new(big.Int).Lsh(v, 1)
	if v.Sign() < 0 {
		z.Neg(z)
		z.Sub(z, big.NewInt(1))
	}
	w.natural(z)
}

// filler pads with zero bits and a final one bit up to the next byte boundary.
func (w *bitWriter) filler() {
	for w.used%8 != 7 {
		w.bit(0)
	}
	w.bit(1)
}

func (w *bitWriter) byteString(b []byte) {
	w.filler()
	for len(b) > 0 {
		n := len(b)
		if n > 255 {
			n = 255
		}
		w.bits(uint64(n), 8)
		for _, c := range b[:n] {
			w.bits(uint64(c), 8)
		}
		b = b[n:]
	}
	w.bits(0, 8)
}

func (w *bitWriter) terms(ts []term) error {
	for _, t := range ts {
		w.bit(1)
		if err := w.term(t); err != nil {
			return err
		}
	}
	w.bit(0)
	return nil
}

func (w *bitWriter) term(t term) error {
	switch v := t.(type) {
	case varTerm:
		w.bits(uint64(tagVar), termTagBits)
		w.natural(v.index)
	case delayTerm:
		w.bits(uint64(tagDelay), termTagBits)
		return w.term(v.body)
	case lambdaTerm:
		w.bits(uint64(tagLambda), termTagBits)
		return w.term(v.body)
	case applyTerm:
		w.bits(uint64(tagApply), termTagBits)
		if err := w.term(v.fn); err != nil {
			return err
		}
		return w.term(v.arg)
	case constTerm:
		w.bits(uint64(tagConst), termTagBits)
		for _, tag := range typeTags(v.typ) {
			w.bit(1)
			w.bits(uint64(tag), typeTagBits)
		}
		w.bit(0)
		return w.value(v.typ, v.value)
	case forceTerm:
		w.bits(uint64(tagForce), termTagBits)
		return w.term(v.body)
	case errorTerm:
		w.bits(uint64(tagError), termTagBits)
	case builtinTerm:
		w.bits(uint64(tagBuiltin), termTagBits)
		w.bits(uint64(v.fn), builtinTagBits)
	case constrTerm:
		w.bits(uint64(tagConstr), termTagBits)
		w.natural(v.tag)
		return w.terms(v.fields)
	case caseTerm:
		w.bits(uint64(tagCase), termTagBits)
		if err := w.term(v.scrutinee); err != nil {
			return err
		}
		return w.terms(v.branches)
	default:
		return fmt.Errorf("flat: cannot encode %T", t)
	}
	return nil
}

func typeTags(typ uplcType) []byte {
	switch typ.tag {
	case typeList:
		return append([]byte{typeApply, typeList}, typeTags(typ.args[0])...)
	case typePair:
		out := []byte{typeApply, typeApply, typePair}
		out = append(out, typeTags(typ.args[0])...)
		return append(out, typeTags(typ.args[1])...)
	default:
		return []byte{typ.tag}
	}
}

func (w *bitWriter) value(typ uplcType, v any) error {
	switch typ.tag {
	case typeInteger:
		n, ok := v.(*big.Int)
		if !ok {
			return fmt.Errorf("flat: integer constant holds %T", v)
		}
		w.integer(n)
	case typeByteString, typeData:
		b, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("flat: bytestring constant holds %T", v)
		}
		w.byteString(b)
	case typeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("flat: string constant holds %T", v)
		}
		w.byteString([]byte(s))
	case typeUnit:
	case typeBool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("flat: bool constant holds %T", v)
		}
		if b {
			w.bit(1)
		} else {
			w.bit(0)
		}
	case typeList:
		items, ok := v.([]any)
		if !ok && v != nil {
			return fmt.Errorf("flat: list constant holds %T", v)
		}
		for _, item := range items {
			w.bit(1)
			if err := w.value(typ.args[0], item); err != nil {
				return err
			}
		}
		w.bit(0)
	case typePair:
		p, ok := v.(pairValue)
		if !ok {
			return fmt.Errorf("flat: pair constant holds %T", v)
		}
		if err := w.value(typ.args[0], p.first); err != nil {
			return err
		}
		return w.value(typ.args[1], p.second)
	default:
		return fmt.Errorf("flat: unsupported constant type %d", typ.tag)
	}
	return nil
}

func (w *bitWriter) bytes() []byte {
	return w.buf
}
