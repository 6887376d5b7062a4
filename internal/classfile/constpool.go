package classfile

import (
	"fmt"
	"math"
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag  uint8
	a, b uint16 // index operands, meaning depends on tag
	str  string // tagUtf8
	val  any    // numeric constants
}

// pool is a decoded constant pool. Index 0 and the slot following a long or
// double entry hold the zero constant (tag 0) and are never valid targets.
type pool []constant

func readPool(r *reader) (pool, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: empty constant pool", ErrBadConstantIndex)
	}
	p := make(pool, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		c := constant{tag: tag}
		switch tag {
		case tagUtf8:
			n, err := r.u2()
			if err != nil {
				return nil, err
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return nil, err
			}
			if c.str, err = decodeModifiedUTF8(b); err != nil {
				return nil, fmt.Errorf("constant %d: %w", i, err)
			}
		case tagInteger:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			c.val = int32(v)
		case tagFloat:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			c.val = math.Float32frombits(v)
		case tagLong, tagDouble:
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			if tag == tagLong {
				c.val = int64(v)
			} else {
				c.val = math.Float64frombits(v)
			}
			if i+1 >= int(count) {
				return nil, fmt.Errorf("%w: wide constant %d overruns pool", ErrBadConstantIndex, i)
			}
			p[i] = c
			i++ // the following slot is unusable
			continue
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			if c.a, err = r.u2(); err != nil {
				return nil, err
			}
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			if c.a, err = r.u2(); err != nil {
				return nil, err
			}
			if c.b, err = r.u2(); err != nil {
				return nil, err
			}
		case tagMethodHandle:
			kind, err := r.u1()
			if err != nil {
				return nil, err
			}
			if kind < 1 || kind > 9 {
				return nil, fmt.Errorf("%w: constant %d: reference kind %d", ErrBadConstantTag, i, kind)
			}
			c.a = uint16(kind)
			if c.b, err = r.u2(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: constant %d has tag %d", ErrBadConstantTag, i, tag)
		}
		p[i] = c
	}
	return p, p.validate()
}

// validate checks that every index operand refers to an entry of the
// expected kind.
func (p pool) validate() error {
	for i, c := range p {
		var err error
		switch c.tag {
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			err = p.expect(c.a, tagUtf8)
		case tagFieldref, tagMethodref, tagInterfaceMethodref:
			if err = p.expect(c.a, tagClass); err == nil {
				err = p.expect(c.b, tagNameAndType)
			}
		case tagNameAndType:
			if err = p.expect(c.a, tagUtf8); err == nil {
				err = p.expect(c.b, tagUtf8)
			}
		case tagDynamic, tagInvokeDynamic:
			// c.a indexes the bootstrap method table, not the pool.
			err = p.expect(c.b, tagNameAndType)
		case tagMethodHandle:
			err = p.expect(c.b, tagFieldref, tagMethodref, tagInterfaceMethodref)
		}
		if err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}
	return nil
}

func (p pool) entry(idx uint16) (constant, error) {
	if idx == 0 || int(idx) >= len(p) || p[idx].tag == 0 {
		return constant{}, fmt.Errorf("%w: %d", ErrBadConstantIndex, idx)
	}
	return p[idx], nil
}

func (p pool) expect(idx uint16, tags ...uint8) error {
	c, err := p.entry(idx)
	if err != nil {
		return err
	}
	for _, t := range tags {
		if c.tag == t {
			return nil
		}
	}
	return fmt.Errorf("%w: index %d has tag %d", ErrBadConstantTag, idx, c.tag)
}

func (p pool) utf8(idx uint16) (string, error) {
	if err := p.expect(idx, tagUtf8); err != nil {
		return "", err
	}
	return p[idx].str, nil
}

// className resolves a Class constant to its internal name.
func (p pool) className(idx uint16) (string, error) {
	if err := p.expect(idx, tagClass); err != nil {
		return "", err
	}
	return p[p[idx].a].str, nil
}

// value resolves a ConstantValue operand: a numeric entry or a String.
func (p pool) value(idx uint16) (any, error) {
	c, err := p.entry(idx)
	if err != nil {
		return nil, err
	}
	switch c.tag {
	case tagInteger, tagFloat, tagLong, tagDouble:
		return c.val, nil
	case tagString:
		return p[c.a].str, nil
	default:
		return nil, fmt.Errorf("%w: index %d has tag %d", ErrBadConstantTag, idx, c.tag)
	}
}
