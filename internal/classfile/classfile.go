// Package classfile decodes compiled Java class files into model types.
//
// Decode is a pure function of its input: it does no I/O and keeps no state
// between calls, so units may be decoded concurrently.
package classfile

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/phobologic/japicheck/internal/descriptor"
	"github.com/phobologic/japicheck/internal/model"
)

const (
	magic = 0xCAFEBABE

	// MinMajor and MaxMajor bound the accepted format versions
	// (1.0.2 through 27).
	MinMajor = 45
	MaxMajor = 71
)

const deprecatedAnnotation = "Ljava/lang/Deprecated;"

// maxElementDepth bounds annotation element value nesting.
const maxElementDepth = 256

// Decode decodes one class file. Errors match model.ErrMalformedUnit and
// wrap one of this package's sentinels.
func Decode(data []byte) (*model.Type, error) {
	d := &decoder{r: &reader{buf: data}}
	t, err := d.decode()
	if err != nil {
		var ue *model.UnitError
		if errors.As(err, &ue) {
			return nil, err
		}
		return nil, &model.UnitError{Offset: d.r.pos(), Err: err}
	}
	return t, nil
}

type decoder struct {
	r     *reader
	pool  pool
	major uint16
	name  string
}

// attr is a raw attribute record.
type attr struct {
	name string
	body *reader
	data []byte
}

func (d *decoder) fail(offset int, reason string, err error) error {
	return &model.UnitError{Offset: offset, Reason: reason, Err: err}
}

func (d *decoder) decode() (*model.Type, error) {
	r := d.r
	m, err := r.u4()
	if err != nil {
		return nil, err
	}
	if m != magic {
		return nil, d.fail(0, fmt.Sprintf("magic %#08x", m), ErrInvalidMagic)
	}
	minor, err := r.u2()
	if err != nil {
		return nil, err
	}
	if d.major, err = r.u2(); err != nil {
		return nil, err
	}
	if d.major < MinMajor || d.major > MaxMajor {
		return nil, d.fail(6, fmt.Sprintf("major version %d", d.major), ErrUnsupportedVersion)
	}
	if d.pool, err = readPool(r); err != nil {
		return nil, d.fail(r.pos(), "constant pool", err)
	}

	access, err := r.u2()
	if err != nil {
		return nil, err
	}
	if access&accModule != 0 {
		return nil, d.fail(r.pos()-2, "module descriptor is not a type", ErrBadAttribute)
	}
	thisIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	if d.name, err = d.pool.className(thisIdx); err != nil {
		return nil, d.fail(r.pos()-2, "this_class", err)
	}
	superIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	var superName string
	if superIdx != 0 {
		if superName, err = d.pool.className(superIdx); err != nil {
			return nil, d.fail(r.pos()-2, "super_class", err)
		}
	} else if d.name != "java/lang/Object" {
		return nil, d.fail(r.pos()-2, "missing super class", ErrBadConstantIndex)
	}

	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	interfaces := make([]string, 0, n)
	for range n {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		in, err := d.pool.className(idx)
		if err != nil {
			return nil, d.fail(r.pos()-2, "interface", err)
		}
		interfaces = append(interfaces, in)
	}

	t := model.NewType(nil, model.TypeSpec{
		Name:       d.name,
		Kind:       kind(access),
		Visibility: visibility(access),
		Modifiers:  modifiers(access, d.major, classFlags),
		SuperName:  superName,
		Interfaces: interfaces,
		Version:    model.FormatVersion{Major: d.major, Minor: minor},
	})

	if n, err = r.u2(); err != nil {
		return nil, err
	}
	for range n {
		f, err := d.field(t)
		if err != nil {
			return nil, err
		}
		t.AddField(f)
	}

	if n, err = r.u2(); err != nil {
		return nil, err
	}
	for range n {
		m, err := d.method(t)
		if err != nil {
			return nil, err
		}
		t.AddMethod(m)
	}

	attrs, err := d.attributes(r)
	if err != nil {
		return nil, err
	}
	if err := d.classAttributes(t, attrs); err != nil {
		return nil, err
	}

	if r.remaining() != 0 {
		return nil, d.fail(r.pos(), fmt.Sprintf("%d bytes after attributes", r.remaining()), ErrTrailingData)
	}
	return t, nil
}

// attributes reads an attribute table from r.
func (d *decoder) attributes(r *reader) ([]attr, error) {
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	attrs := make([]attr, 0, n)
	for range n {
		start := r.pos()
		nameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := d.pool.utf8(nameIdx)
		if err != nil {
			return nil, d.fail(start, "attribute name", err)
		}
		length, err := r.u4()
		if err != nil {
			return nil, err
		}
		if uint64(length) > uint64(r.remaining()) {
			return nil, d.fail(start, fmt.Sprintf("attribute %s length %d", name, length), ErrTruncated)
		}
		body, err := r.sub(int(length))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr{name: name, body: body, data: body.buf})
	}
	return attrs, nil
}

// memberInfo holds the attribute-derived properties shared by fields and
// methods.
type memberInfo struct {
	mods       model.Modifiers
	signature  string
	constant   any
	exceptions []string
	firstLine  int
	opaque     []model.Attribute
}

func (d *decoder) memberAttributes(attrs []attr) (memberInfo, error) {
	var info memberInfo
	for _, a := range attrs {
		var err error
		switch a.name {
		case "Signature":
			info.signature, err = d.signature(a)
		case "Deprecated":
			info.mods |= model.Deprecated
		case "Synthetic":
			info.mods |= model.Synthetic
		case "ConstantValue":
			info.constant, err = d.constantValue(a)
		case "Exceptions":
			info.exceptions, err = d.exceptions(a)
		case "Code":
			info.firstLine, err = d.code(a)
		case "RuntimeVisibleAnnotations":
			var deprecated bool
			if deprecated, err = d.annotations(a); deprecated {
				info.mods |= model.Deprecated
			}
			info.opaque = append(info.opaque, opaque(a))
		default:
			info.opaque = append(info.opaque, opaque(a))
		}
		if err != nil {
			return info, d.fail(a.body.base, a.name, err)
		}
	}
	return info, nil
}

func (d *decoder) field(owner *model.Type) (*model.Field, error) {
	access, name, desc, err := d.memberHeader()
	if err != nil {
		return nil, err
	}
	if err := descriptor.ValidateField(desc); err != nil {
		return nil, d.fail(d.r.pos()-2, "field "+name, err)
	}
	attrs, err := d.attributes(d.r)
	if err != nil {
		return nil, err
	}
	info, err := d.memberAttributes(attrs)
	if err != nil {
		return nil, err
	}
	return model.NewField(owner, model.FieldSpec{
		Name:       name,
		Visibility: visibility(access),
		Modifiers:  modifiers(access, d.major, fieldFlags) | info.mods,
		Type:       desc,
		Signature:  info.signature,
		Constant:   info.constant,
		Attributes: info.opaque,
	}), nil
}

func (d *decoder) method(owner *model.Type) (*model.Method, error) {
	access, name, desc, err := d.memberHeader()
	if err != nil {
		return nil, err
	}
	params, ret, err := descriptor.ParseMethod(desc)
	if err != nil {
		return nil, d.fail(d.r.pos()-2, "method "+name, err)
	}
	attrs, err := d.attributes(d.r)
	if err != nil {
		return nil, err
	}
	info, err := d.memberAttributes(attrs)
	if err != nil {
		return nil, err
	}
	return model.NewMethod(owner, model.MethodSpec{
		Name:       name,
		Visibility: visibility(access),
		Modifiers:  modifiers(access, d.major, methodFlags) | info.mods,
		Parameters: params,
		Return:     ret,
		Signature:  info.signature,
		Exceptions: info.exceptions,
		FirstLine:  info.firstLine,
		Attributes: info.opaque,
	}), nil
}

func (d *decoder) memberHeader() (access uint16, name, desc string, err error) {
	r := d.r
	if access, err = r.u2(); err != nil {
		return
	}
	idx, err := r.u2()
	if err != nil {
		return
	}
	if name, err = d.pool.utf8(idx); err != nil {
		err = d.fail(r.pos()-2, "member name", err)
		return
	}
	if idx, err = r.u2(); err != nil {
		return
	}
	if desc, err = d.pool.utf8(idx); err != nil {
		err = d.fail(r.pos()-2, "member descriptor", err)
	}
	return
}

func (d *decoder) classAttributes(t *model.Type, attrs []attr) error {
	var mods model.Modifiers
	for _, a := range attrs {
		var err error
		switch a.name {
		case "SourceFile":
			var idx uint16
			if idx, err = exactU2(a); err == nil {
				var name string
				if name, err = d.pool.utf8(idx); err == nil {
					t.SetSourceFile(name)
				}
			}
		case "Signature":
			var sig string
			if sig, err = d.signature(a); err == nil {
				t.SetSignature(sig)
			}
		case "Deprecated":
			mods |= model.Deprecated
		case "Synthetic":
			mods |= model.Synthetic
		case "InnerClasses":
			err = d.innerClasses(t, a)
		case "RuntimeVisibleAnnotations":
			var deprecated bool
			if deprecated, err = d.annotations(a); deprecated {
				mods |= model.Deprecated
			}
			t.AddAttribute(opaque(a))
		default:
			t.AddAttribute(opaque(a))
		}
		if err != nil {
			return d.fail(a.body.base, a.name, err)
		}
	}
	// Applied last: an InnerClasses self entry replaces the header flags.
	if mods != 0 {
		t.Refine(t.Visibility(), t.Modifiers()|mods, "")
	}
	return nil
}

// innerClasses records member types declared by t and applies the entry
// describing t itself.
func (d *decoder) innerClasses(t *model.Type, a attr) error {
	r := a.body
	n, err := r.u2()
	if err != nil {
		return err
	}
	if r.remaining() != int(n)*8 {
		return fmt.Errorf("%w: %d entries in %d bytes", ErrBadAttribute, n, r.remaining())
	}
	for range n {
		var e [4]uint16
		for i := range e {
			if e[i], err = r.u2(); err != nil {
				return err
			}
		}
		inner, err := d.pool.className(e[0])
		if err != nil {
			return err
		}
		var outer string
		if e[1] != 0 {
			if outer, err = d.pool.className(e[1]); err != nil {
				return err
			}
		}
		if e[2] != 0 {
			if _, err := d.pool.utf8(e[2]); err != nil {
				return err
			}
		}
		flags := e[3]
		switch {
		case inner == d.name:
			t.Refine(visibility(flags), modifiers(flags, d.major, innerClassFlags)|t.Modifiers()&(model.Deprecated|model.Synthetic), outer)
		case outer == d.name:
			t.AddNested(model.NewType(t, model.TypeSpec{
				Name:       inner,
				Kind:       kind(flags),
				Visibility: visibility(flags),
				Modifiers:  modifiers(flags, d.major, innerClassFlags),
			}))
		}
	}
	return nil
}

func (d *decoder) signature(a attr) (string, error) {
	idx, err := exactU2(a)
	if err != nil {
		return "", err
	}
	return d.pool.utf8(idx)
}

func (d *decoder) constantValue(a attr) (any, error) {
	idx, err := exactU2(a)
	if err != nil {
		return nil, err
	}
	return d.pool.value(idx)
}

func (d *decoder) exceptions(a attr) ([]string, error) {
	r := a.body
	n, err := r.u2()
	if err != nil {
		return nil, err
	}
	if r.remaining() != int(n)*2 {
		return nil, fmt.Errorf("%w: %d exceptions in %d bytes", ErrBadAttribute, n, r.remaining())
	}
	out := make([]string, 0, n)
	for range n {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := d.pool.className(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// code extracts the first recorded source line from a Code attribute. The
// instructions themselves are skipped.
func (d *decoder) code(a attr) (int, error) {
	r := a.body
	if err := r.skip(4); err != nil { // max_stack, max_locals
		return 0, err
	}
	n, err := r.u4()
	if err != nil {
		return 0, err
	}
	if err := r.skip(int(n)); err != nil {
		return 0, err
	}
	handlers, err := r.u2()
	if err != nil {
		return 0, err
	}
	if err := r.skip(int(handlers) * 8); err != nil {
		return 0, err
	}
	attrs, err := d.attributes(r)
	if err != nil {
		return 0, err
	}
	if r.remaining() != 0 {
		return 0, ErrTrailingData
	}
	for _, in := range attrs {
		if in.name != "LineNumberTable" {
			continue
		}
		lr := in.body
		count, err := lr.u2()
		if err != nil {
			return 0, err
		}
		if lr.remaining() != int(count)*4 {
			return 0, fmt.Errorf("%w: LineNumberTable", ErrBadAttribute)
		}
		if count > 0 {
			if err := lr.skip(2); err != nil { // start_pc
				return 0, err
			}
			line, err := lr.u2()
			if err != nil {
				return 0, err
			}
			return int(line), nil
		}
	}
	return 0, nil
}

// annotations walks a RuntimeVisibleAnnotations attribute and reports
// whether it carries the standard deprecation annotation.
func (d *decoder) annotations(a attr) (bool, error) {
	r := &reader{buf: a.data, base: a.body.base}
	n, err := r.u2()
	if err != nil {
		return false, err
	}
	deprecated := false
	for range n {
		typ, err := d.annotation(r, 0)
		if err != nil {
			return false, err
		}
		if typ == deprecatedAnnotation {
			deprecated = true
		}
	}
	if r.remaining() != 0 {
		return false, ErrTrailingData
	}
	return deprecated, nil
}

func (d *decoder) annotation(r *reader, depth int) (string, error) {
	idx, err := r.u2()
	if err != nil {
		return "", err
	}
	typ, err := d.pool.utf8(idx)
	if err != nil {
		return "", err
	}
	pairs, err := r.u2()
	if err != nil {
		return "", err
	}
	for range pairs {
		if err := r.skip(2); err != nil { // element_name_index
			return "", err
		}
		if err := d.elementValue(r, depth+1); err != nil {
			return "", err
		}
	}
	return typ, nil
}

func (d *decoder) elementValue(r *reader, depth int) error {
	if depth > maxElementDepth {
		return fmt.Errorf("%w: element values nested deeper than %d", ErrBadAttribute, maxElementDepth)
	}
	tag, err := r.u1()
	if err != nil {
		return err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		return r.skip(2)
	case 'e':
		return r.skip(4)
	case '@':
		_, err := d.annotation(r, depth+1)
		return err
	case '[':
		n, err := r.u2()
		if err != nil {
			return err
		}
		for range n {
			if err := d.elementValue(r, depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: element value tag %q", ErrBadAttribute, tag)
	}
}

func exactU2(a attr) (uint16, error) {
	if len(a.data) != 2 {
		return 0, fmt.Errorf("%w: length %d, want 2", ErrBadAttribute, len(a.data))
	}
	return a.body.u2()
}

func opaque(a attr) model.Attribute {
	return model.Attribute{Name: a.name, Data: bytes.Clone(a.data)}
}
