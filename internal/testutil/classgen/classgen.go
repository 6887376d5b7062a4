// Package classgen assembles class files and jars for tests.
package classgen

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zip"
)

// Access flags.
const (
	Public     = 0x0001
	Private    = 0x0002
	Protected  = 0x0004
	Static     = 0x0008
	Final      = 0x0010
	Super      = 0x0020
	Bridge     = 0x0040
	Interface  = 0x0200
	Abstract   = 0x0400
	Synthetic  = 0x1000
	Annotation = 0x2000
	Enum       = 0x4000
)

// Attr produces one attribute, allocating pool entries as needed.
type Attr func(p *Pool) (name string, data []byte)

// Member is a field or method.
type Member struct {
	Access uint16
	Name   string
	Desc   string
	Attrs  []Attr
}

// Class describes a class file. Zero Major means 52; empty Super means
// java/lang/Object unless NoSuper is set.
type Class struct {
	Major      uint16
	Minor      uint16
	Access     uint16
	Name       string
	Super      string
	NoSuper    bool
	Interfaces []string
	Fields     []Member
	Methods    []Member
	Attrs      []Attr
}

// Pool is a constant pool under construction. Entries are deduplicated.
type Pool struct {
	buf   []byte
	next  uint16
	index map[string]uint16
}

func newPool() *Pool {
	return &Pool{next: 1, index: map[string]uint16{}}
}

func (p *Pool) add(key string, wide bool, entry []byte) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := p.next
	p.index[key] = idx
	p.buf = append(p.buf, entry...)
	p.next++
	if wide {
		p.next++
	}
	return idx
}

func (p *Pool) Utf8(s string) uint16 {
	e := []byte{1}
	e = binary.BigEndian.AppendUint16(e, uint16(len(s)))
	e = append(e, s...)
	return p.add("u:"+s, false, e)
}

func (p *Pool) Class(name string) uint16 {
	e := binary.BigEndian.AppendUint16([]byte{7}, p.Utf8(name))
	return p.add("c:"+name, false, e)
}

func (p *Pool) String(s string) uint16 {
	e := binary.BigEndian.AppendUint16([]byte{8}, p.Utf8(s))
	return p.add("s:"+s, false, e)
}

func (p *Pool) Integer(v int32) uint16 {
	e := binary.BigEndian.AppendUint32([]byte{3}, uint32(v))
	return p.add("i:"+string(e), false, e)
}

func (p *Pool) Long(v int64) uint16 {
	e := binary.BigEndian.AppendUint64([]byte{5}, uint64(v))
	return p.add("j:"+string(e), true, e)
}

func (p *Pool) Double(v float64) uint16 {
	e := binary.BigEndian.AppendUint64([]byte{6}, math.Float64bits(v))
	return p.add("d:"+string(e), true, e)
}

// Raw appends an arbitrary pre-encoded entry.
func (p *Pool) Raw(entry []byte) uint16 {
	return p.add("r:"+string(entry), false, entry)
}

func u2(v uint16) []byte { return binary.BigEndian.AppendUint16(nil, v) }

// SourceFile is a SourceFile attribute.
func SourceFile(name string) Attr {
	return func(p *Pool) (string, []byte) { return "SourceFile", u2(p.Utf8(name)) }
}

// Signature is a Signature attribute.
func Signature(sig string) Attr {
	return func(p *Pool) (string, []byte) { return "Signature", u2(p.Utf8(sig)) }
}

// Deprecated is an empty Deprecated attribute.
func Deprecated() Attr {
	return func(*Pool) (string, []byte) { return "Deprecated", nil }
}

// SyntheticAttr is an empty Synthetic attribute.
func SyntheticAttr() Attr {
	return func(*Pool) (string, []byte) { return "Synthetic", nil }
}

// ConstantInt is a ConstantValue attribute holding an Integer.
func ConstantInt(v int32) Attr {
	return func(p *Pool) (string, []byte) { return "ConstantValue", u2(p.Integer(v)) }
}

// ConstantLong is a ConstantValue attribute holding a Long.
func ConstantLong(v int64) Attr {
	return func(p *Pool) (string, []byte) { return "ConstantValue", u2(p.Long(v)) }
}

// ConstantString is a ConstantValue attribute holding a String.
func ConstantString(s string) Attr {
	return func(p *Pool) (string, []byte) { return "ConstantValue", u2(p.String(s)) }
}

// Exceptions is an Exceptions attribute.
func Exceptions(names ...string) Attr {
	return func(p *Pool) (string, []byte) {
		b := u2(uint16(len(names)))
		for _, n := range names {
			b = binary.BigEndian.AppendUint16(b, p.Class(n))
		}
		return "Exceptions", b
	}
}

// Code is a Code attribute with a single return instruction and, when
// lines is not empty, a LineNumberTable.
func Code(lines ...uint16) Attr {
	return func(p *Pool) (string, []byte) {
		b := []byte{0, 1, 0, 1}                 // max_stack, max_locals
		b = binary.BigEndian.AppendUint32(b, 1) // code_length
		b = append(b, 0xB1)                     // return
		b = binary.BigEndian.AppendUint16(b, 0) // exception_table_length
		if len(lines) == 0 {
			return "Code", binary.BigEndian.AppendUint16(b, 0)
		}
		b = binary.BigEndian.AppendUint16(b, 1)
		b = binary.BigEndian.AppendUint16(b, p.Utf8("LineNumberTable"))
		b = binary.BigEndian.AppendUint32(b, uint32(2+4*len(lines)))
		b = binary.BigEndian.AppendUint16(b, uint16(len(lines)))
		for i, l := range lines {
			b = binary.BigEndian.AppendUint16(b, uint16(i))
			b = binary.BigEndian.AppendUint16(b, l)
		}
		return "Code", b
	}
}

// InnerEntry is one InnerClasses record. Empty Outer or Simple encode as 0.
type InnerEntry struct {
	Inner  string
	Outer  string
	Simple string
	Access uint16
}

// InnerClasses is an InnerClasses attribute.
func InnerClasses(entries ...InnerEntry) Attr {
	return func(p *Pool) (string, []byte) {
		b := u2(uint16(len(entries)))
		for _, e := range entries {
			b = binary.BigEndian.AppendUint16(b, p.Class(e.Inner))
			var outer, simple uint16
			if e.Outer != "" {
				outer = p.Class(e.Outer)
			}
			if e.Simple != "" {
				simple = p.Utf8(e.Simple)
			}
			b = binary.BigEndian.AppendUint16(b, outer)
			b = binary.BigEndian.AppendUint16(b, simple)
			b = binary.BigEndian.AppendUint16(b, e.Access)
		}
		return "InnerClasses", b
	}
}

// Annotations is a RuntimeVisibleAnnotations attribute with marker
// annotations of the given type descriptors.
func Annotations(types ...string) Attr {
	return func(p *Pool) (string, []byte) {
		b := u2(uint16(len(types)))
		for _, t := range types {
			b = binary.BigEndian.AppendUint16(b, p.Utf8(t))
			b = binary.BigEndian.AppendUint16(b, 0)
		}
		return "RuntimeVisibleAnnotations", b
	}
}

// Raw is an attribute with literal content.
func Raw(name string, data []byte) Attr {
	return func(*Pool) (string, []byte) { return name, data }
}

// Bytes encodes c.
func (c Class) Bytes() []byte {
	p := newPool()
	var body []byte
	body = binary.BigEndian.AppendUint16(body, c.Access)
	body = binary.BigEndian.AppendUint16(body, p.Class(c.Name))
	switch {
	case c.NoSuper:
		body = binary.BigEndian.AppendUint16(body, 0)
	case c.Super == "":
		body = binary.BigEndian.AppendUint16(body, p.Class("java/lang/Object"))
	default:
		body = binary.BigEndian.AppendUint16(body, p.Class(c.Super))
	}
	body = binary.BigEndian.AppendUint16(body, uint16(len(c.Interfaces)))
	for _, in := range c.Interfaces {
		body = binary.BigEndian.AppendUint16(body, p.Class(in))
	}
	for _, members := range [][]Member{c.Fields, c.Methods} {
		body = binary.BigEndian.AppendUint16(body, uint16(len(members)))
		for _, m := range members {
			body = binary.BigEndian.AppendUint16(body, m.Access)
			body = binary.BigEndian.AppendUint16(body, p.Utf8(m.Name))
			body = binary.BigEndian.AppendUint16(body, p.Utf8(m.Desc))
			body = appendAttrs(body, p, m.Attrs)
		}
	}
	body = appendAttrs(body, p, c.Attrs)

	major := c.Major
	if major == 0 {
		major = 52
	}
	out := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	out = binary.BigEndian.AppendUint16(out, c.Minor)
	out = binary.BigEndian.AppendUint16(out, major)
	out = binary.BigEndian.AppendUint16(out, p.next)
	out = append(out, p.buf...)
	return append(out, body...)
}

func appendAttrs(b []byte, p *Pool, attrs []Attr) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(len(attrs)))
	for _, a := range attrs {
		name, data := a(p)
		b = binary.BigEndian.AppendUint16(b, p.Utf8(name))
		b = binary.BigEndian.AppendUint32(b, uint32(len(data)))
		b = append(b, data...)
	}
	return b
}

// Jar builds an in-memory zip archive from entry name to content.
func Jar(entries map[string][]byte) []byte {
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(entries[n]); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WriteJar writes Jar(entries) to path, creating parent directories.
func WriteJar(path string, entries map[string][]byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, Jar(entries), 0o644)
}

// WriteTree writes each entry below root, creating directories.
func WriteTree(root string, entries map[string][]byte) error {
	for name, data := range entries {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
