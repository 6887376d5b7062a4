package classfile

import "github.com/phobologic/japicheck/internal/model"

// Access flag bits.
const (
	accPublic     = 0x0001
	accPrivate    = 0x0002
	accProtected  = 0x0004
	accStatic     = 0x0008
	accFinal      = 0x0010
	accInterface  = 0x0200
	accAbstract   = 0x0400
	accSynthetic  = 0x1000
	accAnnotation = 0x2000
	accEnum       = 0x4000
	accModule     = 0x8000
)

// flagBit maps one access bit to a modifier, valid from a minimum major
// version onwards.
type flagBit struct {
	mask  uint16
	mod   model.Modifiers
	since uint16
}

var (
	classFlags = []flagBit{
		{accFinal, model.Final, 45},
		{accAbstract, model.Abstract, 45},
		{accSynthetic, model.Synthetic, 49},
	}
	innerClassFlags = []flagBit{
		{accStatic, model.Static, 45},
		{accFinal, model.Final, 45},
		{accAbstract, model.Abstract, 45},
		{accSynthetic, model.Synthetic, 49},
	}
	fieldFlags = []flagBit{
		{accStatic, model.Static, 45},
		{accFinal, model.Final, 45},
		{accSynthetic, model.Synthetic, 49},
	}
	methodFlags = []flagBit{
		{accStatic, model.Static, 45},
		{accFinal, model.Final, 45},
		{accAbstract, model.Abstract, 45},
		{accSynthetic, model.Synthetic, 49},
	}
)

// modifiers translates access flags through table for the given major
// version. Bits not in the table, or not yet defined at that version, are
// ignored.
func modifiers(flags, major uint16, table []flagBit) model.Modifiers {
	var m model.Modifiers
	for _, f := range table {
		if flags&f.mask != 0 && major >= f.since {
			m |= f.mod
		}
	}
	return m
}

// visibility returns the scope encoded in flags. Package is the default
// when no visibility bit is set.
func visibility(flags uint16) model.Scope {
	switch {
	case flags&accPublic != 0:
		return model.Public
	case flags&accProtected != 0:
		return model.Protected
	case flags&accPrivate != 0:
		return model.Private
	default:
		return model.Package
	}
}

func kind(flags uint16) model.Kind {
	switch {
	case flags&accAnnotation != 0:
		return model.Annotation
	case flags&accInterface != 0:
		return model.Interface
	case flags&accEnum != 0:
		return model.Enum
	default:
		return model.Class
	}
}
