package classfile

import "errors"

var (
	ErrInvalidMagic       = errors.New("classfile: invalid magic")
	ErrUnsupportedVersion = errors.New("classfile: unsupported version")
	ErrTruncated          = errors.New("classfile: truncated data")
	ErrBadConstantIndex   = errors.New("classfile: constant index out of range")
	ErrBadConstantTag     = errors.New("classfile: unexpected constant tag")
	ErrBadAttribute       = errors.New("classfile: malformed attribute")
	ErrBadString          = errors.New("classfile: malformed modified UTF-8")
	ErrTrailingData       = errors.New("classfile: trailing data")
)
