package classfile

import "encoding/binary"

// reader is a bounds-checked big-endian cursor over a byte slice.
type reader struct {
	buf  []byte
	off  int
	base int // offset of buf within the whole unit, for diagnostics
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) pos() int { return r.base + r.off }

func (r *reader) u1() (uint8, error) {
	if r.remaining() < 1 {
		return 0, ErrTruncated
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) u2() (uint16, error) {
	if r.remaining() < 2 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if r.remaining() < 4 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) u8() (uint64, error) {
	if r.remaining() < 8 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// bytes returns the next n bytes without copying.
func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrTruncated
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

// sub returns a reader over the next n bytes and advances past them.
func (r *reader) sub(n int) (*reader, error) {
	start := r.pos()
	b, err := r.bytes(n)
	if err != nil {
		return nil, err
	}
	return &reader{buf: b, base: start}, nil
}
