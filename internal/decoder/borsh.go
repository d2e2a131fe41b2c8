package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// byteReader walks a Borsh-encoded payload. Field reads fail hard on
// truncated buffers or absurd string lengths; the caller decides whether
// that is a skip (unknown event) or an error (malformed create data).
type byteReader struct {
	buf []byte
	off int
}

// maxStringLen bounds length-prefixed strings. Metadata URIs are the longest
// real field and stay well under this.
const maxStringLen = 1024

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

func (r *byteReader) remaining() int {
	return len(r.buf) - r.off
}

func (r *byteReader) take(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d", n, r.off, r.remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *byteReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *byteReader) boolean() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// pubkey reads a 32-byte public key and returns it base58-encoded.
func (r *byteReader) pubkey() (string, error) {
	b, err := r.take(32)
	if err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// str reads a u32-length-prefixed UTF-8 string. A zero length is legal for
// Borsh but the tracked program never emits one, so it is treated as a
// malformed buffer alongside out-of-bounds lengths.
func (r *byteReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("zero-length string at offset %d", r.off-4)
	}
	if n > maxStringLen || int(n) > r.remaining() {
		return "", fmt.Errorf("string length %d at offset %d exceeds buffer", n, r.off-4)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
