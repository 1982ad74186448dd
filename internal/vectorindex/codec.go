package vectorindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"patriotpilot/internal/fsutil"
)

// File layout, little-endian:
//
//	magic   [4]byte "PPFX"
//	version uint32
//	dim     uint32
//	n       uint32
//	data    float32[n*dim]
var magic = [4]byte{'P', 'P', 'F', 'X'}

const formatVersion uint32 = 1

// ErrCorrupt is returned when index bytes cannot be decoded.
var ErrCorrupt = errors.New("vectorindex: corrupt index data")

// MarshalBinary encodes the index.
func (f *Flat) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(16 + 4*len(f.data))
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the encoded index to w.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	header := make([]byte, 16)
	copy(header[0:4], magic[:])
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(f.dim))
	binary.LittleEndian.PutUint32(header[12:16], uint32(f.Len()))

	n, err := w.Write(header)
	written := int64(n)
	if err != nil {
		return written, err
	}
	n, err = w.Write(EncodeEmbedding(f.data))
	written += int64(n)
	return written, err
}

// UnmarshalBinary replaces the index contents with the decoded data.
func (f *Flat) UnmarshalBinary(data []byte) error {
	if len(data) < 16 {
		return fmt.Errorf("%w: short header (%d bytes)", ErrCorrupt, len(data))
	}
	if !bytes.Equal(data[0:4], magic[:]) {
		return fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[0:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != formatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	n := int(binary.LittleEndian.Uint32(data[12:16]))
	if dim <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrCorrupt, dim)
	}
	body := data[16:]
	if want := uint64(n) * uint64(dim) * 4; uint64(len(body)) != want {
		return fmt.Errorf("%w: expected %d data bytes for %d vectors of dimension %d, got %d", ErrCorrupt, want, n, dim, len(body))
	}
	values, err := DecodeEmbedding(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for _, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: non-finite value", ErrCorrupt)
		}
	}
	f.dim = dim
	f.data = values
	return nil
}

// WriteFile encodes the index to path atomically: it writes a temporary file
// in the same directory and renames it into place.
func (f *Flat) WriteFile(path string) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data)
}

// ReadFile decodes an index written by WriteFile.
func ReadFile(path string) (*Flat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &Flat{}
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return f, nil
}
