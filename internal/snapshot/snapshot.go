// Package snapshot packs cluster assignments into compact bit streams.
// Each label takes the fewest bits that can hold K-1, written most
// significant bit first. The stream may be protected with a Golay code.
package snapshot

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/yyyoichi/bitstream-go"
	"github.com/yyyoichi/golay"
)

var ErrCorrupt = errors.New("snapshot: corrupt assignment")

// Codec identifies the error-correcting code applied to a stream.
type Codec uint8

const (
	Raw Codec = iota
	Golay
)

func (c Codec) String() string {
	if c == Golay {
		return "golay"
	}
	return "raw"
}

type (
	// Option selects the codec used by Encode.
	Option  func(*encoder)
	encoder struct {
		codec Codec
	}
)

// WithoutECC stores the labels as-is. This is the default.
func WithoutECC() Option {
	return func(e *encoder) {
		e.codec = Raw
	}
}

// WithGolay protects the stream with the extended Golay code, which
// corrects up to three flipped bits in every 24-bit codeword.
func WithGolay() Option {
	return func(e *encoder) {
		e.codec = Golay
	}
}

// Packed is an encoded assignment.
type Packed struct {
	Data []uint64
	// Bits is the number of meaningful bits in Data.
	Bits  int
	N     int
	K     int
	Width int
	Codec Codec
}

// Width returns the bits needed for one label out of k clusters.
func Width(k int) int {
	if k <= 2 {
		return 1
	}
	return bits.Len(uint(k - 1))
}

// Encode packs labels, each in [0, k).
func Encode(labels []int, k int, opts ...Option) (Packed, error) {
	e := encoder{codec: Raw}
	for _, opt := range opts {
		opt(&e)
	}
	if k < 1 {
		return Packed{}, fmt.Errorf("snapshot: invalid cluster count %d", k)
	}

	width := Width(k)
	w := bitstream.NewBitWriter[uint64](0, 0)
	for i, l := range labels {
		if l < 0 || l >= k {
			return Packed{}, fmt.Errorf("snapshot: label %d at row %d outside [0,%d)", l, i, k)
		}
		for b := width - 1; b >= 0; b-- {
			w.WriteBool(l>>b&1 == 1)
		}
	}
	p := Packed{
		Data:  w.Data(),
		Bits:  w.Bits(),
		N:     len(labels),
		K:     k,
		Width: width,
		Codec: e.codec,
	}
	if e.codec == Golay && p.Bits > 0 {
		var encoded []uint64
		enc := golay.NewEncoder(&encoded)
		_ = enc.Encode(p.Data, p.Bits)
		p.Data, p.Bits = encoded, enc.Bits()
	}
	return p, nil
}

// Decode restores the labels of p, correcting bit errors when p carries a
// Golay code.
func Decode(p Packed) ([]int, error) {
	size := p.N * p.Width
	data := p.Data
	if size == 0 {
		return []int{}, nil
	}
	switch p.Codec {
	case Raw:
		if p.Bits < size {
			return nil, fmt.Errorf("%w: %d bits for %d labels of width %d", ErrCorrupt, p.Bits, p.N, p.Width)
		}
	case Golay:
		if p.Bits != golay.EncodedBits(size) {
			return nil, fmt.Errorf("%w: %d encoded bits, want %d", ErrCorrupt, p.Bits, golay.EncodedBits(size))
		}
		var decoded []uint64
		dec := golay.NewDecoder(p.Data, p.Bits)
		if err := dec.Decode(&decoded); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		data = decoded
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrCorrupt, p.Codec)
	}

	r := bitstream.NewBitReader(data, 0, 0)
	r.SetBits(size)
	labels := make([]int, p.N)
	for i := range labels {
		var l int
		for b := range p.Width {
			bit, _ := r.ReadBitAt(i*p.Width + b)
			l <<= 1
			if bit {
				l |= 1
			}
		}
		if l >= p.K {
			return nil, fmt.Errorf("%w: label %d at row %d outside [0,%d)", ErrCorrupt, l, i, p.K)
		}
		labels[i] = l
	}
	return labels, nil
}
