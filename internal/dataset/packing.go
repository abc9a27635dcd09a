package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	packSimple = 0
	packCCSDS  = 42
)

// packing holds the data representation section: Y = (R + X * 2^E) / 10^D.
type packing struct {
	template int
	count    int
	ref      float64
	binScale int
	decScale int
	nbits    int

	// CCSDS (template 5.42) only.
	aecFlags  byte
	blockSize int
	rsi       int
}

func parsePacking(sec []byte) (packing, error) {
	if len(sec) < 21 {
		return packing{}, fmt.Errorf("data representation section too short")
	}
	p := packing{
		template: int(binary.BigEndian.Uint16(sec[9:11])),
		count:    int(binary.BigEndian.Uint32(sec[5:9])),
		ref:      float64(math.Float32frombits(binary.BigEndian.Uint32(sec[11:15]))),
		binScale: int(signed16(sec[15:17])),
		decScale: int(signed16(sec[17:19])),
		nbits:    int(sec[19]),
	}
	if p.count > maxGridPoints {
		return packing{}, fmt.Errorf("%d packed values not supported", p.count)
	}
	switch p.template {
	case packSimple:
	case packCCSDS:
		if len(sec) < 25 {
			return packing{}, fmt.Errorf("CCSDS template too short")
		}
		p.aecFlags = sec[21]
		p.blockSize = int(sec[22])
		p.rsi = int(binary.BigEndian.Uint16(sec[23:25]))
	default:
		return packing{}, fmt.Errorf("data representation template 5.%d not supported", p.template)
	}
	return p, nil
}

func (p packing) unpack(data []byte) ([]float64, error) {
	var raw []uint32
	var err error
	switch {
	case p.nbits == 0:
		raw = make([]uint32, p.count)
	case p.template == packSimple:
		raw, err = unpackBits(data, p.nbits, p.count)
	case p.template == packCCSDS:
		raw, err = aecDecode(data, aecParams{
			bitsPerSample: p.nbits,
			blockSize:     p.blockSize,
			rsi:           p.rsi,
			flags:         p.aecFlags,
		}, p.count)
	}
	if err != nil {
		return nil, err
	}

	bin := math.Pow(2, float64(p.binScale))
	dec := math.Pow10(p.decScale)
	out := make([]float64, len(raw))
	for i, x := range raw {
		out[i] = (p.ref + float64(x)*bin) / dec
	}
	return out, nil
}

// unpackBits reads n big-endian integers of width bits each.
func unpackBits(data []byte, width, n int) ([]uint32, error) {
	if width > 32 {
		return nil, fmt.Errorf("%d bits per value not supported", width)
	}
	if need := (width*n + 7) / 8; len(data) < need {
		return nil, fmt.Errorf("data section has %d bytes, need %d", len(data), need)
	}
	r := bitReader{data: data}
	out := make([]uint32, n)
	for i := range out {
		v, err := r.read(width)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type bitReader struct {
	data []byte
	pos  int // bit offset
}

func (r *bitReader) read(n int) (uint32, error) {
	if r.pos+n > len(r.data)*8 {
		return 0, fmt.Errorf("bit stream exhausted")
	}
	var v uint32
	for n > 0 {
		b := r.data[r.pos/8]
		off := r.pos % 8
		avail := 8 - off
		take := avail
		if take > n {
			take = n
		}
		bits := (b >> (avail - take)) & byte((1<<take)-1)
		v = v<<take | uint32(bits)
		r.pos += take
		n -= take
	}
	return v, nil
}

// unary counts zero bits up to and including the terminating one bit.
func (r *bitReader) unary() (int, error) {
	n := 0
	for {
		if r.pos >= len(r.data)*8 {
			return 0, fmt.Errorf("bit stream exhausted")
		}
		bit := r.data[r.pos/8] & (0x80 >> (r.pos % 8))
		r.pos++
		if bit != 0 {
			return n, nil
		}
		n++
	}
}

func (r *bitReader) align() {
	r.pos = (r.pos + 7) &^ 7
}
