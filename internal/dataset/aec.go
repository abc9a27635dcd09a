package dataset

import "fmt"

// Adaptive entropy coding flags (CCSDS 121.0-B), as stored in template 5.42.
const (
	aecSigned     = 1 << 0
	aec3Byte      = 1 << 1
	aecMSB        = 1 << 2
	aecPreprocess = 1 << 3
	aecRestricted = 1 << 4
	aecPadRSI     = 1 << 5
)

// ros ("remainder of segment") marks a run of zero blocks up to the end of the
// current 64-block segment.
const ros = 5

type aecParams struct {
	bitsPerSample int
	blockSize     int
	rsi           int
	flags         byte
}

func (p aecParams) idLen() int {
	switch {
	case p.bitsPerSample > 16:
		return 5
	case p.bitsPerSample > 8:
		return 4
	case p.flags&aecRestricted != 0 && p.bitsPerSample <= 2:
		return 1
	case p.flags&aecRestricted != 0 && p.bitsPerSample <= 4:
		return 2
	default:
		return 3
	}
}

// aecDecode decompresses n unsigned samples.
func aecDecode(data []byte, p aecParams, n int) ([]uint32, error) {
	if p.bitsPerSample < 1 || p.bitsPerSample > 32 {
		return nil, fmt.Errorf("aec: %d bits per sample not supported", p.bitsPerSample)
	}
	if p.blockSize < 2 || p.blockSize%2 != 0 || p.rsi < 1 {
		return nil, fmt.Errorf("aec: bad block size %d / rsi %d", p.blockSize, p.rsi)
	}
	if p.flags&aecSigned != 0 {
		return nil, fmt.Errorf("aec: signed samples not supported")
	}

	idLen := p.idLen()
	uncomp := uint32(1)<<idLen - 1
	pre := p.flags&aecPreprocess != 0
	r := &bitReader{data: data}

	out := make([]uint32, 0, n)
	for len(out) < n {
		res := make([]uint32, 0, p.rsi*p.blockSize)
		ref := pre
		blocks := 0
		for blocks < p.rsi && len(out)+len(res) < n {
			id, err := r.read(idLen)
			if err != nil {
				return nil, err
			}
			var used int
			switch {
			case id == 0:
				res, used, err = lowEntropy(r, p, res, ref, blocks)
			case id == uncomp:
				res, err = readRaw(r, p.bitsPerSample, p.blockSize, res)
				used = 1
			default:
				res, err = split(r, p, int(id)-1, res, ref)
				used = 1
			}
			if err != nil {
				return nil, err
			}
			blocks += used
			ref = false
		}
		if pre && len(res) > 0 {
			reconstruct(res, p.bitsPerSample)
		}
		out = append(out, res...)
		if p.flags&aecPadRSI != 0 {
			r.align()
		}
	}
	return out[:n], nil
}

func lowEntropy(r *bitReader, p aecParams, res []uint32, ref bool, blocks int) ([]uint32, int, error) {
	sel, err := r.read(1)
	if err != nil {
		return nil, 0, err
	}
	if ref {
		if res, err = readRaw(r, p.bitsPerSample, 1, res); err != nil {
			return nil, 0, err
		}
	}

	if sel == 0 {
		fs, err := r.unary()
		if err != nil {
			return nil, 0, err
		}
		zb := fs + 1
		if zb == ros {
			zb = min(p.rsi-blocks, 64-blocks%64)
		} else if zb > ros {
			zb--
		}
		zeros := zb * p.blockSize
		if ref {
			zeros--
		}
		for i := 0; i < zeros; i++ {
			res = append(res, 0)
		}
		return res, zb, nil
	}

	// Second extension: each codeword carries a pair of samples.
	i := 0
	if ref {
		i = 1
	}
	for i < p.blockSize {
		m, err := r.unary()
		if err != nil {
			return nil, 0, err
		}
		beta, ms := seLookup(m)
		d1 := uint32(m - ms)
		if i%2 == 0 {
			res = append(res, uint32(beta)-d1)
			i++
		}
		res = append(res, d1)
		i++
	}
	return res, 1, nil
}

func seLookup(m int) (beta, ms int) {
	for (beta+1)*(beta+2)/2 <= m {
		beta++
	}
	return beta, beta * (beta + 1) / 2
}

func split(r *bitReader, p aecParams, k int, res []uint32, ref bool) ([]uint32, error) {
	var err error
	count := p.blockSize
	if ref {
		if res, err = readRaw(r, p.bitsPerSample, 1, res); err != nil {
			return nil, err
		}
		count--
	}
	start := len(res)
	for i := 0; i < count; i++ {
		fs, err := r.unary()
		if err != nil {
			return nil, err
		}
		res = append(res, uint32(fs)<<k)
	}
	if k > 0 {
		for i := start; i < len(res); i++ {
			low, err := r.read(k)
			if err != nil {
				return nil, err
			}
			res[i] |= low
		}
	}
	return res, nil
}

func readRaw(r *bitReader, bps, count int, res []uint32) ([]uint32, error) {
	for i := 0; i < count; i++ {
		v, err := r.read(bps)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

// reconstruct undoes the unit-delay predictor; res[0] is the reference sample.
func reconstruct(res []uint32, bps int) {
	xmax := int64(1)<<bps - 1
	med := xmax/2 + 1
	data := int64(res[0])
	for i := 1; i < len(res); i++ {
		d := int64(res[i])
		half := d>>1 + d&1
		var mask int64
		if data&med != 0 {
			mask = xmax
		}
		switch {
		case half > mask^data:
			data = mask ^ d
		case d&1 == 1:
			data -= half
		default:
			data += d >> 1
		}
		res[i] = uint32(data)
	}
}
