package dataset

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// testMessage describes a single-field GRIB2 message for encodeMessage.
type testMessage struct {
	category, number int
	levelType        int
	reference        time.Time
	step             time.Duration
	accumulated      bool // product template 4.8 instead of 4.0
	ni, nj           int
	lat1, lon1       float64
	lat2, lon2       float64
	values           []float64 // NaN entries go into the bitmap
}

func putSigned32(b []byte, v int64) {
	if v < 0 {
		binary.BigEndian.PutUint32(b, uint32(-v)|0x80000000)
		return
	}
	binary.BigEndian.PutUint32(b, uint32(v))
}

func section(num byte, body []byte) []byte {
	out := make([]byte, 5+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(out)))
	out[4] = num
	copy(out[5:], body)
	return out
}

func putTime(b []byte, t time.Time) {
	binary.BigEndian.PutUint16(b, uint16(t.Year()))
	b[2] = byte(t.Month())
	b[3] = byte(t.Day())
	b[4] = byte(t.Hour())
	b[5] = byte(t.Minute())
	b[6] = byte(t.Second())
}

// encodeMessage builds a simple-packed GRIB2 message with two decimal digits
// of precision.
func encodeMessage(m testMessage) []byte {
	var body bytes.Buffer

	s1 := make([]byte, 16)
	putTime(s1[7:], m.reference)
	body.Write(section(1, s1))

	s3 := make([]byte, 67)
	binary.BigEndian.PutUint32(s3[1:], uint32(m.ni*m.nj))
	s3[9] = 6
	binary.BigEndian.PutUint32(s3[25:], uint32(m.ni))
	binary.BigEndian.PutUint32(s3[29:], uint32(m.nj))
	binary.BigEndian.PutUint32(s3[37:], math.MaxUint32)
	putSigned32(s3[41:], int64(math.Round(m.lat1*1e6)))
	putSigned32(s3[45:], int64(math.Round(m.lon1*1e6)))
	putSigned32(s3[50:], int64(math.Round(m.lat2*1e6)))
	putSigned32(s3[54:], int64(math.Round(m.lon2*1e6)))
	body.Write(section(3, s3))

	s4 := make([]byte, 29)
	if m.accumulated {
		s4 = make([]byte, 53)
		binary.BigEndian.PutUint16(s4[2:], 8)
		putTime(s4[29:], m.reference.Add(m.step))
		s4[36] = 1
		s4[41] = 1
		s4[43] = 1
		binary.BigEndian.PutUint32(s4[44:], uint32(m.step/time.Hour))
	} else {
		binary.BigEndian.PutUint32(s4[13:], uint32(m.step/time.Hour))
	}
	s4[4] = byte(m.category)
	s4[5] = byte(m.number)
	s4[12] = 1 // hours
	s4[17] = byte(m.levelType)
	s4[23] = 255
	body.Write(section(4, s4))

	var packed []float64
	var bitmap []byte
	for i, v := range m.values {
		if math.IsNaN(v) {
			if bitmap == nil {
				bitmap = bytes.Repeat([]byte{0xFF}, (len(m.values)+7)/8)
			}
			bitmap[i/8] &^= 0x80 >> (i % 8)
			continue
		}
		packed = append(packed, v)
	}

	minV := math.Inf(1)
	for _, v := range packed {
		minV = math.Min(minV, v*100)
	}
	s5 := make([]byte, 16)
	binary.BigEndian.PutUint32(s5[0:], uint32(len(packed)))
	binary.BigEndian.PutUint32(s5[6:], math.Float32bits(float32(minV)))
	binary.BigEndian.PutUint16(s5[12:], 2)
	s5[14] = 16
	body.Write(section(5, s5))

	if bitmap == nil {
		body.Write(section(6, []byte{255}))
	} else {
		body.Write(section(6, append([]byte{0}, bitmap...)))
	}

	data := make([]byte, 2*len(packed))
	for i, v := range packed {
		binary.BigEndian.PutUint16(data[2*i:], uint16(math.Round(v*100-minV)))
	}
	body.Write(section(7, data))
	body.WriteString("7777")

	out := make([]byte, 16, 16+body.Len())
	copy(out, "GRIB")
	out[7] = 2
	binary.BigEndian.PutUint64(out[8:], uint64(16+body.Len()))
	return append(out, body.Bytes()...)
}

// rawMessage wraps hand-built sections in an indicator and end section.
func rawMessage(sections ...[]byte) []byte {
	var body bytes.Buffer
	for _, sec := range sections {
		body.Write(sec)
	}
	body.WriteString("7777")

	out := make([]byte, 16, 16+body.Len())
	copy(out, "GRIB")
	out[7] = 2
	binary.BigEndian.PutUint64(out[8:], uint64(16+body.Len()))
	return append(out, body.Bytes()...)
}

// bitWriter packs MSB-first bit streams for the entropy decoder tests.
type bitWriter struct {
	buf  []byte
	nbit int
}

func (w *bitWriter) write(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.nbit%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v&(1<<i) != 0 {
			w.buf[len(w.buf)-1] |= 0x80 >> (w.nbit % 8)
		}
		w.nbit++
	}
}

func (w *bitWriter) unary(n int) {
	for i := 0; i < n; i++ {
		w.write(0, 1)
	}
	w.write(1, 1)
}
