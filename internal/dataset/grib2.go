package dataset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

var (
	gribMagic = []byte("GRIB")
	endMagic  = []byte("7777")
)

// maxGridPoints bounds ni*nj and packed value counts read from a file.
const maxGridPoints = 1 << 26

// message is one decoded GRIB2 field.
type message struct {
	discipline int
	reference  time.Time
	grid       models.Grid
	category   int
	number     int
	levelType  int
	levelValue float64
	step       time.Duration
	values     []float32
}

func (m *message) param() (paramInfo, bool) {
	return lookupParam(m.discipline, m.category, m.number)
}

// decodeMessages walks every GRIB2 message in data. keep is consulted once the
// product definition is known; data sections of rejected fields are skipped
// without unpacking.
func decodeMessages(data []byte, keep func(*message) bool) ([]*message, error) {
	var out []*message
	off := 0
	for off < len(data) {
		idx := bytes.Index(data[off:], gribMagic)
		if idx < 0 {
			break
		}
		off += idx
		if len(data)-off < 16 {
			return nil, fmt.Errorf("truncated indicator section at offset %d", off)
		}
		if edition := data[off+7]; edition != 2 {
			return nil, fmt.Errorf("unsupported GRIB edition %d at offset %d", edition, off)
		}
		total := binary.BigEndian.Uint64(data[off+8 : off+16])
		if total < 20 || uint64(len(data)-off) < total {
			return nil, fmt.Errorf("truncated message at offset %d: want %d bytes", off, total)
		}
		msgs, err := decodeMessage(data[off:off+int(total)], int(data[off+6]), keep)
		if err != nil {
			return nil, fmt.Errorf("message at offset %d: %w", off, err)
		}
		out = append(out, msgs...)
		off += int(total)
	}
	return out, nil
}

// decodeMessage decodes the sections of a single message. GRIB2 allows
// sections 2-7 (or 3-7, or 4-7) to repeat, so one message may yield several fields.
func decodeMessage(buf []byte, discipline int, keep func(*message) bool) ([]*message, error) {
	var (
		out     []*message
		cur     = &message{discipline: discipline}
		pack    packing
		bitmap  []byte
		hasBits bool
		wanted  bool
	)

	pos := 16
	for pos+4 <= len(buf) {
		if bytes.Equal(buf[pos:pos+4], endMagic) {
			return out, nil
		}
		if pos+5 > len(buf) {
			break
		}
		secLen := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
		if secLen < 5 || pos+secLen > len(buf) {
			return nil, fmt.Errorf("bad section length %d at %d", secLen, pos)
		}
		sec := buf[pos : pos+secLen]

		var err error
		switch sec[4] {
		case 1:
			cur.reference, err = parseIdentification(sec)
		case 2:
			// local use
		case 3:
			cur.grid, err = parseGrid(sec)
		case 4:
			err = parseProduct(sec, cur)
			wanted = keep == nil || keep(cur)
		case 5:
			pack, err = parsePacking(sec)
		case 6:
			if len(sec) < 6 {
				err = fmt.Errorf("bitmap section too short")
				break
			}
			switch ind := sec[5]; ind {
			case 0:
				bitmap, hasBits = sec[6:], true
			case 254:
				// reuse the previous bitmap in this message
			case 255:
				bitmap, hasBits = nil, false
			default:
				err = fmt.Errorf("predefined bitmap %d not supported", ind)
			}
		case 7:
			if wanted {
				if pack.count > cur.grid.Len() {
					return nil, fmt.Errorf("section 7: %d packed values for %d grid points", pack.count, cur.grid.Len())
				}
				vals, uerr := pack.unpack(sec[5:])
				if uerr != nil {
					return nil, uerr
				}
				field := *cur
				field.values, err = applyBitmap(vals, bitmap, hasBits, cur.grid.Len())
				out = append(out, &field)
			}
		default:
			err = fmt.Errorf("unknown section %d", sec[4])
		}
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", sec[4], err)
		}
		pos += secLen
	}
	return nil, fmt.Errorf("missing end section")
}

func parseIdentification(sec []byte) (time.Time, error) {
	if len(sec) < 19 {
		return time.Time{}, fmt.Errorf("identification section too short")
	}
	return time.Date(
		int(binary.BigEndian.Uint16(sec[12:14])),
		time.Month(sec[14]), int(sec[15]),
		int(sec[16]), int(sec[17]), int(sec[18]), 0, time.UTC,
	), nil
}

func parseGrid(sec []byte) (models.Grid, error) {
	if len(sec) < 14 {
		return models.Grid{}, fmt.Errorf("grid section too short")
	}
	if tmpl := binary.BigEndian.Uint16(sec[12:14]); tmpl != 0 {
		return models.Grid{}, fmt.Errorf("grid template 3.%d not supported", tmpl)
	}
	if len(sec) < 72 {
		return models.Grid{}, fmt.Errorf("lat/lon grid template too short")
	}
	ni := int(binary.BigEndian.Uint32(sec[30:34]))
	nj := int(binary.BigEndian.Uint32(sec[34:38]))
	if ni == 0 || nj == 0 || ni > maxGridPoints/nj {
		return models.Grid{}, fmt.Errorf("grid of %dx%d points not supported", ni, nj)
	}

	// Angles are micro-degrees unless a basic angle and subdivisions are given.
	deg := func(b []byte) float64 { return float64(signed32(b)) / 1e6 }
	basic := binary.BigEndian.Uint32(sec[38:42])
	subdiv := binary.BigEndian.Uint32(sec[42:46])
	if basic != 0 && basic != math.MaxUint32 && subdiv != 0 && subdiv != math.MaxUint32 {
		deg = func(b []byte) float64 { return float64(signed32(b)) * float64(basic) / float64(subdiv) }
	}

	lat1 := deg(sec[46:50])
	lon1 := normLon(deg(sec[50:54]))
	lat2 := deg(sec[55:59])
	lon2 := normLon(deg(sec[59:63]))

	scan := sec[71]
	if scan&0xB0 != 0 {
		return models.Grid{}, fmt.Errorf("scanning mode %#x not supported", scan)
	}
	if lon2 < lon1 {
		lon2 += 360
	}

	g := models.Grid{Ni: ni, Nj: nj, Lat0: lat1, Lon0: lon1}
	if ni > 1 {
		g.DLon = (lon2 - lon1) / float64(ni-1)
	}
	if nj > 1 {
		g.DLat = (lat2 - lat1) / float64(nj-1)
	}
	return g, nil
}

func parseProduct(sec []byte, m *message) error {
	if len(sec) < 34 {
		return fmt.Errorf("product section too short")
	}
	tmpl := binary.BigEndian.Uint16(sec[7:9])
	if tmpl != 0 && tmpl != 8 {
		return fmt.Errorf("product template 4.%d not supported", tmpl)
	}
	m.category = int(sec[9])
	m.number = int(sec[10])
	m.levelType = int(sec[22])
	if sf := sec[23]; sf != 0xFF {
		m.levelValue = float64(signed32(sec[24:28])) / math.Pow10(int(int8sm(sf)))
	}

	switch tmpl {
	case 0:
		unit, err := timeUnit(sec[17])
		if err != nil {
			return err
		}
		m.step = time.Duration(signed32(sec[18:22])) * unit
	case 8:
		// Statistically processed: the step is the end of the interval.
		if len(sec) < 41 {
			return fmt.Errorf("product template 4.8 too short")
		}
		end := time.Date(
			int(binary.BigEndian.Uint16(sec[34:36])),
			time.Month(sec[36]), int(sec[37]),
			int(sec[38]), int(sec[39]), int(sec[40]), 0, time.UTC,
		)
		m.step = end.Sub(m.reference)
	}
	return nil
}

func timeUnit(code byte) (time.Duration, error) {
	switch code {
	case 0:
		return time.Minute, nil
	case 1:
		return time.Hour, nil
	case 2:
		return 24 * time.Hour, nil
	case 10:
		return 3 * time.Hour, nil
	case 11:
		return 6 * time.Hour, nil
	case 12:
		return 12 * time.Hour, nil
	case 13:
		return time.Second, nil
	default:
		return 0, fmt.Errorf("time unit %d not supported", code)
	}
}

func applyBitmap(packed []float64, bitmap []byte, hasBitmap bool, n int) ([]float32, error) {
	out := make([]float32, n)
	if !hasBitmap {
		if len(packed) < n {
			return nil, fmt.Errorf("got %d values for %d grid points", len(packed), n)
		}
		for i := range out {
			out[i] = float32(packed[i])
		}
		return out, nil
	}
	if len(bitmap)*8 < n {
		return nil, fmt.Errorf("bitmap covers %d of %d grid points", len(bitmap)*8, n)
	}
	k := 0
	for i := range out {
		if bitmap[i/8]&(0x80>>(i%8)) == 0 {
			out[i] = float32(math.NaN())
			continue
		}
		if k >= len(packed) {
			return nil, fmt.Errorf("bitmap references more values than packed")
		}
		out[i] = float32(packed[k])
		k++
	}
	return out, nil
}

// signed32 decodes GRIB's sign-and-magnitude 32-bit integers.
func signed32(b []byte) int32 {
	v := binary.BigEndian.Uint32(b)
	if v&0x80000000 != 0 {
		return -int32(v & 0x7FFFFFFF)
	}
	return int32(v)
}

func signed16(b []byte) int16 {
	v := binary.BigEndian.Uint16(b)
	if v&0x8000 != 0 {
		return -int16(v & 0x7FFF)
	}
	return int16(v)
}

func int8sm(b byte) int8 {
	if b&0x80 != 0 {
		return -int8(b & 0x7F)
	}
	return int8(b)
}

func normLon(lon float64) float64 {
	if lon >= 180 {
		lon -= 360
	}
	return lon
}
