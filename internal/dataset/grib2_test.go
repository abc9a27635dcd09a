package dataset

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

var testRef = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDecodeSimplePackedMessage(t *testing.T) {
	msg := encodeMessage(testMessage{
		category: 2, number: 2, levelType: 103,
		reference: testRef, step: 6 * time.Hour,
		ni: 3, nj: 2, lat1: 60, lon1: 10, lat2: 59, lon2: 11,
		values: []float64{1.5, -2.25, 0, 3, 4.75, 12.5},
	})

	msgs, err := decodeMessages(msg, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	m := msgs[0]
	assert.Equal(t, testRef, m.reference)
	assert.Equal(t, 6*time.Hour, m.step)
	assert.Equal(t, 103, m.levelType)
	assert.Equal(t, 3, m.grid.Ni)
	assert.Equal(t, 2, m.grid.Nj)
	assert.InDelta(t, 60, m.grid.Lat0, 1e-9)
	assert.InDelta(t, -1, m.grid.DLat, 1e-9)
	assert.InDelta(t, 0.5, m.grid.DLon, 1e-9)

	p, ok := m.param()
	require.True(t, ok)
	assert.Equal(t, "10u", p.ShortName)

	want := []float64{1.5, -2.25, 0, 3, 4.75, 12.5}
	for i, v := range want {
		assert.InDelta(t, v, m.values[i], 1e-4, "value %d", i)
	}
}

func TestDecodeAccumulatedStepAndBitmap(t *testing.T) {
	nan := math.NaN()
	msg := encodeMessage(testMessage{
		category: 1, number: 8, levelType: 1,
		reference: testRef, step: 12 * time.Hour, accumulated: true,
		ni: 2, nj: 2, lat1: 0, lon1: 0, lat2: 1, lon2: 1,
		values: []float64{0.25, nan, 1, nan},
	})

	msgs, err := decodeMessages(msg, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	m := msgs[0]
	assert.Equal(t, 12*time.Hour, m.step, "statistical products use the end of the interval")
	assert.InDelta(t, 1, m.grid.DLat, 1e-9, "south-to-north rows")
	assert.InDelta(t, 0.25, m.values[0], 1e-4)
	assert.True(t, math.IsNaN(float64(m.values[1])))
	assert.InDelta(t, 1, m.values[2], 1e-4)
	assert.True(t, math.IsNaN(float64(m.values[3])))
}

func TestDecodeSkipsRejectedFields(t *testing.T) {
	var file []byte
	file = append(file, encodeMessage(testMessage{
		category: 2, number: 2, levelType: 103, reference: testRef,
		ni: 1, nj: 1, values: []float64{1},
	})...)
	file = append(file, encodeMessage(testMessage{
		category: 2, number: 3, levelType: 103, reference: testRef,
		ni: 1, nj: 1, values: []float64{2},
	})...)

	msgs, err := decodeMessages(file, Filter{ShortName: "10v"}.matches)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.InDelta(t, 2, msgs[0].values[0], 1e-4)
}

func TestDecodeErrors(t *testing.T) {
	good := encodeMessage(testMessage{
		category: 2, number: 2, levelType: 103, reference: testRef,
		ni: 1, nj: 1, values: []float64{1},
	})

	edition1 := append([]byte(nil), good...)
	edition1[7] = 1

	hugeGrid := make([]byte, 67)
	binary.BigEndian.PutUint32(hugeGrid[25:], math.MaxUint32)
	binary.BigEndian.PutUint32(hugeGrid[29:], math.MaxUint32)

	smallGrid := make([]byte, 67)
	binary.BigEndian.PutUint32(smallGrid[25:], 1)
	binary.BigEndian.PutUint32(smallGrid[29:], 1)
	product := make([]byte, 29)
	product[4], product[5], product[12], product[17] = 2, 2, 1, 103
	tooMany := make([]byte, 16)
	binary.BigEndian.PutUint32(tooMany[0:], 1000)
	tooMany[14] = 8

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"wrong edition", edition1, "edition"},
		{"truncated message", good[:len(good)-10], "truncated"},
		{"short bitmap section", rawMessage(section(6, nil)), "bitmap section too short"},
		{"oversized grid", rawMessage(section(3, hugeGrid)), "not supported"},
		{
			"more packed values than grid points",
			rawMessage(section(3, smallGrid), section(4, product), section(5, tooMany), section(6, []byte{255}), section(7, make([]byte, 1000))),
			"packed values",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeMessages(tt.data, nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestOpenMalformedFileIsDatasetAccessError(t *testing.T) {
	path := writeFile(t, "bad.grib2", rawMessage(section(6, nil)), false)

	_, err := Open(path, Filter{ShortName: "tp"})
	assert.ErrorIs(t, err, models.ErrDatasetAccess)
}

func TestNormLonGlobalSeam(t *testing.T) {
	assert.Equal(t, -180.0, normLon(180))
	assert.Equal(t, -0.25, normLon(359.75))
	assert.Equal(t, 5.0, normLon(5))
}

func TestAECDecodeAllBlockOptions(t *testing.T) {
	w := &bitWriter{}

	// RSI 1, block 1: split sample with k=1, reference 100.
	w.write(2, 3)
	w.write(100, 8)
	residuals := []uint32{2, 1, 0, 0, 4, 3, 0}
	for _, d := range residuals {
		w.unary(int(d >> 1))
	}
	for _, d := range residuals {
		w.write(d&1, 1)
	}
	// RSI 1, block 2: one zero block.
	w.write(0, 3)
	w.write(0, 1)
	w.unary(0)

	// RSI 2, block 1: uncompressed, reference 50 first.
	w.write(7, 3)
	for _, v := range []uint32{50, 0, 2, 2, 2, 1, 0, 0} {
		w.write(v, 8)
	}
	// RSI 2, block 2: second extension pairs (0,0) (1,0) (0,1) (0,0).
	w.write(0, 3)
	w.write(1, 1)
	for _, m := range []int{0, 1, 2, 0} {
		w.unary(m)
	}

	got, err := aecDecode(w.buf, aecParams{
		bitsPerSample: 8,
		blockSize:     8,
		rsi:           2,
		flags:         aecPreprocess | aecMSB,
	}, 32)
	require.NoError(t, err)

	want := []uint32{
		100, 101, 100, 100, 100, 102, 100, 100,
		100, 100, 100, 100, 100, 100, 100, 100,
		50, 50, 51, 52, 53, 52, 52, 52,
		52, 52, 51, 51, 51, 50, 50, 50,
	}
	assert.Equal(t, want, got)
}

func TestAECRejectsSignedSamples(t *testing.T) {
	_, err := aecDecode([]byte{0}, aecParams{bitsPerSample: 8, blockSize: 8, rsi: 1, flags: aecSigned}, 1)
	assert.Error(t, err)
}

func TestUnpackBits(t *testing.T) {
	w := &bitWriter{}
	for _, v := range []uint32{5, 0, 7, 3} {
		w.write(v, 3)
	}
	got, err := unpackBits(w.buf, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 0, 7, 3}, got)

	_, err = unpackBits(w.buf, 3, 40)
	assert.Error(t, err)
}
