package drawing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// RecordSize is the size in bytes of one encoded Line.
const RecordSize = 8

const quantum = 65535

var ErrMalformedRecord = errors.New("malformed-record")

// Point coordinates are normalized to [0,1] on a square canvas, so every client
// can draw at whatever pixel size fits its screen.
type Point struct {
	X float64
	Y float64
}

// Line is a straight segment between two points. It is a comparable value:
// two lines with the same endpoints are the same line.
type Line struct {
	From Point
	To   Point
}

func (l Line) String() string {
	return fmt.Sprintf("%v,%v,%v,%v", l.From.X, l.From.Y, l.To.X, l.To.Y)
}

func quantize(c float64) uint16 {
	switch {
	case math.IsNaN(c), c <= 0:
		return 0
	case c >= 1:
		return quantum
	}
	return uint16(math.Round(c * quantum))
}

func dequantize(v uint16) float64 {
	return float64(v) / quantum
}

// Encode packs a line into four little-endian uint16 fields:
// from.x, from.y, to.x, to.y.
func Encode(l Line) [RecordSize]byte {
	var rec [RecordSize]byte
	binary.LittleEndian.PutUint16(rec[0:2], quantize(l.From.X))
	binary.LittleEndian.PutUint16(rec[2:4], quantize(l.From.Y))
	binary.LittleEndian.PutUint16(rec[4:6], quantize(l.To.X))
	binary.LittleEndian.PutUint16(rec[6:8], quantize(l.To.Y))
	return rec
}

// Decode is the inverse of Encode. The record must be exactly RecordSize bytes.
func Decode(rec []byte) (Line, error) {
	if len(rec) != RecordSize {
		return Line{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedRecord, RecordSize, len(rec))
	}
	return Line{
		From: Point{
			X: dequantize(binary.LittleEndian.Uint16(rec[0:2])),
			Y: dequantize(binary.LittleEndian.Uint16(rec[2:4])),
		},
		To: Point{
			X: dequantize(binary.LittleEndian.Uint16(rec[4:6])),
			Y: dequantize(binary.LittleEndian.Uint16(rec[6:8])),
		},
	}, nil
}

// EncodeAll concatenates the records of every line.
func EncodeAll(lines []Line) []byte {
	out := make([]byte, 0, len(lines)*RecordSize)
	for _, l := range lines {
		rec := Encode(l)
		out = append(out, rec[:]...)
	}
	return out
}

// DecodeAll splits a buffer of concatenated records. Nothing is returned
// unless every record decodes.
func DecodeAll(data []byte) ([]Line, error) {
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedRecord, len(data), RecordSize)
	}
	lines := make([]Line, 0, len(data)/RecordSize)
	for i := 0; i < len(data); i += RecordSize {
		l, err := Decode(data[i : i+RecordSize])
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}
