package drawing

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"image"
	"image/png"
	"slices"
)

// Drawing is the set of lines one player has on their canvas for the current
// round. It is not safe for concurrent use; the owner serializes access.
//
// The content hash is memoized and every mutator goes through AddLine or
// Clear, which drop the memo.
type Drawing struct {
	identity string
	lines    map[Line]struct{}
	hash     string
}

func New(identity string) *Drawing {
	return &Drawing{
		identity: identity,
		lines:    make(map[Line]struct{}),
	}
}

func (d *Drawing) Identity() string {
	return d.identity
}

func (d *Drawing) AddLine(l Line) {
	if _, ok := d.lines[l]; ok {
		return
	}
	d.lines[l] = struct{}{}
	d.hash = ""
}

func (d *Drawing) AddLines(lines ...Line) {
	for _, l := range lines {
		d.AddLine(l)
	}
}

func (d *Drawing) Clear() {
	clear(d.lines)
	d.hash = ""
}

func (d *Drawing) LineCount() int {
	return len(d.lines)
}

// Lines returns a copy of the current line set in no particular order.
func (d *Drawing) Lines() []Line {
	out := make([]Line, 0, len(d.lines))
	for l := range d.lines {
		out = append(out, l)
	}
	return out
}

// Hash identifies the drawing by content. Lines are hashed in sorted textual
// order so insertion order never matters. It is a cache key, not a security
// boundary.
func (d *Drawing) Hash() string {
	if d.hash != "" {
		return d.hash
	}

	keys := make([]string, 0, len(d.lines))
	for l := range d.lines {
		keys = append(keys, l.String())
	}
	slices.Sort(keys)

	h := md5.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{';'})
	}
	d.hash = hex.EncodeToString(h.Sum(nil))
	return d.hash
}

func (d *Drawing) Render(size, strokeWidth int) image.Image {
	return Render(d.Lines(), size, strokeWidth)
}

func (d *Drawing) RenderPNG(size, strokeWidth int) ([]byte, error) {
	return RenderPNG(d.Lines(), size, strokeWidth)
}

// RenderPNG renders lines and encodes the raster as PNG.
func RenderPNG(lines []Line, size, strokeWidth int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Render(lines, size, strokeWidth)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
