// Package annotate renders object-localization results onto frames for
// image snapshots.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sort"
)

const (
	borderThickness = 4
	jpegQuality     = 85
)

// palette assigns one color per label, cycling when labels outnumber
// entries.
var palette = []color.RGBA{
	{0xa1, 0xc9, 0xf4, 0xff},
	{0xff, 0xb4, 0x82, 0xff},
	{0x8d, 0xe5, 0xa1, 0xff},
	{0xff, 0x9f, 0x9b, 0xff},
	{0xd0, 0xbb, 0xff, 0xff},
	{0xde, 0xbb, 0x9b, 0xff},
	{0xfa, 0xb0, 0xe4, 0xff},
	{0xcf, 0xcf, 0xcf, 0xff},
	{0xff, 0xfe, 0xa3, 0xff},
	{0xb9, 0xf2, 0xf0, 0xff},
}

// Draw decodes a JPEG frame, draws one colored rectangle per bounding box,
// and re-encodes the result. Boxes map object labels to (x1,y1,x2,y2)
// corners; labels are color-assigned in sorted order so repeated calls
// produce stable colors. A frame with no boxes is returned unchanged.
func Draw(frame []byte, boxes map[string][][4]float64) ([]byte, error) {
	total := 0
	for _, bs := range boxes {
		total += len(bs)
	}
	if total == 0 {
		return frame, nil
	}

	src, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	labels := make([]string, 0, len(boxes))
	for label := range boxes {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for i, label := range labels {
		c := palette[i%len(palette)]
		for _, box := range boxes[label] {
			drawRect(canvas, box, c)
		}
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode annotated frame: %w", err)
	}
	return out.Bytes(), nil
}

func drawRect(img *image.RGBA, box [4]float64, c color.RGBA) {
	bounds := img.Bounds()
	x1, y1 := clamp(int(box[0]), bounds.Min.X, bounds.Max.X-1), clamp(int(box[1]), bounds.Min.Y, bounds.Max.Y-1)
	x2, y2 := clamp(int(box[2]), bounds.Min.X, bounds.Max.X-1), clamp(int(box[3]), bounds.Min.Y, bounds.Max.Y-1)
	if x2 < x1 || y2 < y1 {
		return
	}

	for t := 0; t < borderThickness; t++ {
		for x := x1; x <= x2; x++ {
			img.SetRGBA(x, clamp(y1+t, bounds.Min.Y, bounds.Max.Y-1), c)
			img.SetRGBA(x, clamp(y2-t, bounds.Min.Y, bounds.Max.Y-1), c)
		}
		for y := y1; y <= y2; y++ {
			img.SetRGBA(clamp(x1+t, bounds.Min.X, bounds.Max.X-1), y, c)
			img.SetRGBA(clamp(x2-t, bounds.Min.X, bounds.Max.X-1), y, c)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
