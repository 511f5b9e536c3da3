// Package icon renders deck icons at display size as PNG. Icons that cannot
// be read become a gray placeholder.
package icon

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/singleflight"
)

// PlaceholderColor is the fill of a missing icon (#a0a0a0).
var PlaceholderColor = color.NRGBA{R: 0xa0, G: 0xa0, B: 0xa0, A: 0xff}

// placeholderLabel is the same in every language; basicfont only has ASCII.
const placeholderLabel = "N/A"

type Renderer struct {
	width, height int

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string][]byte
}

func NewRenderer(width, height int) *Renderer {
	return &Renderer{width: width, height: height, cache: map[string][]byte{}}
}

// PNG returns the encoded icon for path. Rendered icons are cached by path,
// placeholders included.
func (r *Renderer) PNG(path string) ([]byte, error) {
	r.mu.RLock()
	b, ok := r.cache[path]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	v, err, _ := r.group.Do(path, func() (any, error) {
		b, err := encode(r.Image(path))
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[path] = b
		r.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Image loads path and resizes it, or returns a placeholder.
func (r *Renderer) Image(path string) image.Image {
	src, err := imaging.Open(path)
	if err != nil {
		return r.Placeholder()
	}
	return imaging.Resize(src, r.width, r.height, imaging.Lanczos)
}

// Placeholder is a gray tile with a centered label.
func (r *Renderer) Placeholder() *image.NRGBA {
	img := imaging.New(r.width, r.height, PlaceholderColor)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
	}
	w := d.MeasureString(placeholderLabel).Ceil()
	if w <= r.width {
		x := (r.width - w) / 2
		y := (r.height + basicfont.Face7x13.Ascent - basicfont.Face7x13.Descent) / 2
		d.Dot = fixed.P(x, y)
		d.DrawString(placeholderLabel)
	}
	return img
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buf.Bytes(), nil
}
