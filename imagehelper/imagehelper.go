// Package imagehelper converts images into the native payload formats of
// deck surfaces: scaling, orientation, BMP/JPEG encoding, label
// rendering, and splitting one image across a whole key grid.
package imagehelper

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/griddeck/griddeck"
)

const jpegQuality = 95

// KeyDeck is the part of a device handle the key-image helpers read.
type KeyDeck interface {
	KeyImageFormat() griddeck.ImageFormat
}

// GridDeck adds the grid geometry the deck-sized helpers need.
type GridDeck interface {
	KeyDeck
	Rows() int
	Columns() int
	KeyCount() int
}

// TouchDeck exposes the touch strip format.
type TouchDeck interface {
	TouchscreenImageFormat() griddeck.ImageFormat
}

// ScreenDeck exposes the info screen format.
type ScreenDeck interface {
	ScreenImageFormat() griddeck.ImageFormat
}

// EncodeKeyImage converts an image into the native payload for one key
// display, scaling it to the key size when necessary.
func EncodeKeyImage(d KeyDeck, img image.Image) ([]byte, error) {
	return encodeNative(img, d.KeyImageFormat())
}

// EncodeTouchscreenImage converts an image into the native payload for
// the full touch strip.
func EncodeTouchscreenImage(d TouchDeck, img image.Image) ([]byte, error) {
	return encodeNative(img, d.TouchscreenImageFormat())
}

// EncodeScreenImage converts an image into the native payload for the
// info screen.
func EncodeScreenImage(d ScreenDeck, img image.Image) ([]byte, error) {
	return encodeNative(img, d.ScreenImageFormat())
}

// CreateKeyImage returns an opaque black canvas at the key display size.
func CreateKeyImage(d KeyDeck) (*image.RGBA, error) {
	f := d.KeyImageFormat()
	if f.Size.X == 0 || f.Size.Y == 0 {
		return nil, fmt.Errorf("%w: deck has no key displays", griddeck.ErrUnsupported)
	}
	return blackCanvas(f.Size.X, f.Size.Y), nil
}

// ScaledKeyImage scales an image to fit within one key display,
// preserving its aspect ratio, centered on black.
func ScaledKeyImage(d KeyDeck, img image.Image) (*image.RGBA, error) {
	canvas, err := CreateKeyImage(d)
	if err != nil {
		return nil, err
	}
	f := d.KeyImageFormat()

	thumb := resize.Thumbnail(uint(f.Size.X), uint(f.Size.Y), img, resize.Lanczos3)
	b := thumb.Bounds()
	x := (f.Size.X - b.Dx()) / 2
	y := (f.Size.Y - b.Dy()) / 2
	draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), thumb, b.Min, draw.Over)
	return canvas, nil
}

// BlankKeyImage returns the native payload of an all-black key display.
func BlankKeyImage(d KeyDeck) ([]byte, error) {
	img, err := CreateKeyImage(d)
	if err != nil {
		return nil, err
	}
	return EncodeKeyImage(d, img)
}

// RenderKeyLabel renders centered white text on a black key display and
// returns the native payload. The bitmap glyphs are upscaled by a whole
// factor to stay crisp.
func RenderKeyLabel(d KeyDeck, text string) ([]byte, error) {
	f := d.KeyImageFormat()
	if f.Size.X == 0 || f.Size.Y == 0 {
		return nil, fmt.Errorf("%w: deck has no key displays", griddeck.ErrUnsupported)
	}

	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil()
	if w == 0 {
		return BlankKeyImage(d)
	}
	metrics := face.Metrics()
	asc := metrics.Ascent.Ceil()
	h := asc + metrics.Descent.Ceil()

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	drawer := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: fixed.I(asc)},
	}
	drawer.DrawString(text)

	scale := min((f.Size.X-8)/w, (f.Size.Y-8)/h)
	if scale < 1 {
		scale = 1
	}
	sw, sh := w*scale, h*scale
	x := (f.Size.X - sw) / 2
	y := (f.Size.Y - sh) / 2

	canvas := blackCanvas(f.Size.X, f.Size.Y)
	draw.NearestNeighbor.Scale(canvas, image.Rect(x, y, x+sw, y+sh), small, small.Bounds(), draw.Over, nil)
	return EncodeKeyImage(d, canvas)
}

// CreateDeckImage returns an opaque black canvas spanning the whole key
// grid.
func CreateDeckImage(d GridDeck) (*image.RGBA, error) {
	f := d.KeyImageFormat()
	if f.Size.X == 0 || f.Size.Y == 0 {
		return nil, fmt.Errorf("%w: deck has no key displays", griddeck.ErrUnsupported)
	}
	return blackCanvas(d.Columns()*f.Size.X, d.Rows()*f.Size.Y), nil
}

// SplitDeckImage tiles one image across the key grid and returns the
// native payload for every key, indexed canonically. A source that does
// not match the grid size is scaled to cover it and center-cropped first.
func SplitDeckImage(d GridDeck, img image.Image) ([][]byte, error) {
	f := d.KeyImageFormat()
	if f.Size.X == 0 || f.Size.Y == 0 {
		return nil, fmt.Errorf("%w: deck has no key displays", griddeck.ErrUnsupported)
	}

	cols := d.Columns()
	fitted := coverImage(img, cols*f.Size.X, d.Rows()*f.Size.Y)

	tiles := make([][]byte, d.KeyCount())
	for key := range tiles {
		row, col := key/cols, key%cols

		tile := blackCanvas(f.Size.X, f.Size.Y)
		draw.Draw(tile, tile.Bounds(), fitted,
			fitted.Bounds().Min.Add(image.Pt(col*f.Size.X, row*f.Size.Y)), draw.Over)

		payload, err := encodeNative(tile, f)
		if err != nil {
			return nil, err
		}
		tiles[key] = payload
	}
	return tiles, nil
}

// encodeNative scales an image to the surface size, applies the
// orientation the hardware expects, and encodes it.
func encodeNative(img image.Image, f griddeck.ImageFormat) ([]byte, error) {
	if f.Size.X == 0 || f.Size.Y == 0 || f.Encoding == griddeck.EncodingNone {
		return nil, fmt.Errorf("%w: surface has no native image format", griddeck.ErrUnsupported)
	}

	b := img.Bounds()
	if b.Dx() != f.Size.X || b.Dy() != f.Size.Y {
		img = resize.Resize(uint(f.Size.X), uint(f.Size.Y), img, resize.Lanczos3)
	}
	img = orient(img, f)

	// Flatten onto an opaque canvas so the BMP encoder emits 24-bit
	// pixels rather than an alpha channel the hardware cannot parse.
	out := blackCanvas(f.Size.X, f.Size.Y)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	switch f.Encoding {
	case griddeck.EncodingBMP:
		if err := bmp.Encode(&buf, out); err != nil {
			return nil, fmt.Errorf("encoding BMP: %w", err)
		}
	case griddeck.EncodingJPEG:
		if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encoding JPEG: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// orient rotates and mirrors an image into hardware orientation. Rotation
// happens first, then the flips.
func orient(img image.Image, f griddeck.ImageFormat) image.Image {
	switch f.Rotation {
	case 90:
		img = quarterCCW{img}
	case -90:
		img = quarterCW{img}
	}
	if f.FlipX {
		img = flipH{img}
	}
	if f.FlipY {
		img = flipV{img}
	}
	return img
}

// coverImage scales an image so it covers the target size, preserving
// aspect ratio, and center-crops the overhang.
func coverImage(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}

	scale := math.Max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	sw := int(math.Ceil(float64(b.Dx()) * scale))
	sh := int(math.Ceil(float64(b.Dy()) * scale))
	scaled := resize.Resize(uint(sw), uint(sh), img, resize.Lanczos3)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), scaled,
		scaled.Bounds().Min.Add(image.Pt((sw-w)/2, (sh-h)/2)), draw.Src)
	return out
}

func blackCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img
}

type flipH struct{ image.Image }

func (i flipH) At(x, y int) color.Color {
	b := i.Image.Bounds()
	return i.Image.At(b.Min.X+b.Max.X-1-x, y)
}

type flipV struct{ image.Image }

func (i flipV) At(x, y int) color.Color {
	b := i.Image.Bounds()
	return i.Image.At(x, b.Min.Y+b.Max.Y-1-y)
}

// quarterCW turns the image 90 degrees clockwise.
type quarterCW struct{ image.Image }

func (i quarterCW) Bounds() image.Rectangle {
	b := i.Image.Bounds()
	return image.Rect(0, 0, b.Dy(), b.Dx())
}

func (i quarterCW) At(x, y int) color.Color {
	b := i.Image.Bounds()
	return i.Image.At(b.Min.X+y, b.Min.Y+b.Dy()-1-x)
}

// quarterCCW turns the image 90 degrees counter-clockwise.
type quarterCCW struct{ image.Image }

func (i quarterCCW) Bounds() image.Rectangle {
	b := i.Image.Bounds()
	return image.Rect(0, 0, b.Dy(), b.Dx())
}

func (i quarterCCW) At(x, y int) color.Color {
	b := i.Image.Bounds()
	return i.Image.At(b.Min.X+b.Dx()-1-y, b.Min.Y+x)
}
