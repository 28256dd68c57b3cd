package griddeck

import "image"

// Vendor IDs of supported hardware.
const (
	VendorElgato uint16 = 0x0fd9
	VendorAjazz  uint16 = 0x0300
)

// Encoding tags the byte format a model expects for image payloads.
type Encoding int

const (
	// EncodingNone marks surfaces without a display.
	EncodingNone Encoding = iota
	// EncodingBMP is a bottom-up 24-bit BMP.
	EncodingBMP
	// EncodingJPEG is a baseline JPEG.
	EncodingJPEG
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case EncodingBMP:
		return "BMP"
	case EncodingJPEG:
		return "JPEG"
	}
	return "none"
}

// ImageFormat describes the native image payload a surface expects. The
// flip and rotation fields are applied to pixels before encoding; the
// resulting bytes are sent to the device as-is.
type ImageFormat struct {
	Size     image.Point
	Encoding Encoding
	FlipX    bool
	FlipY    bool
	Rotation int // quarter turns in degrees, positive counter-clockwise
}

// Model is the immutable capability descriptor of one supported hardware
// variant. The exported fields describe what the device can do; the
// unexported ones carry the wire parameters of its protocol family. Adding
// support for a new variant means adding a table row (plus a protocol
// family if it speaks a new framing scheme).
type Model struct {
	Name      string
	VendorID  uint16
	ProductID uint16

	Keys      int
	Rows      int
	Columns   int
	Dials     int
	TouchKeys int

	Pixels  int
	DPI     int
	Padding int

	Visual bool

	KeyFormat         ImageFormat
	TouchscreenSize   image.Point
	TouchscreenFormat ImageFormat
	ScreenSize        image.Point
	ScreenFormat      ImageFormat

	proto          protocol
	imageReportLen int
	imageHeaderLen int
	featureLen     int
	inputLen       int
	keyOffset      int
	keyToRaw       func(int) int
	rawToKey       func(int) int
}

// HasTouchscreen reports whether the model carries a touch strip.
func (m Model) HasTouchscreen() bool {
	return m.TouchscreenSize != image.Point{}
}

// HasScreen reports whether the model carries an info screen.
func (m Model) HasScreen() bool {
	return m.ScreenSize != image.Point{}
}

func identity(k int) int { return k }

// mirrorRow flips an index within its row; the Original reports keys
// right-to-left. The mapping is its own inverse.
func mirrorRow(cols int) func(int) int {
	return func(k int) int {
		col := k % cols
		return (k - col) + (cols - 1 - col)
	}
}

/*
	AKP153 panel positions (one-based on the wire)
	------------------------------
	| 0d | 0a | 07 | 04 | 01 | 10 |
	|----|----|----|----|----|----|
	| 0e | 0b | 08 | 05 | 02 | 11 |
	|----|----|----|----|----|----|
	| 0f | 0c | 09 | 06 | 03 | 12 |
	------------------------------
	canonical indices run row-major from the top left
*/

// Both tables are zero-based and mutually inverse; the one-based offset of
// the wire is added and stripped by the protocol family. Fixed tables, not
// derived.
var (
	akp153ToRaw = []int{12, 9, 6, 3, 0, 15, 13, 10, 7, 4, 1, 16, 14, 11, 8, 5, 2, 17}
	akp153ToKey = []int{4, 10, 16, 3, 9, 15, 2, 8, 14, 1, 7, 13, 0, 6, 12, 5, 11, 17}
)

func tableRemap(table []int) func(int) int {
	return func(k int) int {
		if k < 0 || k >= len(table) {
			return k
		}
		return table[k]
	}
}

func squareKey(px int, enc Encoding, flipX, flipY bool, rotation int) ImageFormat {
	return ImageFormat{
		Size:     image.Pt(px, px),
		Encoding: enc,
		FlipX:    flipX,
		FlipY:    flipY,
		Rotation: rotation,
	}
}

var models = []Model{
	{
		Name: "Stream Deck Original", VendorID: VendorElgato, ProductID: 0x0060,
		Keys: 15, Rows: 3, Columns: 5,
		Pixels: 72, DPI: 124, Padding: 16, Visual: true,
		KeyFormat: squareKey(72, EncodingBMP, true, true, 0),
		proto:     gen1{}, imageReportLen: 8191, imageHeaderLen: 16,
		featureLen: 17, inputLen: 16, keyOffset: 1,
		keyToRaw: mirrorRow(5), rawToKey: mirrorRow(5),
	},
	{
		Name: "Stream Deck Mini", VendorID: VendorElgato, ProductID: 0x0063,
		Keys: 6, Rows: 2, Columns: 3,
		Pixels: 80, DPI: 138, Padding: 16, Visual: true,
		KeyFormat: squareKey(80, EncodingBMP, false, true, -90),
		proto:     gen1{}, imageReportLen: 1024, imageHeaderLen: 16,
		featureLen: 17, inputLen: 7, keyOffset: 1,
		keyToRaw: identity, rawToKey: identity,
	},
	{
		Name: "Stream Deck Mini V2", VendorID: VendorElgato, ProductID: 0x0090,
		Keys: 6, Rows: 2, Columns: 3,
		Pixels: 80, DPI: 138, Padding: 16, Visual: true,
		KeyFormat: squareKey(80, EncodingBMP, false, true, -90),
		proto:     gen1{}, imageReportLen: 1024, imageHeaderLen: 16,
		featureLen: 17, inputLen: 7, keyOffset: 1,
		keyToRaw: identity, rawToKey: identity,
	},
	{
		Name: "Stream Deck V2", VendorID: VendorElgato, ProductID: 0x006d,
		Keys: 15, Rows: 3, Columns: 5,
		Pixels: 72, DPI: 124, Padding: 16, Visual: true,
		KeyFormat: squareKey(72, EncodingJPEG, true, true, 0),
		proto:     gen2{}, imageReportLen: 1024, imageHeaderLen: 8,
		featureLen: 32, inputLen: 19, keyOffset: 4,
		keyToRaw: identity, rawToKey: identity,
	},
	{
		Name: "Stream Deck MK.2", VendorID: VendorElgato, ProductID: 0x0080,
		Keys: 15, Rows: 3, Columns: 5,
		Pixels: 72, DPI: 124, Padding: 16, Visual: true,
		KeyFormat: squareKey(72, EncodingJPEG, true, true, 0),
		proto:     gen2{}, imageReportLen: 1024, imageHeaderLen: 8,
		featureLen: 32, inputLen: 19, keyOffset: 4,
		keyToRaw: identity, rawToKey: identity,
	},
	{
		Name: "Stream Deck XL", VendorID: VendorElgato, ProductID: 0x006c,
		Keys: 32, Rows: 4, Columns: 8,
		Pixels: 96, DPI: 166, Padding: 16, Visual: true,
		KeyFormat: squareKey(96, EncodingJPEG, true, true, 0),
		proto:     gen2{}, imageReportLen: 1024, imageHeaderLen: 8,
		featureLen: 32, inputLen: 36, keyOffset: 4,
		keyToRaw: identity, rawToKey: identity,
	},
	{
		Name: "Stream Deck XL V2", VendorID: VendorElgato, ProductID: 0x008f,
		Keys: 32, Rows: 4, Columns: 8,
		Pixels: 96, DPI: 166, Padding: 16, Visual: true,
		KeyFormat: squareKey(96, EncodingJPEG, true, true, 0),
		proto:     gen2{}, imageReportLen: 1024, imageHeaderLen: 8,
		featureLen: 32, inputLen: 36, keyOffset: 4,
		keyToRaw: identity, rawToKey: identity,
	},
	{
		Name: "Stream Deck +", VendorID: VendorElgato, ProductID: 0x0084,
		Keys: 8, Rows: 2, Columns: 4, Dials: 4,
		Pixels: 120, DPI: 124, Padding: 16, Visual: true,
		KeyFormat:       squareKey(120, EncodingJPEG, false, false, 0),
		TouchscreenSize: image.Pt(800, 100),
		TouchscreenFormat: ImageFormat{
			Size: image.Pt(800, 100), Encoding: EncodingJPEG,
		},
		proto: gen2{}, imageReportLen: 1024, imageHeaderLen: 8,
		featureLen: 32, inputLen: 14, keyOffset: 4,
		keyToRaw: identity, rawToKey: identity,
	},
	{
		Name: "Stream Deck Pedal", VendorID: VendorElgato, ProductID: 0x0086,
		Keys: 3, Rows: 1, Columns: 3,
		proto: gen2{}, imageReportLen: 1024, imageHeaderLen: 8,
		featureLen: 32, inputLen: 7, keyOffset: 4,
		keyToRaw: identity, rawToKey: identity,
	},
	{
		Name: "Stream Deck Neo", VendorID: VendorElgato, ProductID: 0x009a,
		Keys: 8, Rows: 2, Columns: 4, TouchKeys: 2,
		Pixels: 96, DPI: 166, Padding: 16, Visual: true,
		KeyFormat:  squareKey(96, EncodingJPEG, true, true, 0),
		ScreenSize: image.Pt(248, 58),
		ScreenFormat: ImageFormat{
			Size: image.Pt(248, 58), Encoding: EncodingJPEG,
		},
		proto: gen2{}, imageReportLen: 1024, imageHeaderLen: 8,
		featureLen: 32, inputLen: 14, keyOffset: 4,
		keyToRaw: identity, rawToKey: identity,
	},
	{
		Name: "Ajazz AKP153", VendorID: VendorAjazz, ProductID: 0x1010,
		Keys: 18, Rows: 3, Columns: 6,
		Pixels: 100, DPI: 131, Padding: 16, Visual: true,
		KeyFormat: squareKey(100, EncodingJPEG, false, false, 0),
		proto:     ajazz{}, imageReportLen: 512, imageHeaderLen: 16,
		featureLen: 512, inputLen: 512, keyOffset: 9,
		keyToRaw: tableRemap(akp153ToRaw), rawToKey: tableRemap(akp153ToKey),
	},
}

// Models returns the capability table.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// LookupModel resolves the descriptor matching a vendor/product pair.
func LookupModel(vendorID, productID uint16) (Model, bool) {
	for _, m := range models {
		if m.VendorID == vendorID && m.ProductID == productID {
			return m, true
		}
	}
	return Model{}, false
}

// ModelByName resolves a descriptor by its display name.
func ModelByName(name string) (Model, bool) {
	for _, m := range models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}
