package griddeck

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupModel(t *testing.T) {
	m, ok := LookupModel(VendorElgato, 0x0060)
	require.True(t, ok)
	require.Equal(t, "Stream Deck Original", m.Name)
	require.Equal(t, 15, m.Keys)
	require.Equal(t, 3, m.Rows)
	require.Equal(t, 5, m.Columns)
	require.Equal(t, EncodingBMP, m.KeyFormat.Encoding)

	m, ok = LookupModel(VendorAjazz, 0x1010)
	require.True(t, ok)
	require.Equal(t, "Ajazz AKP153", m.Name)
	require.Equal(t, 18, m.Keys)
	require.Equal(t, EncodingJPEG, m.KeyFormat.Encoding)

	_, ok = LookupModel(VendorElgato, 0xbeef)
	require.False(t, ok)
}

func TestModelByName(t *testing.T) {
	m, ok := ModelByName("Stream Deck +")
	require.True(t, ok)
	require.Equal(t, uint16(0x0084), m.ProductID)

	_, ok = ModelByName("Stream Deck ++")
	require.False(t, ok)
}

func TestModelsReturnsCopy(t *testing.T) {
	first := Models()
	first[0].Name = "scribbled"
	second := Models()
	require.Equal(t, "Stream Deck Original", second[0].Name)
	require.Len(t, second, 11)
}

func TestModelCapabilities(t *testing.T) {
	plus, _ := LookupModel(VendorElgato, 0x0084)
	require.True(t, plus.HasTouchscreen())
	require.False(t, plus.HasScreen())
	require.Equal(t, 4, plus.Dials)
	require.Equal(t, image.Pt(800, 100), plus.TouchscreenSize)

	neo, _ := LookupModel(VendorElgato, 0x009a)
	require.False(t, neo.HasTouchscreen())
	require.True(t, neo.HasScreen())
	require.Equal(t, 2, neo.TouchKeys)
	require.Equal(t, image.Pt(248, 58), neo.ScreenSize)

	pedal, _ := LookupModel(VendorElgato, 0x0086)
	require.False(t, pedal.Visual)
	require.Equal(t, EncodingNone, pedal.KeyFormat.Encoding)
	require.Equal(t, "none", pedal.KeyFormat.Encoding.String())
}

// Every model's key remap must be a bijection over its key range, and the
// two directions must invert each other: the index sent with an image and
// the index decoded from a press have to land on the same physical key.
func TestKeyRemapsInvertEachOther(t *testing.T) {
	for _, m := range Models() {
		seen := make(map[int]bool, m.Keys)
		for k := 0; k < m.Keys; k++ {
			raw := m.keyToRaw(k)
			require.GreaterOrEqual(t, raw, 0, "%s key %d", m.Name, k)
			require.Less(t, raw, m.Keys, "%s key %d", m.Name, k)
			require.False(t, seen[raw], "%s raw %d hit twice", m.Name, raw)
			seen[raw] = true
			require.Equal(t, k, m.rawToKey(raw), "%s key %d", m.Name, k)
		}
	}
}

func TestMirrorRowIsSelfInverse(t *testing.T) {
	f := mirrorRow(5)
	require.Equal(t, 4, f(0))
	require.Equal(t, 0, f(4))
	require.Equal(t, 2, f(2))
	require.Equal(t, 9, f(5))
	require.Equal(t, 10, f(14))
	for k := 0; k < 15; k++ {
		require.Equal(t, k, f(f(k)))
	}
}

func TestAKP153RemapAnchors(t *testing.T) {
	m, _ := LookupModel(VendorAjazz, 0x1010)
	// Canonical key 0 (top left) lives at wire position 0x0d, one-based.
	require.Equal(t, 12, m.keyToRaw(0))
	// Wire position 0x01 is the fifth key of the top row.
	require.Equal(t, 4, m.rawToKey(0))
	// The rightmost column is appended after the 5x3 block on the wire.
	require.Equal(t, 15, m.keyToRaw(5))
	require.Equal(t, 17, m.keyToRaw(17))

	// Out-of-range indices pass through untouched.
	require.Equal(t, 18, m.keyToRaw(18))
	require.Equal(t, -1, m.rawToKey(-1))
}
