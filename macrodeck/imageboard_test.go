package macrodeck

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/griddeck/griddeck"
	"github.com/griddeck/griddeck/imagehelper"
)

// solidKeyPayload encodes a solid key-sized tile the way the deck
// expects it.
func solidKeyPayload(t *testing.T, f *fakeDeck, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	payload, err := imagehelper.EncodeKeyImage(f, img)
	require.NoError(t, err)
	return payload
}

func TestCreateImageBoardPaintsFill(t *testing.T) {
	m, f := newTestMacroDeck(t)

	fill := []byte{9, 9}
	require.NoError(t, m.CreateImageBoard(2, 3, fill))

	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, pushedKeys(f))
	for _, p := range f.pushLog() {
		require.Equal(t, fill, p.payload)
	}
	require.Equal(t, 1, f.flushCount())

	cell, err := m.BoardImage(0, 0)
	require.NoError(t, err)
	require.Equal(t, fill, cell)
}

func TestCreateImageBoardNilFillBlanks(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.CreateImageBoard(2, 3, nil))

	blank, err := imagehelper.BlankKeyImage(f)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, pushedKeys(f))
	require.Equal(t, blank, f.pushLog()[0].payload)

	cell, err := m.BoardImage(0, 0)
	require.NoError(t, err)
	require.Nil(t, cell)
}

func TestCreateImageBoardValidatesShape(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.ErrorIs(t, m.CreateImageBoard(3, 3, nil), ErrBoardShape)
	_, err := m.ImageBoard()
	require.ErrorIs(t, err, ErrNoBoard)
	require.Zero(t, f.pushCount())
}

func TestImageBoardOpsRequireBoard(t *testing.T) {
	m, _ := newTestMacroDeck(t)

	require.ErrorIs(t, m.SetBoardImage(0, 0, []byte{1}), ErrNoBoard)
	require.ErrorIs(t, m.ClearImageBoard(), ErrNoBoard)
	require.ErrorIs(t, m.OverlayImageBoard([][][]byte{{{1}}}, 0, 0), ErrNoBoard)
	require.ErrorIs(t, m.ScrollImageBoard(1, 0), ErrNoBoard)
	require.ErrorIs(t, m.DisplayImageBoard(), ErrNoBoard)

	_, err := m.BoardImage(0, 0)
	require.ErrorIs(t, err, ErrNoBoard)
	_, err = m.ImageBoard()
	require.ErrorIs(t, err, ErrNoBoard)
}

func TestSetBoardImage(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.CreateImageBoard(2, 3, []byte{0}))
	f.clearLog()

	payload := []byte{1, 2, 3}
	require.NoError(t, m.SetBoardImage(1, 2, payload))

	require.Equal(t, []keyPush{{key: 5, payload: []byte{1, 2, 3}}}, f.pushLog())
	require.Equal(t, 1, f.flushCount())

	// The board stores a copy in both directions.
	payload[0] = 9
	cell, err := m.BoardImage(1, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, cell)
	cell[1] = 9
	again, err := m.BoardImage(1, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, again)

	require.ErrorIs(t, m.SetBoardImage(2, 0, payload), ErrOutOfRange)
	_, err = m.BoardImage(0, 3)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestSetBoardImageNilBlanksKey(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.CreateImageBoard(2, 3, []byte{7}))
	f.clearLog()

	require.NoError(t, m.SetBoardImage(0, 1, nil))

	blank, err := imagehelper.BlankKeyImage(f)
	require.NoError(t, err)
	require.Equal(t, []keyPush{{key: 1, payload: blank}}, f.pushLog())

	cell, err := m.BoardImage(0, 1)
	require.NoError(t, err)
	require.Nil(t, cell)
}

func TestImageBoardReturnsDeepCopy(t *testing.T) {
	m, _ := newTestMacroDeck(t)

	require.NoError(t, m.CreateImageBoard(2, 3, []byte{4, 4}))

	out, err := m.ImageBoard()
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out[0], 3)
	out[0][0][0] = 9

	cell, err := m.BoardImage(0, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 4}, cell)
}

func TestClearImageBoard(t *testing.T) {
	m, f := newTestMacroDeck(t)

	fill := []byte{7}
	require.NoError(t, m.CreateImageBoard(2, 3, fill))
	require.NoError(t, m.SetBoardImage(0, 0, []byte{1}))
	require.NoError(t, m.SetBoardImage(1, 1, []byte{2}))
	f.clearLog()

	require.NoError(t, m.ClearImageBoard())

	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, pushedKeys(f))
	require.Equal(t, 1, f.flushCount())
	for _, pos := range [][2]int{{0, 0}, {1, 1}} {
		cell, err := m.BoardImage(pos[0], pos[1])
		require.NoError(t, err)
		require.Equal(t, fill, cell)
	}
}

func TestOverlayImageBoardClips(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.CreateImageBoard(2, 3, []byte{0}))
	f.clearLog()

	block := [][][]byte{
		{{1}, {2}},
		{{3}, {4}},
	}
	require.NoError(t, m.OverlayImageBoard(block, 2, 1))

	// Only the top-left payload of the block lands on the board.
	require.Equal(t, []keyPush{{key: 5, payload: []byte{1}}}, f.pushLog())
	require.Equal(t, 1, f.flushCount())

	cell, err := m.BoardImage(1, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, cell)
	cell, err = m.BoardImage(1, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0}, cell)
}

func TestScrollImageBoard(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.CreateImageBoard(2, 3, nil))
	payload := []byte{5}
	require.NoError(t, m.SetBoardImage(0, 0, payload))
	f.clearLog()

	require.NoError(t, m.ScrollImageBoard(1, 0))

	cell, err := m.BoardImage(0, 1)
	require.NoError(t, err)
	require.Equal(t, payload, cell)
	cell, err = m.BoardImage(0, 0)
	require.NoError(t, err)
	require.Nil(t, cell)

	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, pushedKeys(f))
	require.Equal(t, 1, f.flushCount())
}

func TestImageBoardOfflineThenDisplay(t *testing.T) {
	m, f := newTestMacroDeck(t)
	f.setOpen(false)

	payload := []byte{8, 8}
	require.NoError(t, m.CreateImageBoard(2, 3, nil))
	require.NoError(t, m.SetBoardImage(1, 2, payload))
	require.Zero(t, f.pushCount())

	f.setOpen(true)
	require.NoError(t, m.DisplayImageBoard())

	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, pushedKeys(f))
	require.Equal(t, payload, f.pushLog()[5].payload)
	require.Equal(t, 1, f.flushCount())
}

func TestDisplayImageBoardClosedDeckSurfacesError(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.CreateImageBoard(2, 3, []byte{1}))
	f.setOpen(false)

	require.ErrorIs(t, m.DisplayImageBoard(), griddeck.ErrNotOpen)
}

func TestDisplayDeckImage(t *testing.T) {
	m, f := newTestMacroDeck(t)

	colors := [6]color.Color{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
		color.RGBA{B: 255, A: 255},
		color.RGBA{R: 255, G: 255, A: 255},
		color.RGBA{G: 255, B: 255, A: 255},
		color.RGBA{R: 255, B: 255, A: 255},
	}

	// One solid-colored tile per key, sized exactly to the key grid so
	// no resampling happens.
	src := image.NewRGBA(image.Rect(0, 0, 72, 48))
	for key, c := range colors {
		row, col := key/3, key%3
		rect := image.Rect(col*24, row*24, (col+1)*24, (row+1)*24)
		draw.Draw(src, rect, image.NewUniform(c), image.Point{}, draw.Src)
	}

	require.NoError(t, m.DisplayDeckImage(src))

	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, pushedKeys(f))
	require.Equal(t, 1, f.flushCount())
	for key, c := range colors {
		require.Equal(t, solidKeyPayload(t, f, c), f.pushLog()[key].payload)
	}

	// The tiles are mirrored into the image board for later edits.
	cell, err := m.BoardImage(1, 2)
	require.NoError(t, err)
	require.Equal(t, solidKeyPayload(t, f, colors[5]), cell)
}
