package macrodeck

import (
	"fmt"
	"image"
	"sort"

	"github.com/griddeck/griddeck/imagehelper"
)

// imageBoard is a deck-shaped grid of pre-encoded key payloads. nil
// cells display blank.
type imageBoard struct {
	fill  []byte
	cells [][][]byte
}

func newImageBoard(rows, cols int, fill []byte) *imageBoard {
	cells := make([][][]byte, rows)
	for r := range cells {
		row := make([][]byte, cols)
		for c := range row {
			row[c] = fill
		}
		cells[r] = row
	}
	return &imageBoard{fill: fill, cells: cells}
}

// CreateImageBoard creates an image board filled with the given payload
// and displays it. The dimensions must match the device key grid; a nil
// fill displays blank keys.
func (m *MacroDeck) CreateImageBoard(rows, cols int, fill []byte) error {
	if err := m.validBoardShape(rows, cols); err != nil {
		return err
	}
	fill = clonePayload(fill)

	m.mu.Lock()
	m.imageBoard = newImageBoard(rows, cols, fill)
	payloads, err := m.imageBoardPayloadsIfReadyLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if payloads != nil {
		return m.pushPayloads(payloads)
	}
	return nil
}

// SetBoardImage writes one cell of the image board and repaints its key.
func (m *MacroDeck) SetBoardImage(row, col int, payload []byte) error {
	m.mu.Lock()
	if m.imageBoard == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	if row < 0 || row >= m.deck.Rows() || col < 0 || col >= m.deck.Columns() {
		m.mu.Unlock()
		return fmt.Errorf("%w: row %d, column %d", ErrOutOfRange, row, col)
	}
	payload = clonePayload(payload)
	m.imageBoard.cells[row][col] = payload
	key := row*m.deck.Columns() + col
	ready := m.hardwareReady()
	m.mu.Unlock()

	if !ready {
		return nil
	}
	if err := m.pushKey(key, payload); err != nil {
		return err
	}
	return m.deck.Flush()
}

// BoardImage returns the payload stored at an image board position.
func (m *MacroDeck) BoardImage(row, col int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.imageBoard == nil {
		return nil, ErrNoBoard
	}
	if row < 0 || row >= m.deck.Rows() || col < 0 || col >= m.deck.Columns() {
		return nil, fmt.Errorf("%w: row %d, column %d", ErrOutOfRange, row, col)
	}
	return clonePayload(m.imageBoard.cells[row][col]), nil
}

// ImageBoard returns a copy of the image board.
func (m *MacroDeck) ImageBoard() ([][][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.imageBoard == nil {
		return nil, ErrNoBoard
	}
	out := make([][][]byte, len(m.imageBoard.cells))
	for r, row := range m.imageBoard.cells {
		out[r] = make([][]byte, len(row))
		for c, cell := range row {
			out[r][c] = clonePayload(cell)
		}
	}
	return out, nil
}

// ClearImageBoard refills the image board with its fill payload and
// redraws it.
func (m *MacroDeck) ClearImageBoard() error {
	m.mu.Lock()
	if m.imageBoard == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	for _, row := range m.imageBoard.cells {
		for c := range row {
			row[c] = m.imageBoard.fill
		}
	}
	payloads, err := m.imageBoardPayloadsIfReadyLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if payloads != nil {
		return m.pushPayloads(payloads)
	}
	return nil
}

// OverlayImageBoard writes a block of payloads onto the image board with
// its top-left corner at column x, row y. Cells falling outside the
// board are clipped.
func (m *MacroDeck) OverlayImageBoard(cells [][][]byte, x, y int) error {
	m.mu.Lock()
	if m.imageBoard == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	rows, cols := len(m.imageBoard.cells), m.deck.Columns()
	affected := make(map[int][]byte)
	for r, row := range cells {
		for c, payload := range row {
			rr, cc := y+r, x+c
			if rr < 0 || rr >= rows || cc < 0 || cc >= cols {
				continue
			}
			payload = clonePayload(payload)
			m.imageBoard.cells[rr][cc] = payload
			affected[rr*cols+cc] = payload
		}
	}
	ready := m.hardwareReady()
	m.mu.Unlock()

	if !ready || len(affected) == 0 {
		return nil
	}
	keys := make([]int, 0, len(affected))
	for key := range affected {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	for _, key := range keys {
		if err := m.pushKey(key, affected[key]); err != nil {
			return err
		}
	}
	return m.deck.Flush()
}

// ScrollImageBoard shifts the image board content by dx columns and dy
// rows, backfilling vacated cells with the fill payload, and redraws it.
func (m *MacroDeck) ScrollImageBoard(dx, dy int) error {
	m.mu.Lock()
	if m.imageBoard == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	rows, cols := len(m.imageBoard.cells), m.deck.Columns()
	next := newImageBoard(rows, cols, m.imageBoard.fill)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sr, sc := r-dy, c-dx
			if sr >= 0 && sr < rows && sc >= 0 && sc < cols {
				next.cells[r][c] = m.imageBoard.cells[sr][sc]
			}
		}
	}
	m.imageBoard = next
	payloads, err := m.imageBoardPayloadsIfReadyLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if payloads != nil {
		return m.pushPayloads(payloads)
	}
	return nil
}

// DisplayImageBoard renders every image board cell to its key and
// flushes.
func (m *MacroDeck) DisplayImageBoard() error {
	m.mu.Lock()
	if m.imageBoard == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	payloads, err := m.imageBoardPayloadsLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.pushPayloads(payloads)
}

// DisplayDeckImage scales one image across the whole key grid, pushes
// every tile, and mirrors the tiles into the image board so they can be
// manipulated further with the image board operations.
func (m *MacroDeck) DisplayDeckImage(img image.Image) error {
	tiles, err := imagehelper.SplitDeckImage(m.deck, img)
	if err != nil {
		return err
	}

	rows, cols := m.deck.Rows(), m.deck.Columns()
	board := newImageBoard(rows, cols, nil)
	for key, tile := range tiles {
		board.cells[key/cols][key%cols] = tile
	}
	m.mu.Lock()
	m.imageBoard = board
	m.mu.Unlock()

	for key, tile := range tiles {
		if err := m.deck.SetKeyImage(key, tile); err != nil {
			return err
		}
	}
	return m.deck.Flush()
}

// imageBoardPayloadsLocked renders every image board cell in key order,
// substituting blank for nil cells. m.mu must be held.
func (m *MacroDeck) imageBoardPayloadsLocked() ([][]byte, error) {
	cols := m.deck.Columns()
	payloads := make([][]byte, m.deck.KeyCount())
	for key := range payloads {
		cell := m.imageBoard.cells[key/cols][key%cols]
		if cell == nil {
			var err error
			cell, err = m.blankLocked()
			if err != nil {
				return nil, err
			}
		}
		payloads[key] = cell
	}
	return payloads, nil
}

// imageBoardPayloadsIfReadyLocked renders the image board only when an
// implicit repaint should reach the hardware. m.mu must be held.
func (m *MacroDeck) imageBoardPayloadsIfReadyLocked() ([][]byte, error) {
	if !m.hardwareReady() {
		return nil, nil
	}
	return m.imageBoardPayloadsLocked()
}
