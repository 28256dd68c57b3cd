package macrodeck

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/griddeck/griddeck/imagehelper"
)

// charBoard is a deck-shaped grid of characters, each rendered onto the
// key below it.
type charBoard struct {
	fill  rune
	cells [][]rune
}

func newCharBoard(rows, cols int, fill rune) *charBoard {
	cells := make([][]rune, rows)
	for r := range cells {
		row := make([]rune, cols)
		for c := range row {
			row[c] = fill
		}
		cells[r] = row
	}
	return &charBoard{fill: fill, cells: cells}
}

// PositionToKey maps a board position to its canonical key index,
// row-major with 0 at the top left.
func (m *MacroDeck) PositionToKey(row, col int) (int, error) {
	if row < 0 || row >= m.deck.Rows() || col < 0 || col >= m.deck.Columns() {
		return 0, fmt.Errorf("%w: row %d, column %d", ErrOutOfRange, row, col)
	}
	return row*m.deck.Columns() + col, nil
}

// KeyToPosition maps a canonical key index back to its board position.
func (m *MacroDeck) KeyToPosition(key int) (row, col int, err error) {
	if key < 0 || key >= m.deck.KeyCount() {
		return 0, 0, fmt.Errorf("%w: key %d", ErrOutOfRange, key)
	}
	return key / m.deck.Columns(), key % m.deck.Columns(), nil
}

// CreateBoard creates a character board filled with the given rune and
// displays it. The dimensions must match the device key grid.
func (m *MacroDeck) CreateBoard(rows, cols int, fill rune) error {
	if err := m.validBoardShape(rows, cols); err != nil {
		return err
	}

	m.mu.Lock()
	m.board = newCharBoard(rows, cols, fill)
	payloads, err := m.boardPayloadsIfReadyLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if payloads != nil {
		return m.pushPayloads(payloads)
	}
	return nil
}

// CreateBoardFromStrings creates a board from one string per row and
// displays it. Every row must have exactly as many runes as the device
// has columns; on shape errors the previous board is left untouched.
func (m *MacroDeck) CreateBoardFromStrings(lines []string) error {
	rows, cols := m.deck.Rows(), m.deck.Columns()
	if len(lines) != rows {
		return fmt.Errorf("%w: %d rows, want %d", ErrBoardShape, len(lines), rows)
	}
	cells := make([][]rune, rows)
	for r, line := range lines {
		runes := []rune(line)
		if len(runes) != cols {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrBoardShape, r, len(runes), cols)
		}
		cells[r] = runes
	}

	m.mu.Lock()
	m.board = &charBoard{fill: ' ', cells: cells}
	payloads, err := m.boardPayloadsIfReadyLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if payloads != nil {
		return m.pushPayloads(payloads)
	}
	return nil
}

// DisplayBoard renders every board cell to its key and flushes.
func (m *MacroDeck) DisplayBoard() error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	payloads, err := m.boardPayloadsLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.pushPayloads(payloads)
}

// SetBoardChar writes one cell and repaints its key.
func (m *MacroDeck) SetBoardChar(row, col int, ch rune) error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	if row < 0 || row >= m.deck.Rows() || col < 0 || col >= m.deck.Columns() {
		m.mu.Unlock()
		return fmt.Errorf("%w: row %d, column %d", ErrOutOfRange, row, col)
	}
	affected := make(map[int]rune)
	m.setCellLocked(row, col, ch, affected)
	m.mu.Unlock()
	return m.paintCells(affected)
}

// BoardChar returns the character stored at a board position.
func (m *MacroDeck) BoardChar(row, col int) (rune, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.board == nil {
		return 0, ErrNoBoard
	}
	if row < 0 || row >= m.deck.Rows() || col < 0 || col >= m.deck.Columns() {
		return 0, fmt.Errorf("%w: row %d, column %d", ErrOutOfRange, row, col)
	}
	return m.board.cells[row][col], nil
}

// Board returns a copy of the character board.
func (m *MacroDeck) Board() ([][]rune, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.board == nil {
		return nil, ErrNoBoard
	}
	out := make([][]rune, len(m.board.cells))
	for r, row := range m.board.cells {
		out[r] = append([]rune(nil), row...)
	}
	return out, nil
}

// BoardStrings returns the board as one string per row, the exact
// inverse of CreateBoardFromStrings.
func (m *MacroDeck) BoardStrings() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.board == nil {
		return nil, ErrNoBoard
	}
	out := make([]string, len(m.board.cells))
	for r, row := range m.board.cells {
		out[r] = string(row)
	}
	return out, nil
}

// ClearBoard refills the board with its fill rune and redraws it.
func (m *MacroDeck) ClearBoard() error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	for _, row := range m.board.cells {
		for c := range row {
			row[c] = m.board.fill
		}
	}
	payloads, err := m.boardPayloadsIfReadyLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if payloads != nil {
		return m.pushPayloads(payloads)
	}
	return nil
}

// OverlayBoard writes a block of cells onto the board with its top-left
// corner at column x, row y. Cells falling outside the board are
// clipped.
func (m *MacroDeck) OverlayBoard(cells [][]rune, x, y int) error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	affected := make(map[int]rune)
	for r, row := range cells {
		for c, ch := range row {
			m.setCellLocked(y+r, x+c, ch, affected)
		}
	}
	m.mu.Unlock()
	return m.paintCells(affected)
}

// ScrollBoard shifts the board content by dx columns and dy rows,
// backfilling vacated cells with the fill rune, and redraws it.
func (m *MacroDeck) ScrollBoard(dx, dy int) error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	rows, cols := len(m.board.cells), m.deck.Columns()
	next := newCharBoard(rows, cols, m.board.fill)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sr, sc := r-dy, c-dx
			if sr >= 0 && sr < rows && sc >= 0 && sc < cols {
				next.cells[r][c] = m.board.cells[sr][sc]
			}
		}
	}
	m.board = next
	payloads, err := m.boardPayloadsIfReadyLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if payloads != nil {
		return m.pushPayloads(payloads)
	}
	return nil
}

// DrawText writes text into a single row starting at column x, row y.
// There is no wrapping; characters past the last column are dropped.
func (m *MacroDeck) DrawText(x, y int, text string) error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	affected := make(map[int]rune)
	for i, ch := range []rune(text) {
		m.setCellLocked(y, x+i, ch, affected)
	}
	m.mu.Unlock()
	return m.paintCells(affected)
}

// DrawMultilineText writes newline-separated text starting at column x,
// row y, one board row per line. The no-wrap drop policy of DrawText
// applies to every line.
func (m *MacroDeck) DrawMultilineText(x, y int, text string) error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	affected := make(map[int]rune)
	for i, line := range strings.Split(text, "\n") {
		for j, ch := range []rune(line) {
			m.setCellLocked(y+i, x+j, ch, affected)
		}
	}
	m.mu.Unlock()
	return m.paintCells(affected)
}

// DrawLine draws a straight line of ch between two cells, clipping cells
// outside the board.
func (m *MacroDeck) DrawLine(x0, y0, x1, y1 int, ch rune) error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	affected := make(map[int]rune)
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		m.setCellLocked(y0, x0, ch, affected)
	} else {
		for i := 0; i <= steps; i++ {
			x := x0 + int(math.Round(float64(dx*i)/float64(steps)))
			y := y0 + int(math.Round(float64(dy*i)/float64(steps)))
			m.setCellLocked(y, x, ch, affected)
		}
	}
	m.mu.Unlock()
	return m.paintCells(affected)
}

// DrawRect draws the outline of a w by h rectangle with its top-left
// corner at column x, row y.
func (m *MacroDeck) DrawRect(x, y, w, h int, ch rune) error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	affected := make(map[int]rune)
	if w > 0 && h > 0 {
		for r := y; r < y+h; r++ {
			m.setCellLocked(r, x, ch, affected)
			m.setCellLocked(r, x+w-1, ch, affected)
		}
		for c := x; c < x+w; c++ {
			m.setCellLocked(y, c, ch, affected)
			m.setCellLocked(y+h-1, c, ch, affected)
		}
	}
	m.mu.Unlock()
	return m.paintCells(affected)
}

// FillRect fills a w by h rectangle with ch, top-left corner at column
// x, row y.
func (m *MacroDeck) FillRect(x, y, w, h int, ch rune) error {
	m.mu.Lock()
	if m.board == nil {
		m.mu.Unlock()
		return ErrNoBoard
	}
	affected := make(map[int]rune)
	for r := y; r < y+h; r++ {
		for c := x; c < x+w; c++ {
			m.setCellLocked(r, c, ch, affected)
		}
	}
	m.mu.Unlock()
	return m.paintCells(affected)
}

// DisplayText fills the board row-major from newline-separated text,
// creating the board when needed, and displays it.
func (m *MacroDeck) DisplayText(text string) error {
	rows, cols := m.deck.Rows(), m.deck.Columns()
	lines := strings.Split(text, "\n")

	m.mu.Lock()
	if m.board == nil {
		m.board = newCharBoard(rows, cols, ' ')
	}
	for r := 0; r < rows; r++ {
		var line []rune
		if r < len(lines) {
			line = []rune(lines[r])
		}
		for c := 0; c < cols; c++ {
			ch := m.board.fill
			if c < len(line) {
				ch = line[c]
			}
			m.board.cells[r][c] = ch
		}
	}
	payloads, err := m.boardPayloadsLocked()
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.pushPayloads(payloads)
}

func (m *MacroDeck) validBoardShape(rows, cols int) error {
	if rows != m.deck.Rows() || cols != m.deck.Columns() {
		return fmt.Errorf("%w: %dx%d, want %dx%d", ErrBoardShape, rows, cols, m.deck.Rows(), m.deck.Columns())
	}
	return nil
}

// setCellLocked writes one cell when it is inside the board, recording
// the key for repaint. Out-of-range cells are dropped. m.mu must be
// held.
func (m *MacroDeck) setCellLocked(row, col int, ch rune, affected map[int]rune) {
	if row < 0 || row >= len(m.board.cells) || col < 0 || col >= len(m.board.cells[row]) {
		return
	}
	m.board.cells[row][col] = ch
	affected[row*m.deck.Columns()+col] = ch
}

// paintCells renders the given cells onto their keys in ascending key
// order and flushes, when the deck is open and visual.
func (m *MacroDeck) paintCells(affected map[int]rune) error {
	if len(affected) == 0 || !m.hardwareReady() {
		return nil
	}
	keys := make([]int, 0, len(affected))
	for key := range affected {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	for _, key := range keys {
		payload, err := imagehelper.RenderKeyLabel(m.deck, string(affected[key]))
		if err != nil {
			return err
		}
		if err := m.deck.SetKeyImage(key, payload); err != nil {
			return err
		}
	}
	return m.deck.Flush()
}

// boardPayloadsLocked renders every board cell in key order. m.mu must
// be held.
func (m *MacroDeck) boardPayloadsLocked() ([][]byte, error) {
	cols := m.deck.Columns()
	payloads := make([][]byte, m.deck.KeyCount())
	for key := range payloads {
		payload, err := imagehelper.RenderKeyLabel(m.deck, string(m.board.cells[key/cols][key%cols]))
		if err != nil {
			return nil, err
		}
		payloads[key] = payload
	}
	return payloads, nil
}

// boardPayloadsIfReadyLocked renders the board only when an implicit
// repaint should reach the hardware. m.mu must be held.
func (m *MacroDeck) boardPayloadsIfReadyLocked() ([][]byte, error) {
	if !m.hardwareReady() {
		return nil, nil
	}
	return m.boardPayloadsLocked()
}

// pushPayloads writes one payload per key in order and flushes.
func (m *MacroDeck) pushPayloads(payloads [][]byte) error {
	for key, payload := range payloads {
		if err := m.deck.SetKeyImage(key, payload); err != nil {
			return err
		}
	}
	return m.deck.Flush()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
