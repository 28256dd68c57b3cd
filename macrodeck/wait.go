package macrodeck

import (
	"context"
	"fmt"
	"time"
)

const waitPollInterval = 10 * time.Millisecond

// WaitForKeyPress blocks until a press transition is observed and
// returns the pressed key's canonical index. The wait is cancelled by
// the context, or with ErrStopped when StopLoop is called while a macro
// loop is active. When no loop is running the wait polls the deck
// itself.
func (m *MacroDeck) WaitForKeyPress(ctx context.Context) (int, error) {
	baseline := m.snapshotKeys()
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	sawLoop := false
	for {
		if m.loopActive.Load() {
			sawLoop = true
		} else if _, _, err := m.poll(waitPollInterval); err != nil {
			return 0, err
		}
		if sawLoop && m.stopFlag.Load() {
			return 0, ErrStopped
		}

		cur := m.snapshotKeys()
		for i, down := range cur {
			if down && (i >= len(baseline) || !baseline[i]) {
				return i, nil
			}
		}
		baseline = cur

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForCharPress blocks until a grid key is pressed and returns the
// board character under it. A character board must exist.
func (m *MacroDeck) WaitForCharPress(ctx context.Context) (rune, error) {
	m.mu.Lock()
	hasBoard := m.board != nil
	m.mu.Unlock()
	if !hasBoard {
		return 0, ErrNoBoard
	}

	for {
		key, err := m.WaitForKeyPress(ctx)
		if err != nil {
			return 0, err
		}
		// Presses outside the grid (touch keys) carry no character.
		if key >= m.deck.KeyCount() {
			continue
		}
		cols := m.deck.Columns()
		return m.BoardChar(key/cols, key%cols)
	}
}

// WaitForBoardPress blocks until a grid key is pressed and returns the
// value at its position in a caller-supplied grid shaped like the key
// grid.
func WaitForBoardPress[T any](ctx context.Context, m *MacroDeck, values [][]T) (T, error) {
	var zero T
	rows, cols := m.deck.Rows(), m.deck.Columns()
	if len(values) != rows {
		return zero, fmt.Errorf("%w: %d rows, want %d", ErrBoardShape, len(values), rows)
	}
	for r, row := range values {
		if len(row) != cols {
			return zero, fmt.Errorf("%w: row %d has %d columns, want %d", ErrBoardShape, r, len(row), cols)
		}
	}

	for {
		key, err := m.WaitForKeyPress(ctx)
		if err != nil {
			return zero, err
		}
		if key < m.deck.KeyCount() {
			return values[key/cols][key%cols], nil
		}
	}
}

// snapshotKeys copies the key states of the last polled input snapshot.
func (m *MacroDeck) snapshotKeys() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.snapshot.Keys...)
}
