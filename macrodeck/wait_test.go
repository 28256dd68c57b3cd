package macrodeck

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWaitForKeyPressSelfPolls(t *testing.T) {
	m, f := newTestMacroDeck(t)

	f.feedPress(3)
	key, err := m.WaitForKeyPress(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, key)
}

func TestWaitForKeyPressContextCancelled(t *testing.T) {
	m, _ := newTestMacroDeck(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := m.WaitForKeyPress(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForKeyPressIgnoresHeldKey(t *testing.T) {
	m, f := newTestMacroDeck(t)

	// Key 2 is already down when the wait starts.
	f.feedPress(2)
	_, _, err := m.poll(time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.WaitForKeyPress(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// After a release the same key going down again is a fresh edge.
	f.feedPress()
	f.feedPress(2)
	key, err := m.WaitForKeyPress(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, key)
}

func TestWaitForKeyPressReadError(t *testing.T) {
	m, f := newTestMacroDeck(t)

	f.failNextRead(io.ErrUnexpectedEOF)
	_, err := m.WaitForKeyPress(context.Background())
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWaitForKeyPressCancelledByStopLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m, _ := newTestMacroDeck(t)

	loopDone := make(chan error, 1)
	go func() { loopDone <- m.RunLoop(WithSleep(nilSleep)) }()
	require.Eventually(t, m.LoopRunning, time.Second, time.Millisecond)

	waitDone := make(chan error, 1)
	go func() {
		_, err := m.WaitForKeyPress(context.Background())
		waitDone <- err
	}()

	time.Sleep(50 * time.Millisecond)
	m.StopLoop()

	select {
	case err := <-waitDone:
		require.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("wait did not observe the stop")
	}
	require.NoError(t, <-loopDone)
}

func TestWaitForCharPress(t *testing.T) {
	m, f := newTestMacroDeck(t)

	_, err := m.WaitForCharPress(context.Background())
	require.ErrorIs(t, err, ErrNoBoard)

	require.NoError(t, m.CreateBoardFromStrings([]string{"abc", "def"}))

	f.feedPress(4)
	ch, err := m.WaitForCharPress(context.Background())
	require.NoError(t, err)
	require.Equal(t, 'e', ch)

	// Presses beyond the key grid carry no character and are skipped.
	st := f.state()
	st.Keys = append(st.Keys, true)
	f.feed(st)
	f.feedPress(1)

	ch, err = m.WaitForCharPress(context.Background())
	require.NoError(t, err)
	require.Equal(t, 'b', ch)
}

func TestWaitForBoardPress(t *testing.T) {
	m, f := newTestMacroDeck(t)

	f.feedPress(2)
	got, err := WaitForBoardPress(context.Background(), m, [][]int{
		{10, 20, 30},
		{40, 50, 60},
	})
	require.NoError(t, err)
	require.Equal(t, 30, got)

	f.feedPress(0)
	label, err := WaitForBoardPress(context.Background(), m, [][]string{
		{"play", "pause", "stop"},
		{"a", "b", "c"},
	})
	require.NoError(t, err)
	require.Equal(t, "play", label)
}

func TestWaitForBoardPressValidatesShape(t *testing.T) {
	m, _ := newTestMacroDeck(t)

	ctx := context.Background()
	_, err := WaitForBoardPress(ctx, m, [][]int{{1, 2, 3}})
	require.ErrorIs(t, err, ErrBoardShape)

	_, err = WaitForBoardPress(ctx, m, [][]int{{1, 2}, {3, 4}})
	require.ErrorIs(t, err, ErrBoardShape)
}
