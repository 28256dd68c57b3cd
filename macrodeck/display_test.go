package macrodeck

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/griddeck/griddeck"
	"github.com/griddeck/griddeck/imagehelper"
	"github.com/griddeck/griddeck/transport"
)

var (
	ajazzAnnounce = []byte{0x43, 0x52, 0x54, 0x00, 0x00, 0x42, 0x41, 0x54}
	ajazzStop     = []byte{0x43, 0x52, 0x54, 0x00, 0x00, 0x53, 0x54, 0x50}
)

// newAjazzMacroDeck wires a MacroDeck to a real device handle backed by
// the in-memory transport, with the open handshake already logged away.
func newAjazzMacroDeck(t *testing.T) (*MacroDeck, *griddeck.Device, *transport.DummyDevice) {
	t.Helper()
	tr := transport.NewDummy()
	fix := tr.Add(griddeck.VendorAjazz, 0x1010, "E2E001")
	infos, err := tr.Enumerate(0, 0)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	model, ok := griddeck.LookupModel(griddeck.VendorAjazz, 0x1010)
	require.True(t, ok)

	dev := griddeck.NewDevice(infos[0], model)
	require.NoError(t, dev.Open())
	t.Cleanup(func() { _ = dev.Close() })
	fix.ClearLog()
	return New(dev), dev, fix
}

// stripReportPrefix undoes the extra report-ID byte frames starting with
// 0x00 pick up on the way to the device.
func stripReportPrefix(t *testing.T, w []byte) []byte {
	t.Helper()
	if len(w) == 513 {
		require.Equal(t, byte(0x00), w[0])
		w = w[1:]
	}
	require.Len(t, w, 512)
	return w
}

func TestConfigureKeyReachesPanel(t *testing.T) {
	m, dev, fix := newAjazzMacroDeck(t)

	require.NoError(t, m.ConfigureKey(0, WithLabel("A")))

	payload, err := imagehelper.RenderKeyLabel(dev, "A")
	require.NoError(t, err)

	writes := fix.Writes()
	require.Len(t, writes, 1+(len(payload)+511)/512)

	// The announcement carries the payload size and the panel position
	// of canonical key 0.
	announce := writes[0]
	require.True(t, bytes.HasPrefix(announce, ajazzAnnounce))
	require.Equal(t, uint32(len(payload)), binary.BigEndian.Uint32(announce[8:12]))
	require.Equal(t, byte(0x0d), announce[12])

	// The chunks reassemble into the rendered label.
	var chunks []byte
	for _, w := range writes[1:] {
		chunks = append(chunks, stripReportPrefix(t, w)...)
	}
	require.Equal(t, payload, chunks[:len(payload)])
}

func TestBoardPaintsWholePanel(t *testing.T) {
	m, _, fix := newAjazzMacroDeck(t)

	require.ErrorIs(t, m.DisplayBoard(), ErrNoBoard)
	require.Empty(t, fix.Writes())

	require.NoError(t, m.CreateBoard(3, 6, ' '))

	writes := fix.Writes()
	var announces, stops int
	for _, w := range writes {
		switch {
		case bytes.HasPrefix(w, ajazzAnnounce):
			announces++
		case bytes.HasPrefix(w, ajazzStop):
			stops++
		}
	}
	require.Equal(t, 18, announces)
	require.Equal(t, 1, stops)
	require.True(t, bytes.HasPrefix(writes[len(writes)-1], ajazzStop))
}

func TestWaitForKeyPressOnPanel(t *testing.T) {
	m, _, fix := newAjazzMacroDeck(t)

	report := make([]byte, 512)
	report[9] = 0x0d
	fix.QueueInput(report)

	key, err := m.WaitForKeyPress(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, key)
}
