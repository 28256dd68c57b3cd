package macrodeck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/griddeck/griddeck"
	"github.com/griddeck/griddeck/imagehelper"
)

func TestConfigureKeyPushesIdleVisual(t *testing.T) {
	m, f := newTestMacroDeck(t)

	payload := []byte{0x42, 0x4d, 0x01, 0x02}
	require.NoError(t, m.ConfigureKey(0, WithImage(payload)))

	require.Equal(t, []keyPush{{key: 0, payload: payload}}, f.pushLog())
	require.Zero(t, f.flushCount())
}

func TestConfigureKeyValidatesIndex(t *testing.T) {
	m, f := newTestMacroDeck(t)

	for _, key := range []int{-1, 6} {
		err := m.ConfigureKey(key, WithLabel("A"))
		require.ErrorIs(t, err, griddeck.ErrInvalidKey)
	}
	require.Zero(t, f.pushCount())
	require.Empty(t, m.ConfiguredKeys())
}

func TestConfigureKeyMergesOptions(t *testing.T) {
	m, f := newTestMacroDeck(t)

	payload := []byte{7, 8, 9}
	require.NoError(t, m.ConfigureKey(2, WithImage(payload)))

	var pressed int
	require.NoError(t, m.UpdateKeyConfiguration(2, WithOnPress(func(key int) { pressed = key })))

	cfg, err := m.KeyConfiguration(2)
	require.NoError(t, err)
	require.Equal(t, payload, cfg.Image)
	require.NotNil(t, cfg.OnPress)
	cfg.OnPress(2)
	require.Equal(t, 2, pressed)

	// Merging re-pushes the idle visual.
	require.Equal(t, 2, f.pushCount())

	// A callbacks-only configuration has nothing to show and pushes nothing.
	require.NoError(t, m.ConfigureKey(4, WithOnPress(func(int) {})))
	require.Equal(t, 2, f.pushCount())
}

func TestVisualFormsAreExclusive(t *testing.T) {
	m, _ := newTestMacroDeck(t)

	payload := []byte{1, 2, 3}
	require.NoError(t, m.ConfigureKey(0, WithImage(payload), WithPressedImage(payload)))
	require.NoError(t, m.ConfigureKey(0, WithLabel("A"), WithPressedLabel("B")))

	cfg, err := m.KeyConfiguration(0)
	require.NoError(t, err)
	require.Nil(t, cfg.Image)
	require.Equal(t, "A", cfg.Label)
	require.Nil(t, cfg.PressedImage)
	require.Equal(t, "B", cfg.PressedLabel)

	require.NoError(t, m.ConfigureKey(0, WithImage(payload)))
	cfg, err = m.KeyConfiguration(0)
	require.NoError(t, err)
	require.Equal(t, payload, cfg.Image)
	require.Empty(t, cfg.Label)
	require.Equal(t, "B", cfg.PressedLabel)
}

func TestKeyConfigurationReturnsCopy(t *testing.T) {
	m, _ := newTestMacroDeck(t)

	payload := []byte{9, 9, 9}
	require.NoError(t, m.ConfigureKey(1, WithImage(payload)))

	// Mutating the caller's slice after the fact changes nothing.
	payload[0] = 0
	cfg, err := m.KeyConfiguration(1)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9, 9}, cfg.Image)

	// As does mutating the returned copy.
	cfg.Image[1] = 0
	cfg.Label = "mutated"
	again, err := m.KeyConfiguration(1)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9, 9}, again.Image)
	require.Empty(t, again.Label)

	missing, err := m.KeyConfiguration(5)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestConfigureKeyOfflineStoresWithoutPush(t *testing.T) {
	m, f := newTestMacroDeck(t)
	f.setOpen(false)

	require.NoError(t, m.ConfigureKey(3, WithLabel("A")))
	require.Zero(t, f.pushCount())

	cfg, err := m.KeyConfiguration(3)
	require.NoError(t, err)
	require.Equal(t, "A", cfg.Label)
}

func TestClearKeyConfigurationBlanksKey(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.ConfigureKey(3, WithImage([]byte{1})))
	require.NoError(t, m.RegisterKeyMacro(3, func(int) {}))
	f.clearLog()

	require.NoError(t, m.ClearKeyConfiguration(3))

	blank, err := imagehelper.BlankKeyImage(f)
	require.NoError(t, err)
	require.Equal(t, []keyPush{{key: 3, payload: blank}}, f.pushLog())

	cfg, err := m.KeyConfiguration(3)
	require.NoError(t, err)
	require.Nil(t, cfg)
	require.False(t, m.HasKeyMacro(3))
}

func TestClearAllKeyConfigurations(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.ConfigureKey(4, WithImage([]byte{1})))
	require.NoError(t, m.ConfigureKey(0, WithLabel("A")))
	require.NoError(t, m.RegisterKeyMacro(2, func(int) {}))
	f.clearLog()

	require.NoError(t, m.ClearAllKeyConfigurations())

	// Configured keys and keys holding only a macro are blanked, ascending.
	require.Equal(t, []int{0, 2, 4}, pushedKeys(f))

	require.Empty(t, m.ConfiguredKeys())
	require.False(t, m.HasKeyMacro(2))
}

func TestConfiguredKeysAscending(t *testing.T) {
	m, _ := newTestMacroDeck(t)

	for _, key := range []int{5, 0, 3} {
		require.NoError(t, m.ConfigureKey(key, WithLabel("A")))
	}
	require.Equal(t, []int{0, 3, 5}, m.ConfiguredKeys())
}

func TestCopyKeyConfiguration(t *testing.T) {
	m, f := newTestMacroDeck(t)

	payload := []byte{7, 7}
	require.NoError(t, m.ConfigureKey(0, WithImage(payload), WithOnPress(func(int) {})))
	require.NoError(t, m.RegisterKeyMacro(0, func(int) {}))
	f.clearLog()

	require.NoError(t, m.CopyKeyConfiguration(0, 5))

	require.Equal(t, []keyPush{{key: 5, payload: payload}}, f.pushLog())
	require.True(t, m.HasKeyMacro(5))

	cfg, err := m.KeyConfiguration(5)
	require.NoError(t, err)
	require.Equal(t, payload, cfg.Image)
	require.NotNil(t, cfg.OnPress)

	// The copy is deep: reconfiguring the source leaves it alone.
	require.NoError(t, m.ConfigureKey(0, WithLabel("Z")))
	cfg, err = m.KeyConfiguration(5)
	require.NoError(t, err)
	require.Equal(t, payload, cfg.Image)
}

func TestCopyKeyConfigurationAbsentSource(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.ConfigureKey(5, WithLabel("B")))
	f.clearLog()

	require.NoError(t, m.CopyKeyConfiguration(4, 5))

	require.Zero(t, f.pushCount())
	cfg, err := m.KeyConfiguration(5)
	require.NoError(t, err)
	require.Equal(t, "B", cfg.Label)
}

func TestMoveKeyConfiguration(t *testing.T) {
	m, f := newTestMacroDeck(t)

	payload := []byte{3, 1, 4}
	require.NoError(t, m.ConfigureKey(0, WithImage(payload)))
	require.NoError(t, m.RegisterKeyMacro(0, func(int) {}))
	f.clearLog()

	require.NoError(t, m.MoveKeyConfiguration(0, 5))

	blank, err := imagehelper.BlankKeyImage(f)
	require.NoError(t, err)
	require.Equal(t, []keyPush{{key: 5, payload: payload}, {key: 0, payload: blank}}, f.pushLog())

	cfg, err := m.KeyConfiguration(0)
	require.NoError(t, err)
	require.Nil(t, cfg)
	require.False(t, m.HasKeyMacro(0))
	require.True(t, m.HasKeyMacro(5))
}

func TestSwapKeyConfigurationsIsItsOwnInverse(t *testing.T) {
	m, f := newTestMacroDeck(t)

	payload := []byte{1, 2}
	require.NoError(t, m.ConfigureKey(0, WithImage(payload)))
	require.NoError(t, m.RegisterKeyMacro(0, func(int) {}))
	f.clearLog()

	blank, err := imagehelper.BlankKeyImage(f)
	require.NoError(t, err)

	require.NoError(t, m.SwapKeyConfigurations(0, 1))
	require.Equal(t, []keyPush{{key: 0, payload: blank}, {key: 1, payload: payload}}, f.pushLog())
	require.Equal(t, []int{1}, m.ConfiguredKeys())
	require.True(t, m.HasKeyMacro(1))
	require.False(t, m.HasKeyMacro(0))

	f.clearLog()
	require.NoError(t, m.SwapKeyConfigurations(0, 1))
	require.Equal(t, []keyPush{{key: 0, payload: payload}, {key: 1, payload: blank}}, f.pushLog())
	require.Equal(t, []int{0}, m.ConfiguredKeys())
	require.True(t, m.HasKeyMacro(0))
	require.False(t, m.HasKeyMacro(1))
}

func TestSetKeyLabelRendersText(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.SetKeyLabel(2, "X"))

	want, err := imagehelper.RenderKeyLabel(f, "X")
	require.NoError(t, err)
	require.Equal(t, []keyPush{{key: 2, payload: want}}, f.pushLog())

	cfg, err := m.KeyConfiguration(2)
	require.NoError(t, err)
	require.Equal(t, "X", cfg.Label)
}

func TestSetKeyImageBytes(t *testing.T) {
	m, f := newTestMacroDeck(t)

	payload := []byte{0xca, 0xfe}
	require.NoError(t, m.SetKeyImageBytes(1, payload))

	require.Equal(t, []keyPush{{key: 1, payload: payload}}, f.pushLog())
	cfg, err := m.KeyConfiguration(1)
	require.NoError(t, err)
	require.Equal(t, payload, cfg.Image)
}

func TestCopyKeyImage(t *testing.T) {
	m, f := newTestMacroDeck(t)

	payload := []byte{5, 5}
	require.NoError(t, m.ConfigureKey(0, WithImage(payload)))
	require.NoError(t, m.ConfigureKey(1, WithLabel("B"), WithPressedLabel("P"), WithOnPress(func(int) {})))
	f.clearLog()

	require.NoError(t, m.CopyKeyImage(0, 1))

	require.Equal(t, []keyPush{{key: 1, payload: payload}}, f.pushLog())

	// Only the idle visual travels. Pressed visuals and callbacks stay.
	cfg, err := m.KeyConfiguration(1)
	require.NoError(t, err)
	require.Equal(t, payload, cfg.Image)
	require.Empty(t, cfg.Label)
	require.Equal(t, "P", cfg.PressedLabel)
	require.NotNil(t, cfg.OnPress)
}

func TestCopyKeyImageEmptySourceBlanksDestination(t *testing.T) {
	m, f := newTestMacroDeck(t)

	require.NoError(t, m.ConfigureKey(1, WithLabel("B"), WithPressedLabel("P")))
	f.clearLog()

	require.NoError(t, m.CopyKeyImage(4, 1))

	blank, err := imagehelper.BlankKeyImage(f)
	require.NoError(t, err)
	require.Equal(t, []keyPush{{key: 1, payload: blank}}, f.pushLog())

	cfg, err := m.KeyConfiguration(1)
	require.NoError(t, err)
	require.Nil(t, cfg.Image)
	require.Empty(t, cfg.Label)
	require.Equal(t, "P", cfg.PressedLabel)
}

func TestMoveKeyImage(t *testing.T) {
	m, f := newTestMacroDeck(t)

	payload := []byte{6, 6}
	require.NoError(t, m.ConfigureKey(0, WithImage(payload), WithPressedLabel("P")))
	f.clearLog()

	require.NoError(t, m.MoveKeyImage(0, 1))

	blank, err := imagehelper.BlankKeyImage(f)
	require.NoError(t, err)
	require.Equal(t, []keyPush{{key: 1, payload: payload}, {key: 0, payload: blank}}, f.pushLog())

	src, err := m.KeyConfiguration(0)
	require.NoError(t, err)
	require.Nil(t, src.Image)
	require.Equal(t, "P", src.PressedLabel)

	dst, err := m.KeyConfiguration(1)
	require.NoError(t, err)
	require.Equal(t, payload, dst.Image)
}

func TestSwapKeyImages(t *testing.T) {
	m, f := newTestMacroDeck(t)

	payload := []byte{1}
	require.NoError(t, m.ConfigureKey(0, WithImage(payload), WithOnPress(func(int) {})))
	require.NoError(t, m.ConfigureKey(1, WithLabel("B")))
	f.clearLog()

	require.NoError(t, m.SwapKeyImages(0, 1))

	labelB, err := imagehelper.RenderKeyLabel(f, "B")
	require.NoError(t, err)
	require.Equal(t, []keyPush{{key: 0, payload: labelB}, {key: 1, payload: payload}}, f.pushLog())

	a, err := m.KeyConfiguration(0)
	require.NoError(t, err)
	require.Nil(t, a.Image)
	require.Equal(t, "B", a.Label)
	require.NotNil(t, a.OnPress)

	b, err := m.KeyConfiguration(1)
	require.NoError(t, err)
	require.Equal(t, payload, b.Image)
	require.Empty(t, b.Label)
}

func TestRefreshKeyImages(t *testing.T) {
	m, f := newTestMacroDeck(t)

	p0 := []byte{0xab}
	p3 := []byte{3}
	require.NoError(t, m.ConfigureKey(3, WithImage(p3)))
	require.NoError(t, m.ConfigureKey(0, WithImage(p0)))
	require.NoError(t, m.ConfigureKey(5, WithOnPress(func(int) {})))
	f.clearLog()

	require.NoError(t, m.RefreshKeyImages())

	blank, err := imagehelper.BlankKeyImage(f)
	require.NoError(t, err)
	require.Equal(t, []keyPush{
		{key: 0, payload: p0},
		{key: 3, payload: p3},
		{key: 5, payload: blank},
	}, f.pushLog())
	require.Equal(t, 1, f.flushCount())
}

func TestRefreshKeyImagesSkipsNonVisualDeck(t *testing.T) {
	m, f := newTestMacroDeck(t)
	f.visual = false

	require.NoError(t, m.ConfigureKey(0, WithLabel("A")))
	require.NoError(t, m.RefreshKeyImages())

	require.Zero(t, f.pushCount())
	require.Zero(t, f.flushCount())
}
