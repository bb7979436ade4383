package sessionstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baras-go/combatlog/internal/sessionstore"
)

func TestWindowPositionRoundTrip(t *testing.T) {
	store, err := sessionstore.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.WindowPosition("main-timer")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveWindowPosition(sessionstore.WindowPosition{
		WindowID: "main-timer",
		X:        100, Y: 200, Width: 300, Height: 150,
	}))

	pos, ok, err := store.WindowPosition("main-timer")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 300, pos.Width)

	require.NoError(t, store.SaveWindowPosition(sessionstore.WindowPosition{
		WindowID: "main-timer",
		X:        400, Y: 200, Width: 300, Height: 150,
	}))
	pos, ok, err = store.WindowPosition("main-timer")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 400, pos.X)
}

func TestDisplayPreferencesRoundTrip(t *testing.T) {
	store, err := sessionstore.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.DisplayPreferences("effects-overlay")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveDisplayPreferences("effects-overlay", `{"scale":1.5}`))

	prefs, ok, err := store.DisplayPreferences("effects-overlay")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"scale":1.5}`, prefs)
}
