package reader_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/baras-go/combatlog/internal/reader"
)

func TestIsCombatLog(t *testing.T) {
	require.True(t, reader.IsCombatLog("combat_2026-07-31_18_00_00_000000.txt"))
	require.True(t, reader.IsCombatLog("/some/dir/combat_2026-07-31_18_00_00_000000.txt"))
	require.False(t, reader.IsCombatLog("notes.txt"))
	require.False(t, reader.IsCombatLog("combat_2026.log"))
}

func TestNewestCombatLogPicksMostRecentlyModified(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "combat_older.txt")
	newer := filepath.Join(dir, "combat_newer.txt")
	require.NoError(t, os.WriteFile(older, []byte{}, 0o644))
	require.NoError(t, os.WriteFile(newer, []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte{}, 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	path, ok, err := reader.NewestCombatLog(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newer, path)
}

func TestNewestCombatLogNoMatches(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := reader.NewestCombatLog(dir)
	require.NoError(t, err)
	require.False(t, ok)
}
