package reader_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/baras-go/combatlog/internal/logparser"
	"github.com/baras-go/combatlog/internal/model"
	"github.com/baras-go/combatlog/internal/reader"
)

const sampleLine = "[18:15:03.123][Vekk'tah#112233|1,2,3|(100000/100000)]" +
	"[Dread Master {445566}/778899|4,5,6|(95000/100000)]" +
	"[Force Scream {123456}]" +
	"[ApplyEffect {836045448187904}: Damage {836045448945569}]" +
	" (8500~8000 Kinetic {654321}) <100.0>"

func sessionAnchor() time.Time {
	return time.Date(2026, 7, 31, 18, 0, 0, 0, time.UTC)
}

func TestReadAllParsesHistoricalLinesAndReportsOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combat_test.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleLine+"\nnot a combat line\n"+sampleLine+"\n"), 0o644))

	var events []model.CombatEvent
	result, err := reader.ReadAll(path, logparser.New(sessionAnchor()), func(ev model.CombatEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.EventsParsed)
	require.Equal(t, 1, result.LinesSkipped)
	require.Len(t, events, 2)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, fi.Size(), result.EndOffset)
}

func TestTailPicksUpAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combat_test.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleLine+"\n"), 0o644))

	fi, err := os.Stat(path)
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()

	events := make(chan model.CombatEvent, 4)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- reader.Tail(path, fi.Size(), logparser.New(sessionAnchor()), func(ev model.CombatEvent) {
			events <- ev
		}, stop)
	}()

	_, err = f.WriteString(sampleLine + "\n")
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, int64(1), ev.LineNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tailed event")
	}

	close(stop)
	require.NoError(t, <-done)
}
