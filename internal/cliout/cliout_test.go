package cliout_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/baras-go/combatlog/internal/cliout"
	"github.com/baras-go/combatlog/internal/signalbus"
)

func TestHandleSignalPrintsNothingBeforeBossDetected(t *testing.T) {
	var buf bytes.Buffer
	c := cliout.New(&buf, cliout.Normal)

	ts := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	c.HandleSignal(signalbus.Signal{Kind: signalbus.KindCombatStarted, Timestamp: ts}, signalbus.EncounterContext{})
	c.HandleSignal(signalbus.Signal{Kind: signalbus.KindPhaseChanged, OldPhase: "", NewPhase: "p1", Timestamp: ts}, signalbus.EncounterContext{})

	require.Empty(t, buf.String())
}

func TestHandleSignalPrintsAfterBossDetected(t *testing.T) {
	var buf bytes.Buffer
	c := cliout.New(&buf, cliout.Normal)

	ts := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	c.HandleSignal(signalbus.Signal{Kind: signalbus.KindCombatStarted, Timestamp: ts}, signalbus.EncounterContext{})
	c.HandleSignal(signalbus.Signal{Kind: signalbus.KindBossEncounterDetected, BossName: "Nightmare Pilgrim", Timestamp: ts}, signalbus.EncounterContext{})
	c.HandleSignal(signalbus.Signal{Kind: signalbus.KindPhaseChanged, OldPhase: "", NewPhase: "p1", Timestamp: ts.Add(5 * time.Second)}, signalbus.EncounterContext{})

	out := buf.String()
	require.Contains(t, out, "BOSS ENCOUNTER")
	require.Contains(t, out, "Nightmare Pilgrim")
	require.Contains(t, out, "PHASE")
}

func TestVerboseLevelPrintsCounterChanges(t *testing.T) {
	var buf bytes.Buffer
	c := cliout.New(&buf, cliout.Verbose)

	ts := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	c.HandleSignal(signalbus.Signal{Kind: signalbus.KindCombatStarted, Timestamp: ts}, signalbus.EncounterContext{})
	c.HandleSignal(signalbus.Signal{Kind: signalbus.KindBossEncounterDetected, BossName: "Nightmare Pilgrim", Timestamp: ts}, signalbus.EncounterContext{})
	c.HandleSignal(signalbus.Signal{Kind: signalbus.KindCounterChanged, CounterID: "adds", OldValue: 0, NewValue: 1, Timestamp: ts}, signalbus.EncounterContext{})

	require.Contains(t, buf.String(), `counter "adds"`)
}
