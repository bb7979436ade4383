package timers_test

import (
	"testing"
	"time"

	"github.com/baras-go/combatlog/internal/signalbus"
	"github.com/baras-go/combatlog/internal/timers"
	"github.com/baras-go/combatlog/internal/trigger"
	"github.com/stretchr/testify/require"
)

func newHistoricalManager() *timers.Manager {
	m := timers.NewManager()
	m.SetLiveMode(false)
	return m
}

func TestAbilityCastStartsCountdownTimer(t *testing.T) {
	m := newHistoricalManager()
	m.LoadDefinitions([]timers.Definition{
		{
			ID:      "big-cast",
			Name:    "Big Cast",
			Enabled: true,
			Trigger: trigger.Trigger{Kind: trigger.KindAbilityCast, Abilities: []trigger.AbilitySelector{{ID: 555}}},
			DurationSecs: 10,
		},
	})

	ts := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindAbilityActivated, AbilityID: 555, Timestamp: ts}, signalbus.EncounterContext{})

	active := m.ActiveTimers(ts)
	require.Len(t, active, 1)
	require.Equal(t, "big-cast", active[0].DefinitionID)
}

func TestAlertDefinitionNeverBecomesCountdown(t *testing.T) {
	m := newHistoricalManager()
	m.LoadDefinitions([]timers.Definition{
		{
			ID:        "heads-up",
			Name:      "Heads Up",
			Enabled:   true,
			Trigger:   trigger.Trigger{Kind: trigger.KindAbilityCast, Abilities: []trigger.AbilitySelector{{ID: 1}}},
			IsAlert:   true,
			AlertText: "incoming!",
		},
	})

	ts := time.Now()
	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindAbilityActivated, AbilityID: 1, Timestamp: ts}, signalbus.EncounterContext{})

	require.Empty(t, m.ActiveTimers(ts))
	alerts := m.TakeFiredAlerts()
	require.Len(t, alerts, 1)
	require.Equal(t, "incoming!", alerts[0].Text)
	require.Empty(t, m.TakeFiredAlerts())
}

func TestRefreshableTimerExtendsInsteadOfDuplicating(t *testing.T) {
	m := newHistoricalManager()
	m.LoadDefinitions([]timers.Definition{
		{
			ID:             "dot",
			Name:           "DoT",
			Enabled:        true,
			Trigger:        trigger.Trigger{Kind: trigger.KindEffectApplied, Effects: []trigger.EffectSelector{{ID: 10}}},
			DurationSecs:   5,
			CanBeRefreshed: true,
		},
	})

	t0 := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 10, Timestamp: t0}, signalbus.EncounterContext{})
	t1 := t0.Add(3 * time.Second)
	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 10, Timestamp: t1}, signalbus.EncounterContext{})

	active := m.ActiveTimers(t1)
	require.Len(t, active, 1)
	require.Equal(t, t1, active[0].StartTime)
}

func TestScopeGatingRejectsWrongPhase(t *testing.T) {
	m := newHistoricalManager()
	m.LoadDefinitions([]timers.Definition{
		{
			ID:      "p2-only",
			Name:    "Phase 2 Mechanic",
			Enabled: true,
			Trigger: trigger.Trigger{Kind: trigger.KindAbilityCast, Abilities: []trigger.AbilitySelector{{ID: 7}}},
			Phases:  []string{"phase-2"},
			DurationSecs: 5,
		},
	})

	ts := time.Now()
	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindAbilityActivated, AbilityID: 7, Timestamp: ts}, signalbus.EncounterContext{Phase: "phase-1"})
	require.Empty(t, m.ActiveTimers(ts))

	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindAbilityActivated, AbilityID: 7, Timestamp: ts}, signalbus.EncounterContext{Phase: "phase-2"})
	require.Len(t, m.ActiveTimers(ts), 1)
}

func TestTimerChainStartsNextOnExhaustion(t *testing.T) {
	m := newHistoricalManager()
	m.LoadDefinitions([]timers.Definition{
		{
			ID:            "first",
			Name:          "First",
			Enabled:       true,
			Trigger:       trigger.Trigger{Kind: trigger.KindAbilityCast, Abilities: []trigger.AbilitySelector{{ID: 1}}},
			DurationSecs:  2,
			TriggersTimer: "second",
		},
		{
			ID:      "second",
			Name:    "Second",
			Enabled: true,
			Trigger: trigger.Trigger{Kind: trigger.KindTimerExpires, TimerID: "first"},
			DurationSecs: 5,
		},
	})

	t0 := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindAbilityActivated, AbilityID: 1, Timestamp: t0}, signalbus.EncounterContext{})
	require.Len(t, m.ActiveTimers(t0), 1)

	t1 := t0.Add(3 * time.Second)
	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindCounterChanged, CounterID: "noop", Timestamp: t1}, signalbus.EncounterContext{})

	active := m.ActiveTimers(t1)
	require.Len(t, active, 1)
	require.Equal(t, "second", active[0].DefinitionID)
}

func TestCombatEndedClearsActiveTimers(t *testing.T) {
	m := newHistoricalManager()
	m.LoadDefinitions([]timers.Definition{
		{
			ID:           "any-cast",
			Name:         "Any Cast",
			Enabled:      true,
			Trigger:      trigger.Trigger{Kind: trigger.KindAbilityCast, Abilities: []trigger.AbilitySelector{{ID: 1}}},
			DurationSecs: 30,
		},
	})

	ts := time.Now()
	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindAbilityActivated, AbilityID: 1, Timestamp: ts}, signalbus.EncounterContext{})
	require.Len(t, m.ActiveTimers(ts), 1)

	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindCombatEnded, Timestamp: ts}, signalbus.EncounterContext{})
	require.Empty(t, m.ActiveTimers(ts))
}

func TestDuplicateDefinitionIDKeepsFirst(t *testing.T) {
	m := newHistoricalManager()
	m.LoadDefinitions([]timers.Definition{
		{ID: "dup", Name: "Original", Enabled: true, Trigger: trigger.Trigger{Kind: trigger.KindCombatStart}, DurationSecs: 1},
		{ID: "dup", Name: "Duplicate", Enabled: true, Trigger: trigger.Trigger{Kind: trigger.KindCombatStart}, DurationSecs: 99},
	})

	ts := time.Now()
	m.HandleSignal(signalbus.Signal{Kind: signalbus.KindCombatStarted, Timestamp: ts}, signalbus.EncounterContext{})
	active := m.ActiveTimers(ts)
	require.Len(t, active, 1)
	require.Equal(t, 1*time.Second, active[0].Duration)
}
