package effects_test

import (
	"testing"
	"time"

	"github.com/baras-go/combatlog/internal/effects"
	"github.com/baras-go/combatlog/internal/signalbus"
	"github.com/baras-go/combatlog/internal/trigger"
	"github.com/stretchr/testify/require"
)

func durationSecs(v float32) *float32 { return &v }

func mustEffectSelector(id int64) trigger.EffectSelector {
	return trigger.EffectSelector{ID: id}
}

func TestHistoricalModeProducesNoActiveEffects(t *testing.T) {
	defs := effects.NewDefinitionSet()
	defs.AddDefinitions([]effects.Definition{
		{ID: "buff", Name: "Buff", Enabled: true, Effects: mustEffectSelector(100), Trigger: effects.TriggerOnApplied, DurationSecs: durationSecs(10)},
	}, false)
	tr := effects.NewTracker(defs)

	ts := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 100, SourceID: 1, TargetID: 2, Timestamp: ts}, signalbus.EncounterContext{})

	require.False(t, tr.HasActiveEffects())
}

func TestEffectAppliedCreatesActiveInstanceInLiveMode(t *testing.T) {
	defs := effects.NewDefinitionSet()
	defs.AddDefinitions([]effects.Definition{
		{ID: "buff", Name: "Buff", Enabled: true, Effects: mustEffectSelector(100), Trigger: effects.TriggerOnApplied, DurationSecs: durationSecs(10)},
	}, false)
	tr := effects.NewTracker(defs)
	tr.SetLiveMode(true)

	ts := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 100, SourceID: 1, TargetID: 2, Timestamp: ts}, signalbus.EncounterContext{})

	active := tr.EffectsForTarget(2)
	require.Len(t, active, 1)
	require.Equal(t, "buff", active[0].DefinitionID)
}

func TestEffectReapplyRefreshesWithoutDuplicating(t *testing.T) {
	defs := effects.NewDefinitionSet()
	defs.AddDefinitions([]effects.Definition{
		{
			ID: "dot", Name: "DoT", Enabled: true,
			Effects: mustEffectSelector(200), Trigger: effects.TriggerOnApplied,
			DurationSecs: durationSecs(5), CanBeRefreshed: true,
		},
	}, false)
	tr := effects.NewTracker(defs)
	tr.SetLiveMode(true)

	t0 := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 200, SourceID: 1, TargetID: 2, Timestamp: t0}, signalbus.EncounterContext{})
	t1 := t0.Add(2 * time.Second)
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 200, SourceID: 1, TargetID: 2, Timestamp: t1}, signalbus.EncounterContext{})

	active := tr.EffectsForTarget(2)
	require.Len(t, active, 1)
	require.Equal(t, t1, active[0].StartTime)
}

func TestEffectRemovedOnApplyTriggerMarksRemoved(t *testing.T) {
	defs := effects.NewDefinitionSet()
	defs.AddDefinitions([]effects.Definition{
		{ID: "buff", Name: "Buff", Enabled: true, Effects: mustEffectSelector(100), Trigger: effects.TriggerOnApplied, DurationSecs: durationSecs(30)},
	}, false)
	tr := effects.NewTracker(defs)
	tr.SetLiveMode(true)

	t0 := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 100, SourceID: 1, TargetID: 2, Timestamp: t0}, signalbus.EncounterContext{})
	require.True(t, tr.HasTickingEffects())

	t1 := t0.Add(1 * time.Second)
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectRemoved, EffectID: 100, SourceID: 1, TargetID: 2, Timestamp: t1}, signalbus.EncounterContext{})

	require.False(t, tr.HasTickingEffects())
	require.True(t, tr.HasActiveEffects()) // still fading
}

func TestEffectRemovedOnRemoveTriggerCreatesCooldownInstance(t *testing.T) {
	defs := effects.NewDefinitionSet()
	defs.AddDefinitions([]effects.Definition{
		{ID: "cd", Name: "Cooldown", Enabled: true, Effects: mustEffectSelector(300), Trigger: effects.TriggerOnRemoved, DurationSecs: durationSecs(60)},
	}, false)
	tr := effects.NewTracker(defs)
	tr.SetLiveMode(true)

	ts := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectRemoved, EffectID: 300, SourceID: 1, TargetID: 2, Timestamp: ts}, signalbus.EncounterContext{})

	active := tr.EffectsForTarget(2)
	require.Len(t, active, 1)
	require.Equal(t, "cd", active[0].DefinitionID)
}

func TestEntityDeathClearsEffectsExceptPersistPastDeath(t *testing.T) {
	defs := effects.NewDefinitionSet()
	defs.AddDefinitions([]effects.Definition{
		{ID: "normal", Name: "Normal", Enabled: true, Effects: mustEffectSelector(1), Trigger: effects.TriggerOnApplied, DurationSecs: durationSecs(60)},
		{ID: "persists", Name: "Persists", Enabled: true, Effects: mustEffectSelector(2), Trigger: effects.TriggerOnApplied, DurationSecs: durationSecs(60), PersistPastDeath: true},
	}, false)
	tr := effects.NewTracker(defs)
	tr.SetLiveMode(true)

	t0 := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 1, SourceID: 9, TargetID: 5, Timestamp: t0}, signalbus.EncounterContext{})
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 2, SourceID: 9, TargetID: 5, Timestamp: t0}, signalbus.EncounterContext{})

	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEntityDeath, EntityID: 5, Timestamp: t0}, signalbus.EncounterContext{})

	remaining := tr.EffectsForTarget(5)
	ticking := 0
	for _, e := range remaining {
		if e.RemovedAt == nil {
			ticking++
		}
	}
	require.Equal(t, 1, ticking)
}

func TestAreaChangeClearsAllActiveEffects(t *testing.T) {
	defs := effects.NewDefinitionSet()
	defs.AddDefinitions([]effects.Definition{
		{ID: "buff", Name: "Buff", Enabled: true, Effects: mustEffectSelector(1), Trigger: effects.TriggerOnApplied, DurationSecs: durationSecs(60)},
	}, false)
	tr := effects.NewTracker(defs)
	tr.SetLiveMode(true)

	t0 := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)
	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindEffectApplied, EffectID: 1, SourceID: 9, TargetID: 5, Timestamp: t0}, signalbus.EncounterContext{})
	require.True(t, tr.HasTickingEffects())

	tr.HandleSignal(signalbus.Signal{Kind: signalbus.KindAreaEntered, Timestamp: t0}, signalbus.EncounterContext{})
	require.False(t, tr.HasTickingEffects())
}

func TestDuplicateDefinitionIDSkippedWithoutOverwrite(t *testing.T) {
	defs := effects.NewDefinitionSet()
	dups := defs.AddDefinitions([]effects.Definition{
		{ID: "x", Name: "First", Enabled: true, Effects: mustEffectSelector(1)},
		{ID: "x", Name: "Second", Enabled: true, Effects: mustEffectSelector(2)},
	}, false)
	require.Equal(t, []string{"x"}, dups)

	got, ok := defs.Get("x")
	require.True(t, ok)
	require.Equal(t, "First", got.Name)
}
