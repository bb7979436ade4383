package processor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/baras-go/combatlog/internal/boss"
	"github.com/baras-go/combatlog/internal/encounter"
	"github.com/baras-go/combatlog/internal/intern"
	"github.com/baras-go/combatlog/internal/model"
	"github.com/baras-go/combatlog/internal/processor"
	"github.com/baras-go/combatlog/internal/session"
	"github.com/baras-go/combatlog/internal/signalbus"
	"github.com/baras-go/combatlog/internal/trigger"
)

const (
	npcClassDummy int64 = 7000000
	bossEntityID  int64 = 555
	playerID      int64 = 111
)

func newTestProcessor(bossSet *boss.Set) (*processor.EventProcessor, *session.Cache, *signalbus.Bus) {
	cache := session.New()
	bus := signalbus.NewBus()
	if bossSet == nil {
		bossSet = boss.NewSet(nil)
	}
	return processor.New(cache, bossSet, bus), cache, bus
}

func enterCombatEvent(ts time.Time) model.CombatEvent {
	return model.CombatEvent{
		Timestamp: ts,
		Effect:    model.Effect{TypeID: model.EffectTypeIDEnterCombat},
	}
}

func exitCombatEvent(ts time.Time) model.CombatEvent {
	return model.CombatEvent{
		Timestamp: ts,
		Effect:    model.Effect{TypeID: model.EffectTypeIDExitCombat},
	}
}

func damageEvent(ts time.Time, source, target int64, sourceType, targetType model.EntityType, amount int32) model.CombatEvent {
	return model.CombatEvent{
		Timestamp: ts,
		Source:    model.Entity{Type: sourceType, LogID: source},
		Target:    model.Entity{Type: targetType, LogID: target},
		Effect:    model.Effect{TypeID: model.EffectTypeIDApplyEffect, EffectID: model.EffectIDDamage},
		Details:   model.Details{DmgEffective: amount},
	}
}

func TestCombatStartedOnEnterCombat(t *testing.T) {
	p, cache, _ := newTestProcessor(nil)
	now := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	signals := p.ProcessEvent(enterCombatEvent(now))
	require.Len(t, signals, 1)
	require.Equal(t, signalbus.KindCombatStarted, signals[0].Kind)
	require.Equal(t, encounter.InCombat, cache.Current().State)
}

func TestDamageAccumulatesOnPlayerDuringCombat(t *testing.T) {
	p, cache, _ := newTestProcessor(nil)
	now := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	p.ProcessEvent(enterCombatEvent(now))
	p.ProcessEvent(damageEvent(now.Add(time.Second), playerID, bossEntityID, model.EntityPlayer, model.EntityNpc, 5000))

	stats, ok := cache.Current().PlayerStats(playerID)
	require.True(t, ok)
	require.EqualValues(t, 5000, stats.DamageDone)
}

func TestIdleTimeoutClosesAndRetroactivelyStartsNewEncounter(t *testing.T) {
	p, cache, _ := newTestProcessor(nil)
	start := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	p.ProcessEvent(enterCombatEvent(start))
	p.ProcessEvent(damageEvent(start.Add(time.Second), playerID, bossEntityID, model.EntityPlayer, model.EntityNpc, 1000))

	firstEncounterID := cache.Current().ID

	later := start.Add(200 * time.Second)
	signals := p.ProcessEvent(enterCombatEvent(later))

	var sawEnded, sawStarted bool
	for _, sig := range signals {
		if sig.Kind == signalbus.KindCombatEnded {
			sawEnded = true
		}
		if sig.Kind == signalbus.KindCombatStarted {
			sawStarted = true
		}
	}
	require.True(t, sawEnded)
	require.True(t, sawStarted)
	require.NotEqual(t, firstEncounterID, cache.Current().ID)
	require.Equal(t, encounter.InCombat, cache.Current().State)
}

func TestExitCombatMovesToPostCombat(t *testing.T) {
	p, cache, _ := newTestProcessor(nil)
	start := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	p.ProcessEvent(enterCombatEvent(start))
	signals := p.ProcessEvent(exitCombatEvent(start.Add(time.Second)))

	require.Len(t, signals, 1)
	require.Equal(t, signalbus.KindCombatEnded, signals[0].Kind)
	require.Equal(t, encounter.PostCombat, cache.Current().State)
}

func TestTrailingDamageWithinThresholdStaysOnCurrentEncounter(t *testing.T) {
	p, cache, _ := newTestProcessor(nil)
	start := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	p.ProcessEvent(enterCombatEvent(start))
	p.ProcessEvent(exitCombatEvent(start.Add(time.Second)))
	postCombatID := cache.Current().ID

	p.ProcessEvent(damageEvent(start.Add(3*time.Second), playerID, bossEntityID, model.EntityPlayer, model.EntityNpc, 200))

	require.Equal(t, postCombatID, cache.Current().ID)
	stats, ok := cache.Current().PlayerStats(playerID)
	require.True(t, ok)
	require.EqualValues(t, 200, stats.DamageDone)
}

func TestDamageAfterThresholdPushesNewEncounter(t *testing.T) {
	p, cache, _ := newTestProcessor(nil)
	start := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	p.ProcessEvent(enterCombatEvent(start))
	p.ProcessEvent(exitCombatEvent(start.Add(time.Second)))
	postCombatID := cache.Current().ID

	p.ProcessEvent(damageEvent(start.Add(10*time.Second), playerID, bossEntityID, model.EntityPlayer, model.EntityNpc, 200))

	require.NotEqual(t, postCombatID, cache.Current().ID)
}

func TestBossDetectionStartsChallengeAndInitialPhase(t *testing.T) {
	def := boss.Definition{
		ID:           "dummy",
		Name:         "Training Dummy",
		NpcClassIDs:  []int64{npcClassDummy},
		InitialPhase: "phase-1",
		Phases: []boss.PhaseDefinition{
			{ID: "phase-1", Name: "Phase 1"},
		},
	}
	p, cache, _ := newTestProcessor(boss.NewSet([]boss.Definition{def}))
	start := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	p.ProcessEvent(enterCombatEvent(start))
	signals := p.ProcessEvent(damageEvent(start.Add(time.Second), playerID, bossEntityID, model.EntityPlayer, model.EntityNpc, 1000))
	// retag the target as the boss's NPC class so detection fires
	ev := model.CombatEvent{
		Timestamp: start.Add(2 * time.Second),
		Source:    model.Entity{Type: model.EntityPlayer, LogID: playerID},
		Target:    model.Entity{Type: model.EntityNpc, LogID: bossEntityID, ClassID: npcClassDummy, Name: intern.Intern("Training Dummy")},
		Effect:    model.Effect{TypeID: model.EffectTypeIDApplyEffect, EffectID: model.EffectIDDamage},
		Details:   model.Details{DmgEffective: 1000},
	}
	signals = append(signals, p.ProcessEvent(ev)...)

	enc := cache.Current()
	require.Equal(t, "dummy", enc.BossDefinitionID)
	require.Equal(t, "phase-1", enc.Phase)

	var sawDetected, sawPhase bool
	for _, sig := range signals {
		if sig.Kind == signalbus.KindBossEncounterDetected {
			sawDetected = true
		}
		if sig.Kind == signalbus.KindPhaseChanged {
			sawPhase = true
		}
	}
	require.True(t, sawDetected)
	require.True(t, sawPhase)
}

func TestBossHpPhaseTransitionOnThresholdCross(t *testing.T) {
	def := boss.Definition{
		ID:           "dummy",
		NpcClassIDs:  []int64{npcClassDummy},
		InitialPhase: "phase-1",
		Phases: []boss.PhaseDefinition{
			{ID: "phase-1"},
			{
				ID: "phase-2",
				EnterTriggers: []trigger.Trigger{
					{Kind: trigger.KindBossHpBelow, HPPercent: 0.5},
				},
			},
		},
	}
	p, cache, _ := newTestProcessor(boss.NewSet([]boss.Definition{def}))
	start := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	p.ProcessEvent(enterCombatEvent(start))
	p.ProcessEvent(model.CombatEvent{
		Timestamp: start.Add(time.Second),
		Source:    model.Entity{Type: model.EntityNpc, LogID: bossEntityID, ClassID: npcClassDummy, CurrentHP: 100000, MaxHP: 100000},
		Target:    model.Entity{Type: model.EntityPlayer, LogID: playerID},
		Effect:    model.Effect{TypeID: model.EffectTypeIDApplyEffect, EffectID: model.EffectIDDamage},
		Details:   model.Details{DmgEffective: 100},
	})

	p.ProcessEvent(model.CombatEvent{
		Timestamp: start.Add(2 * time.Second),
		Source:    model.Entity{Type: model.EntityPlayer, LogID: playerID},
		Target:    model.Entity{Type: model.EntityNpc, LogID: bossEntityID, ClassID: npcClassDummy, CurrentHP: 40000, MaxHP: 100000},
		Effect:    model.Effect{TypeID: model.EffectTypeIDApplyEffect, EffectID: model.EffectIDDamage},
		Details:   model.Details{DmgEffective: 60000},
	})

	require.Equal(t, "phase-2", cache.Current().Phase)
}

func TestAllPlayersDeadEndsEncounter(t *testing.T) {
	p, cache, _ := newTestProcessor(nil)
	start := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	p.ProcessEvent(enterCombatEvent(start))
	p.ProcessEvent(model.CombatEvent{
		Timestamp: start.Add(time.Second),
		Source:    model.Entity{Type: model.EntityPlayer, LogID: playerID},
		Effect:    model.Effect{TypeID: model.EffectTypeIDDisciplineChanged, EffectID: 1},
	})
	p.ProcessEvent(model.CombatEvent{
		Timestamp: start.Add(2 * time.Second),
		Target:    model.Entity{Type: model.EntityPlayer, LogID: playerID},
		Effect:    model.Effect{EffectID: model.EffectIDDeath},
	})

	require.Equal(t, encounter.PostCombat, cache.Current().State)
}
