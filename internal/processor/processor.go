// Package processor implements the EventProcessor state machine: it
// drives one parsed CombatEvent at a time against a session.Cache,
// advances the current encounter's combat/phase/counter state, and
// produces the signalbus.Signal stream that every other subsystem
// (timers, effects, challenges, overlays) reacts to.
package processor

import (
	"time"

	"github.com/baras-go/combatlog/internal/boss"
	"github.com/baras-go/combatlog/internal/challenge"
	"github.com/baras-go/combatlog/internal/encounter"
	"github.com/baras-go/combatlog/internal/model"
	"github.com/baras-go/combatlog/internal/session"
	"github.com/baras-go/combatlog/internal/signalbus"
)

// EventProcessor processes combat events, routes them across encounter
// boundaries, and emits signals. Besides the session.Cache/bus it's
// given at construction, it keeps per-encounter challenge trackers and
// elapsed-time bookkeeping; the combat lifecycle constants below match
// live-game timing, not arbitrary tuning.
type EventProcessor struct {
	cache *session.Cache
	boss  *boss.Set
	bus   *signalbus.Bus

	idleTimeout          time.Duration
	postCombatThreshold  time.Duration

	challenges map[uint64]*challenge.Tracker

	// lastElapsed is the combat-duration-so-far, in seconds, as of the
	// last event processed for each encounter id. checkTimePhaseTransitions
	// uses the (old, new) pair to detect a threshold crossing.
	lastElapsed map[uint64]float32
}

func New(cache *session.Cache, bossSet *boss.Set, bus *signalbus.Bus) *EventProcessor {
	return &EventProcessor{
		cache:               cache,
		boss:                bossSet,
		bus:                 bus,
		idleTimeout:         120 * time.Second,
		postCombatThreshold: 5 * time.Second,
		challenges:          make(map[uint64]*challenge.Tracker),
		lastElapsed:         make(map[uint64]float32),
	}
}

// Process runs one parsed event through the state machine and
// dispatches every signal it produces to the bus, using the resulting
// encounter's context.
func (p *EventProcessor) Process(ev model.CombatEvent) {
	signals := p.ProcessEvent(ev)
	enc := p.cache.Current()
	p.bus.Dispatch(signals, enc.Context())
}

// ProcessEvent runs ev through the fixed sequence of handlers listed
// in its body and returns every signal it produced, without
// dispatching them. Exposed separately so tests can assert on the
// signal stream directly.
func (p *EventProcessor) ProcessEvent(ev model.CombatEvent) []signalbus.Signal {
	var signals []signalbus.Signal

	signals = append(signals, p.handleDiscipline(ev)...)
	signals = append(signals, p.handleEntityLifecycle(ev)...)
	signals = append(signals, p.handleAreaTransition(ev)...)
	signals = append(signals, p.handleNpcFirstSeen(ev)...)
	signals = append(signals, p.handleBossDetection(ev)...)
	signals = append(signals, p.handleBossHPAndPhases(ev)...)
	signals = append(signals, p.handleTargetChanged(ev)...)

	signals = append(signals, p.emitEffectSignals(ev)...)
	signals = append(signals, p.emitActionSignals(ev)...)
	signals = append(signals, p.emitDamageSignals(ev)...)

	signals = append(signals, p.checkPhaseEndTriggers(ev, signals)...)
	signals = append(signals, p.checkCounterIncrements(ev, signals)...)
	signals = append(signals, p.checkAbilityEffectPhaseTransitions(ev, signals)...)
	signals = append(signals, p.checkEntityPhaseTransitions(ev, signals)...)
	signals = append(signals, p.checkTimePhaseTransitions(ev)...)

	p.recordChallenge(ev, signals)

	stateSignals, reroute := p.advanceCombatState(ev)
	signals = append(signals, stateSignals...)
	if reroute {
		signals = append(signals, p.ProcessEvent(ev)...)
	}

	return signals
}

func isPlayerLike(t model.EntityType) bool {
	return t == model.EntityPlayer || t == model.EntityCompanion
}

func (p *EventProcessor) handleDiscipline(ev model.CombatEvent) []signalbus.Signal {
	if ev.Effect.TypeID != model.EffectTypeIDDisciplineChanged {
		return nil
	}
	var signals []signalbus.Signal

	sourceID := ev.Source.LogID
	if p.cache.LocalPlayerID == 0 || sourceID == p.cache.LocalPlayerID {
		p.cache.LocalPlayerID = sourceID
		signals = append(signals, signalbus.Signal{
			Kind:      signalbus.KindPlayerInitialized,
			EntityID:  sourceID,
			Timestamp: ev.Timestamp,
		})
	}

	p.cache.SetDiscipline(sourceID, ev.Effect.DisciplineID)

	if ev.Effect.DisciplineID != 0 {
		signals = append(signals, signalbus.Signal{
			Kind:         signalbus.KindDisciplineChanged,
			EntityID:     sourceID,
			ClassID:      ev.Effect.EffectID,
			DisciplineID: ev.Effect.DisciplineID,
			Timestamp:    ev.Timestamp,
		})
	}
	return signals
}

func (p *EventProcessor) handleEntityLifecycle(ev model.CombatEvent) []signalbus.Signal {
	enc := p.cache.Current()

	switch ev.Effect.EffectID {
	case model.EffectIDDeath:
		enc.RecordDeath(ev.Target.LogID, isPlayerLike(ev.Target.Type))
		enc.SetEntityDead(ev.Target.LogID)
		enc.RecomputeAllPlayersDead(p.cache.KnownPlayerIDs())
		return []signalbus.Signal{{
			Kind:       signalbus.KindEntityDeath,
			EntityID:   ev.Target.LogID,
			EntityType: ev.Target.Type.String(),
			NpcID:      ev.Target.ClassID,
			EntityName: ev.Target.Name.String(),
			Timestamp:  ev.Timestamp,
		}}
	case model.EffectIDRevived:
		enc.SetEntityAlive(ev.Source.LogID)
		enc.RecomputeAllPlayersDead(p.cache.KnownPlayerIDs())
		return []signalbus.Signal{{
			Kind:       signalbus.KindEntityRevived,
			EntityID:   ev.Source.LogID,
			EntityType: ev.Source.Type.String(),
			NpcID:      ev.Source.ClassID,
			EntityName: ev.Source.Name.String(),
			Timestamp:  ev.Timestamp,
		}}
	}
	return nil
}

func (p *EventProcessor) handleAreaTransition(ev model.CombatEvent) []signalbus.Signal {
	if ev.Effect.TypeID != model.EffectTypeIDAreaEntered {
		return nil
	}

	p.cache.SetArea(ev.Effect.EffectID, ev.Effect.EffectName.String(), ev.Effect.DifficultyID, ev.Effect.DifficultyName.String())

	enc := p.cache.Current()
	enc.AreaID = p.cache.CurrentAreaID
	enc.AreaName = p.cache.CurrentAreaName
	if ev.Effect.DifficultyID != 0 {
		enc.DifficultyID = p.cache.CurrentDifficultyID
		enc.DifficultyName = p.cache.CurrentDifficultyName
	}

	return []signalbus.Signal{{
		Kind:           signalbus.KindAreaEntered,
		AreaID:         ev.Effect.EffectID,
		AreaName:       ev.Effect.EffectName.String(),
		DifficultyID:   ev.Effect.DifficultyID,
		DifficultyName: ev.Effect.DifficultyName.String(),
		Timestamp:      ev.Timestamp,
	}}
}

func (p *EventProcessor) handleNpcFirstSeen(ev model.CombatEvent) []signalbus.Signal {
	var signals []signalbus.Signal
	for _, entity := range [...]model.Entity{ev.Source, ev.Target} {
		if entity.Type != model.EntityNpc || entity.ClassID == 0 || entity.LogID == 0 {
			continue
		}
		if !p.cache.RegisterNpcInstance(entity.LogID) {
			continue
		}
		signals = append(signals, signalbus.Signal{
			Kind:       signalbus.KindNpcFirstSeen,
			EntityID:   entity.LogID,
			NpcID:      entity.ClassID,
			EntityName: entity.Name.String(),
			Timestamp:  ev.Timestamp,
		})
	}
	return signals
}

func (p *EventProcessor) handleBossDetection(ev model.CombatEvent) []signalbus.Signal {
	enc := p.cache.Current()
	if enc.State != encounter.InCombat || enc.BossDefinitionID != "" {
		return nil
	}

	for _, entity := range [...]model.Entity{ev.Source, ev.Target} {
		if entity.Type != model.EntityNpc || entity.ClassID == 0 {
			continue
		}
		def, ok := p.boss.DetectByNpcClass(entity.ClassID)
		if !ok {
			continue
		}

		enc.BossDefinitionID = def.ID
		enc.BossName = def.Name
		enc.BossEntityID = entity.LogID
		enc.BossNpcClassIDs = def.NpcClassIDs

		tracker := challenge.NewTracker(bossChallengeDefinitions(*def), ev.Timestamp)
		p.challenges[enc.ID] = tracker

		signals := []signalbus.Signal{{
			Kind:            signalbus.KindBossEncounterDetected,
			DefinitionID:    def.ID,
			BossName:        def.Name,
			EntityID:        entity.LogID,
			NpcID:           entity.ClassID,
			BossNpcClassIDs: def.NpcClassIDs,
			Timestamp:       ev.Timestamp,
		}}

		if def.InitialPhase != "" {
			enc.Phase = def.InitialPhase
			if phaseDef, ok := def.Phase(def.InitialPhase); ok {
				resetCounters(enc, phaseDef.ResetsCounters, def.Counters)
			}
			tracker.SetPhase(def.InitialPhase, ev.Timestamp)
			signals = append(signals, signalbus.Signal{
				Kind:      signalbus.KindPhaseChanged,
				BossID:    def.ID,
				OldPhase:  "",
				NewPhase:  def.InitialPhase,
				Timestamp: ev.Timestamp,
			})
		}

		return signals
	}
	return nil
}

// bossChallengeDefinitions always returns nil: a boss.Definition
// doesn't carry challenge.Definitions, and nothing in the loaded
// config associates a challenge with a boss, so a freshly detected
// encounter's tracker has no challenge definitions to accumulate.
func bossChallengeDefinitions(def boss.Definition) []challenge.Definition {
	return nil
}

func resetCounters(enc *encounter.Encounter, ids []string, defs []boss.CounterDefinition) {
	if len(ids) == 0 {
		return
	}
	byID := make(map[string]boss.CounterDefinition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			enc.Counters[id] = d.InitialValue
		}
	}
}

func (p *EventProcessor) handleBossHPAndPhases(ev model.CombatEvent) []signalbus.Signal {
	enc := p.cache.Current()
	if enc.BossDefinitionID == "" {
		return nil
	}

	var signals []signalbus.Signal
	for _, entity := range [...]model.Entity{ev.Source, ev.Target} {
		if entity.Type != model.EntityNpc || entity.ClassID == 0 || !enc.IsBossNpcClass(entity.ClassID) {
			continue
		}
		if entity.MaxHP <= 0 {
			continue
		}

		oldPct, newPct, changed := enc.UpdateHP(entity.LogID, entity.CurrentHP, entity.MaxHP)
		if !changed {
			continue
		}

		signals = append(signals, signalbus.Signal{
			Kind:         signalbus.KindBossHpChanged,
			EntityID:     entity.LogID,
			NpcID:        entity.ClassID,
			EntityName:   entity.Name.String(),
			CurrentHP:    entity.CurrentHP,
			MaxHP:        entity.MaxHP,
			OldHPPercent: oldPct,
			NewHPPercent: newPct,
			Timestamp:    ev.Timestamp,
		})

		signals = append(signals, p.checkHPPhaseTransitions(ev, oldPct, newPct, entity.ClassID, entity.Name.String())...)
	}
	return signals
}

func (p *EventProcessor) handleTargetChanged(ev model.CombatEvent) []signalbus.Signal {
	switch ev.Effect.EffectID {
	case model.EffectIDTargetSet:
		p.cache.SetTarget(ev.Source.LogID, ev.Target.LogID)
		return []signalbus.Signal{{
			Kind:        signalbus.KindTargetChanged,
			SourceID:    ev.Source.LogID,
			SourceName:  ev.Source.Name.String(),
			SourceNpcID: ev.Source.ClassID,
			TargetID:    ev.Target.LogID,
			TargetName:  ev.Target.Name.String(),
			TargetNpcID: ev.Target.ClassID,
			EntityType:  ev.Target.Type.String(),
			Timestamp:   ev.Timestamp,
		}}
	case model.EffectIDTargetCleared:
		p.cache.ClearTarget(ev.Source.LogID)
		return []signalbus.Signal{{
			Kind:      signalbus.KindTargetCleared,
			SourceID:  ev.Source.LogID,
			Timestamp: ev.Timestamp,
		}}
	}
	return nil
}

func (p *EventProcessor) emitEffectSignals(ev model.CombatEvent) []signalbus.Signal {
	switch ev.Effect.TypeID {
	case model.EffectTypeIDApplyEffect:
		if ev.Target.Type == model.EntityEmpty {
			return nil
		}
		charges := int32(0)
		if ev.Details.Charges > 0 {
			charges = model.CorrectCharges(ev.Effect.EffectID, ev.Details.Charges)
		}
		return []signalbus.Signal{{
			Kind:        signalbus.KindEffectApplied,
			EffectID:    ev.Effect.EffectID,
			EffectName:  ev.Effect.EffectName.String(),
			ActionID:    ev.Action.ID,
			ActionName:  ev.Action.Name.String(),
			SourceID:    ev.Source.LogID,
			SourceName:  ev.Source.Name.String(),
			SourceNpcID: ev.Source.ClassID,
			TargetID:    ev.Target.LogID,
			TargetName:  ev.Target.Name.String(),
			TargetNpcID: ev.Target.ClassID,
			EntityType:  ev.Target.Type.String(),
			Charges:     charges,
			Timestamp:   ev.Timestamp,
		}}
	case model.EffectTypeIDRemoveEffect:
		if ev.Source.Type == model.EntityEmpty {
			return nil
		}
		return []signalbus.Signal{{
			Kind:        signalbus.KindEffectRemoved,
			EffectID:    ev.Effect.EffectID,
			EffectName:  ev.Effect.EffectName.String(),
			SourceID:    ev.Source.LogID,
			SourceName:  ev.Source.Name.String(),
			SourceNpcID: ev.Source.ClassID,
			TargetID:    ev.Target.LogID,
			TargetName:  ev.Target.Name.String(),
			EntityType:  ev.Target.Type.String(),
			Timestamp:   ev.Timestamp,
		}}
	case model.EffectTypeIDModifyCharges:
		if ev.Target.Type == model.EntityEmpty {
			return nil
		}
		return []signalbus.Signal{{
			Kind:       signalbus.KindEffectChargesChanged,
			EffectID:   ev.Effect.EffectID,
			EffectName: ev.Effect.EffectName.String(),
			ActionID:   ev.Action.ID,
			ActionName: ev.Action.Name.String(),
			TargetID:   ev.Target.LogID,
			Charges:    ev.Details.Charges,
			Timestamp:  ev.Timestamp,
		}}
	}
	return nil
}

func (p *EventProcessor) emitActionSignals(ev model.CombatEvent) []signalbus.Signal {
	if ev.Effect.EffectID != model.EffectIDAbilityActivate {
		return nil
	}
	return []signalbus.Signal{{
		Kind:        signalbus.KindAbilityActivated,
		AbilityID:   ev.Action.ID,
		AbilityName: ev.Action.Name.String(),
		SourceID:    ev.Source.LogID,
		SourceName:  ev.Source.Name.String(),
		SourceNpcID: ev.Source.ClassID,
		TargetID:    ev.Target.LogID,
		TargetName:  ev.Target.Name.String(),
		TargetNpcID: ev.Target.ClassID,
		EntityType:  ev.Target.Type.String(),
		Timestamp:   ev.Timestamp,
	}}
}

func (p *EventProcessor) emitDamageSignals(ev model.CombatEvent) []signalbus.Signal {
	if ev.Effect.TypeID != model.EffectTypeIDApplyEffect || ev.Effect.EffectID != model.EffectIDDamage {
		return nil
	}
	if ev.Source.Type == model.EntityEmpty || ev.Target.Type == model.EntityEmpty {
		return nil
	}
	return []signalbus.Signal{{
		Kind:        signalbus.KindDamageTaken,
		AbilityID:   ev.Action.ID,
		AbilityName: ev.Action.Name.String(),
		SourceID:    ev.Source.LogID,
		SourceName:  ev.Source.Name.String(),
		SourceNpcID: ev.Source.ClassID,
		TargetID:    ev.Target.LogID,
		TargetName:  ev.Target.Name.String(),
		EntityType:  ev.Target.Type.String(),
		Timestamp:   ev.Timestamp,
	}}
}
