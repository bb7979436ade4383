package processor

import (
	"github.com/baras-go/combatlog/internal/boss"
	"github.com/baras-go/combatlog/internal/challenge"
	"github.com/baras-go/combatlog/internal/encounter"
	"github.com/baras-go/combatlog/internal/model"
	"github.com/baras-go/combatlog/internal/signalbus"
	"github.com/baras-go/combatlog/internal/trigger"
)

// bossDef returns the active boss definition for the current
// encounter, if one has been detected.
func (p *EventProcessor) bossDef(enc *encounter.Encounter) (*boss.Definition, bool) {
	if enc.BossDefinitionID == "" {
		return nil, false
	}
	return p.boss.ByID(enc.BossDefinitionID)
}

// transitionPhase applies a matched phase change: resets the counters
// the new phase names, advances enc.Phase/the challenge tracker, and
// returns the PhaseChanged signal.
func (p *EventProcessor) transitionPhase(enc *encounter.Encounter, def *boss.Definition, next boss.PhaseDefinition, ev model.CombatEvent) signalbus.Signal {
	old := enc.Phase
	enc.Phase = next.ID
	resetCounters(enc, next.ResetsCounters, def.Counters)
	if tracker, ok := p.challenges[enc.ID]; ok {
		tracker.SetPhase(next.ID, ev.Timestamp)
	}
	return signalbus.Signal{
		Kind:      signalbus.KindPhaseChanged,
		BossID:    def.ID,
		OldPhase:  old,
		NewPhase:  next.ID,
		Timestamp: ev.Timestamp,
	}
}

// candidatePhase picks the first phase (other than the current one)
// whose gating (PrecededBy, CounterCondition) is satisfied and whose
// EnterTriggers contains a trigger for which match returns true.
func candidatePhase(enc *encounter.Encounter, def *boss.Definition, match func(trigger.Trigger) bool) (boss.PhaseDefinition, bool) {
	for _, ph := range def.Phases {
		if ph.ID == enc.Phase {
			continue
		}
		if ph.PrecededBy != "" && ph.PrecededBy != enc.Phase {
			continue
		}
		if ph.CounterCondition != nil && !ph.CounterCondition.Evaluate(enc.Counters) {
			continue
		}
		for _, t := range ph.EnterTriggers {
			if match(t) {
				return ph, true
			}
		}
	}
	return boss.PhaseDefinition{}, false
}

// checkPhaseEndTriggers tests the current phase's EndTrigger against
// every signal produced by this event, emitting PhaseEndTriggered when
// it fires. This only reports the end; the next phase is picked up by
// one of the checkXPhaseTransitions evaluators on the same event or a
// later one.
func (p *EventProcessor) checkPhaseEndTriggers(ev model.CombatEvent, signals []signalbus.Signal) []signalbus.Signal {
	enc := p.cache.Current()
	def, ok := p.bossDef(enc)
	if !ok || enc.Phase == "" {
		return nil
	}
	current, ok := def.Phase(enc.Phase)
	if !ok || current.EndTrigger.Kind == trigger.KindNever {
		return nil
	}

	for _, sig := range signals {
		if trigger.MatchesSignal(current.EndTrigger, sig) {
			return []signalbus.Signal{{
				Kind:      signalbus.KindPhaseEndTriggered,
				BossID:    def.ID,
				PhaseID:   current.ID,
				Timestamp: ev.Timestamp,
			}}
		}
	}
	return nil
}

// checkCounterIncrements tests every boss counter's SetValueOn/
// ResetOn/IncrementOn/DecrementOn triggers against the signals this
// event produced, applying the first matching rule in that priority order
// and emitting CounterChanged when a value actually moves.
func (p *EventProcessor) checkCounterIncrements(ev model.CombatEvent, signals []signalbus.Signal) []signalbus.Signal {
	enc := p.cache.Current()
	def, ok := p.bossDef(enc)
	if !ok {
		return nil
	}

	var out []signalbus.Signal
	for _, cd := range def.Counters {
		old := enc.Counters[cd.ID]
		next := old
		matched := false

		for value, t := range cd.SetValueOn {
			if anySignalMatches(t, signals) {
				next = value
				matched = true
				break
			}
		}
		if !matched {
			for _, t := range cd.ResetOn {
				if anySignalMatches(t, signals) {
					next = cd.InitialValue
					matched = true
					break
				}
			}
		}
		if !matched {
			for _, t := range cd.IncrementOn {
				if anySignalMatches(t, signals) {
					next = old + 1
					matched = true
					break
				}
			}
		}
		if !matched {
			for _, t := range cd.DecrementOn {
				if anySignalMatches(t, signals) && old > 0 {
					next = old - 1
					matched = true
					break
				}
			}
		}

		if !matched || next == old {
			continue
		}
		enc.Counters[cd.ID] = next
		out = append(out, signalbus.Signal{
			Kind:      signalbus.KindCounterChanged,
			CounterID: cd.ID,
			OldValue:  old,
			NewValue:  next,
			Timestamp: ev.Timestamp,
		})
	}
	return out
}

func anySignalMatches(t trigger.Trigger, signals []signalbus.Signal) bool {
	for _, sig := range signals {
		if trigger.MatchesSignal(t, sig) {
			return true
		}
	}
	return false
}

// checkAbilityEffectPhaseTransitions looks for a candidate phase whose
// EnterTriggers include an AbilityCast/EffectApplied/EffectRemoved/
// DamageTaken trigger matched by one of this event's signals.
func (p *EventProcessor) checkAbilityEffectPhaseTransitions(ev model.CombatEvent, signals []signalbus.Signal) []signalbus.Signal {
	enc := p.cache.Current()
	def, ok := p.bossDef(enc)
	if !ok {
		return nil
	}
	ph, ok := candidatePhase(enc, def, func(t trigger.Trigger) bool {
		switch t.Kind {
		case trigger.KindAbilityCast, trigger.KindEffectApplied, trigger.KindEffectRemoved, trigger.KindDamageTaken, trigger.KindAnyOf:
			return anySignalMatches(t, signals)
		}
		return false
	})
	if !ok {
		return nil
	}
	return []signalbus.Signal{p.transitionPhase(enc, def, ph, ev)}
}

// checkEntityPhaseTransitions looks for a candidate phase whose
// EnterTriggers include an NpcAppears/EntityDeath/TargetSet trigger
// matched by one of this event's signals.
func (p *EventProcessor) checkEntityPhaseTransitions(ev model.CombatEvent, signals []signalbus.Signal) []signalbus.Signal {
	enc := p.cache.Current()
	def, ok := p.bossDef(enc)
	if !ok {
		return nil
	}
	ph, ok := candidatePhase(enc, def, func(t trigger.Trigger) bool {
		switch t.Kind {
		case trigger.KindNpcAppears, trigger.KindEntityDeath, trigger.KindTargetSet, trigger.KindAnyOf:
			return anySignalMatches(t, signals)
		}
		return false
	})
	if !ok {
		return nil
	}
	return []signalbus.Signal{p.transitionPhase(enc, def, ph, ev)}
}

// checkTimePhaseTransitions looks for a candidate phase gated on time
// elapsed since the encounter entered combat, comparing the elapsed
// seconds as of the previous event to the elapsed seconds as of ev.
func (p *EventProcessor) checkTimePhaseTransitions(ev model.CombatEvent) []signalbus.Signal {
	enc := p.cache.Current()
	def, ok := p.bossDef(enc)
	if !ok || enc.EnterCombatTime.IsZero() {
		return nil
	}

	newSecs := float32(ev.Timestamp.Sub(enc.EnterCombatTime).Seconds())
	oldSecs := p.lastElapsed[enc.ID]
	p.lastElapsed[enc.ID] = newSecs
	if newSecs <= oldSecs {
		return nil
	}

	ph, ok := candidatePhase(enc, def, func(t trigger.Trigger) bool {
		return t.MatchesTimeElapsed(oldSecs, newSecs)
	})
	if !ok {
		return nil
	}
	return []signalbus.Signal{p.transitionPhase(enc, def, ph, ev)}
}

// checkHPPhaseTransitions looks for a candidate phase gated on the
// boss HP crossing a threshold, called directly from
// handleBossHPAndPhases with the percentages it just computed.
func (p *EventProcessor) checkHPPhaseTransitions(ev model.CombatEvent, oldPct, newPct float32, npcID int64, name string) []signalbus.Signal {
	enc := p.cache.Current()
	def, ok := p.bossDef(enc)
	if !ok {
		return nil
	}
	ph, ok := candidatePhase(enc, def, func(t trigger.Trigger) bool {
		return t.MatchesBossHpBelow(npcID, name, oldPct, newPct) || t.MatchesBossHpAbove(npcID, name, oldPct, newPct)
	})
	if !ok {
		return nil
	}
	return []signalbus.Signal{p.transitionPhase(enc, def, ph, ev)}
}

// recordChallenge feeds the raw event into the current encounter's
// challenge tracker, if one exists (challenges only start accumulating
// once a boss has been detected).
func (p *EventProcessor) recordChallenge(ev model.CombatEvent, signals []signalbus.Signal) {
	enc := p.cache.Current()
	tracker, ok := p.challenges[enc.ID]
	if !ok {
		return
	}

	bossNpcIDs := make(map[int64]bool, len(enc.BossNpcClassIDs))
	for _, id := range enc.BossNpcClassIDs {
		bossNpcIDs[id] = true
	}
	hpByNpcID := make(map[int64]float32)
	if hp, ok := enc.HP(ev.Target.LogID); ok {
		hpByNpcID[ev.Target.ClassID] = hp.Percent()
	}
	ctx := challenge.Context{
		CurrentPhase: enc.Phase,
		Counters:     enc.Counters,
		HPByNpcID:    hpByNpcID,
		BossNpcIDs:   bossNpcIDs,
	}

	source := entityInfo(ev.Source, p.cache.LocalPlayerID)
	target := entityInfo(ev.Target, p.cache.LocalPlayerID)

	switch {
	case ev.Effect.EffectID == model.EffectIDDamage:
		tracker.RecordDamage(ctx, source, target, ev.Details.DmgEffective, ev.Timestamp)
		if ev.Details.Threat != 0 {
			tracker.RecordThreat(ctx, source, target, ev.Details.Threat, ev.Timestamp)
		}
	case ev.Effect.EffectID == model.EffectIDHeal:
		tracker.RecordHeal(ctx, source, target, ev.Details.HealAmount, ev.Details.HealEffective, ev.Timestamp)
		if ev.Details.Threat != 0 {
			tracker.RecordThreat(ctx, source, target, ev.Details.Threat, ev.Timestamp)
		}
	case ev.Effect.EffectID == model.EffectIDAbilityActivate:
		tracker.RecordAbility(ctx, source, target, ev.Action.ID, ev.Action.Name.String(), ev.Timestamp)
	case ev.Effect.TypeID == model.EffectTypeIDApplyEffect:
		tracker.RecordEffect(ctx, source, target, ev.Effect.EffectID, ev.Effect.EffectName.String(), ev.Timestamp)
	case ev.Effect.EffectID == model.EffectIDDeath:
		tracker.RecordDeath(ctx, target, ev.Timestamp)
	}
}

func entityInfo(e model.Entity, localPlayerID int64) challenge.EntityInfo {
	isPlayer := isPlayerLike(e.Type)
	return challenge.EntityInfo{
		EntityID:      e.LogID,
		Name:          e.Name.String(),
		IsPlayer:      isPlayer,
		IsLocalPlayer: isPlayer && e.LogID == localPlayerID,
		NpcID:         e.ClassID,
	}
}
