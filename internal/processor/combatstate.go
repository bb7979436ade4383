package processor

import (
	"github.com/baras-go/combatlog/internal/encounter"
	"github.com/baras-go/combatlog/internal/model"
	"github.com/baras-go/combatlog/internal/signalbus"
)

func isEnterCombat(ev model.CombatEvent) bool {
	return ev.Effect.TypeID == model.EffectTypeIDEnterCombat
}

func isExitCombat(ev model.CombatEvent) bool {
	return ev.Effect.TypeID == model.EffectTypeIDExitCombat
}

func isDamageOrHealEvent(ev model.CombatEvent) bool {
	return ev.Effect.EffectID == model.EffectIDDamage || ev.Effect.EffectID == model.EffectIDHeal
}

// accumulateStats applies the per-event bookkeeping an InCombat or
// trailing-damage PostCombat encounter keeps: player totals, HP
// snapshots, and shield-absorb pool tracking.
func (p *EventProcessor) accumulateStats(enc *encounter.Encounter, ev model.CombatEvent) {
	srcIsPlayer := isPlayerLike(ev.Source.Type)
	tgtIsPlayer := isPlayerLike(ev.Target.Type)

	switch ev.Effect.EffectID {
	case model.EffectIDDamage:
		enc.RecordDamage(ev.Source.LogID, ev.Target.LogID, ev.Details.DmgEffective, srcIsPlayer, tgtIsPlayer)
		if ev.Details.Threat != 0 {
			enc.RecordThreat(ev.Source.LogID, ev.Details.Threat, srcIsPlayer)
		}
		if ev.Details.DmgAbsorbed > 0 {
			enc.AbsorbFromAnyShield(ev.Target.LogID, ev.Details.DmgAbsorbed)
		}
	case model.EffectIDHeal:
		enc.RecordHeal(ev.Source.LogID, ev.Target.LogID, ev.Details.HealAmount, ev.Details.HealEffective, srcIsPlayer, tgtIsPlayer)
		if ev.Details.Threat != 0 {
			enc.RecordThreat(ev.Source.LogID, ev.Details.Threat, srcIsPlayer)
		}
	}

	if ev.Effect.TypeID == model.EffectTypeIDApplyEffect {
		enc.ApplyShield(ev.Effect.EffectID, ev.Target.LogID)
	}

	if ev.Target.MaxHP > 0 {
		enc.UpdateHP(ev.Target.LogID, ev.Target.CurrentHP, ev.Target.MaxHP)
	}
	if ev.Source.MaxHP > 0 {
		enc.UpdateHP(ev.Source.LogID, ev.Source.CurrentHP, ev.Source.MaxHP)
	}
}

// advanceCombatState applies the combat lifecycle transition table:
// NotStarted -> InCombat -> PostCombat, with encounter-ring pushes and
// same-event re-routing where the table calls for it. The bool return
// tells the caller to re-run ProcessEvent against the (now current)
// encounter.
func (p *EventProcessor) advanceCombatState(ev model.CombatEvent) ([]signalbus.Signal, bool) {
	enc := p.cache.Current()

	switch enc.State {
	case encounter.NotStarted:
		if isEnterCombat(ev) {
			enc.State = encounter.InCombat
			enc.EnterCombatTime = ev.Timestamp
			enc.LastActivityTime = ev.Timestamp
			return []signalbus.Signal{{Kind: signalbus.KindCombatStarted, Timestamp: ev.Timestamp}}, false
		}
		return nil, false

	case encounter.InCombat:
		if !enc.LastActivityTime.IsZero() && ev.Timestamp.Sub(enc.LastActivityTime) > p.idleTimeout {
			enc.State = encounter.PostCombat
			enc.ExitTime = enc.LastActivityTime
			signals := []signalbus.Signal{{Kind: signalbus.KindCombatEnded, Timestamp: enc.LastActivityTime}}
			p.closeCurrent(enc.ID)
			p.pushNew()
			return signals, true
		}
		if isEnterCombat(ev) {
			enc.State = encounter.PostCombat
			enc.ExitTime = ev.Timestamp
			signals := []signalbus.Signal{{Kind: signalbus.KindCombatEnded, Timestamp: ev.Timestamp}}
			p.closeCurrent(enc.ID)
			p.pushNew()
			return signals, true
		}
		if isExitCombat(ev) || enc.AllPlayersDead {
			enc.State = encounter.PostCombat
			enc.ExitTime = ev.Timestamp
			return []signalbus.Signal{{Kind: signalbus.KindCombatEnded, Timestamp: ev.Timestamp}}, false
		}
		if ev.Effect.TypeID == model.EffectTypeIDAreaEntered {
			signals := []signalbus.Signal{{Kind: signalbus.KindCombatEnded, Timestamp: ev.Timestamp}}
			enc.ExitTime = ev.Timestamp
			p.closeCurrent(enc.ID)
			p.pushNew()
			return signals, false
		}

		p.accumulateStats(enc, ev)
		if isDamageOrHealEvent(ev) {
			enc.LastActivityTime = ev.Timestamp
		}
		return nil, false

	case encounter.PostCombat:
		if isEnterCombat(ev) {
			p.pushNew()
			return nil, true
		}
		if ev.Effect.EffectID == model.EffectIDDamage {
			if ev.Timestamp.Sub(enc.ExitTime) <= p.postCombatThreshold {
				p.accumulateStats(enc, ev)
				return nil, false
			}
			p.pushNew()
			return nil, false
		}
		p.pushNew()
		return nil, true
	}

	return nil, false
}

func (p *EventProcessor) closeCurrent(encounterID uint64) {
	p.bus.EncounterEnded(encounterID)
	delete(p.challenges, encounterID)
}

func (p *EventProcessor) pushNew() {
	enc := p.cache.Push()
	p.bus.EncounterStarted(enc.ID)
}
