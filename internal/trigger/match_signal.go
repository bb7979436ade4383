package trigger

import "github.com/baras-go/combatlog/internal/signalbus"

// MatchesSignal bridges a Trigger to the GameSignal stream: it decides
// whether t fires in response to sig, dispatching to the matcher for
// sig's Kind and recursing through AnyOf automatically.
func MatchesSignal(t Trigger, sig signalbus.Signal) bool {
	switch sig.Kind {
	case signalbus.KindCombatStarted:
		return matchesNoArg(t, KindCombatStart)
	case signalbus.KindCombatEnded:
		return matchesNoArg(t, KindCombatEnd)
	case signalbus.KindAbilityActivated:
		return t.MatchesAbility(sig.AbilityID, sig.AbilityName)
	case signalbus.KindEffectApplied:
		return t.MatchesEffectApplied(sig.EffectID, sig.EffectName)
	case signalbus.KindEffectRemoved:
		return t.MatchesEffectRemoved(sig.EffectID, sig.EffectName)
	case signalbus.KindDamageTaken:
		return t.MatchesDamageTaken(sig.AbilityID, sig.AbilityName)
	case signalbus.KindNpcFirstSeen:
		return t.MatchesNpcAppears(sig.NpcID, sig.EntityName)
	case signalbus.KindEntityDeath:
		return t.MatchesEntityDeath(sig.NpcID, sig.EntityName)
	case signalbus.KindTargetChanged:
		return t.MatchesTargetSet(sig.SourceNpcID, sig.SourceName)
	case signalbus.KindPhaseChanged:
		return t.MatchesPhaseEntered(sig.NewPhase) || matchesNoArg(t, KindAnyPhaseChange)
	case signalbus.KindPhaseEndTriggered:
		return t.MatchesPhaseEnded(sig.PhaseID) || matchesNoArg(t, KindAnyPhaseChange)
	case signalbus.KindCounterChanged:
		return t.MatchesCounterReaches(sig.CounterID, sig.OldValue, sig.NewValue)
	case signalbus.KindBossHpChanged:
		return t.MatchesBossHpBelow(sig.NpcID, sig.EntityName, sig.OldHPPercent, sig.NewHPPercent) ||
			t.MatchesBossHpAbove(sig.NpcID, sig.EntityName, sig.OldHPPercent, sig.NewHPPercent)
	default:
		return false
	}
}

// matchesNoArg handles the trigger kinds that carry no payload
// (CombatStart, CombatEnd, AnyPhaseChange, Manual, Never), recursing
// through AnyOf.
func matchesNoArg(t Trigger, want Kind) bool {
	switch t.Kind {
	case want:
		return true
	case KindAnyOf:
		for _, c := range t.Conditions {
			if matchesNoArg(c, want) {
				return true
			}
		}
	}
	return false
}
