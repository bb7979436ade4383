// Package trigger provides the declarative condition language shared
// by timers, phase transitions, and counters: a single Trigger type
// tagged with which subsystems honor it, selectors for matching
// abilities/effects/entities by id or name, and an EntityFilter for
// the broader semantic classes (any player, the boss, etc).
package trigger

import "strings"

// Scope is a bitmask of which subsystems respond to a Trigger variant.
type Scope uint8

const (
	ScopeTimer   Scope = 0b001
	ScopePhase   Scope = 0b010
	ScopeCounter Scope = 0b100

	ScopeAll        = ScopeTimer | ScopePhase | ScopeCounter
	ScopeTimerPhase = ScopeTimer | ScopePhase
	ScopeTimerCounter = ScopeTimer | ScopeCounter
)

// Contains reports whether scope includes every bit set in other.
func (s Scope) Contains(other Scope) bool {
	return s&other == other
}

// Kind discriminates which fields of a Trigger are meaningful.
type Kind uint8

const (
	KindCombatStart Kind = iota
	KindCombatEnd
	KindAbilityCast
	KindEffectApplied
	KindEffectRemoved
	KindDamageTaken
	KindBossHpBelow
	KindBossHpAbove
	KindNpcAppears
	KindEntityDeath
	KindTargetSet
	KindPhaseEntered
	KindPhaseEnded
	KindAnyPhaseChange
	KindCounterReaches
	KindTimerExpires
	KindTimerStarted
	KindTimeElapsed
	KindManual
	KindNever
	KindAnyOf
)

// Trigger is a single condition, tagged by Kind. Which of the
// remaining fields are populated depends on Kind, the same
// variant-by-convention shape used for model.Details.
type Trigger struct {
	Kind Kind

	Abilities []AbilitySelector
	Effects   []EffectSelector
	Selector  []EntitySelector

	Source EntityFilter
	Target EntityFilter

	HPPercent float32

	PhaseID      string
	CounterID    string
	CounterValue uint32
	TimerID      string
	Secs         float32

	Conditions []Trigger
}

// Scope reports which systems respond to this trigger's Kind.
func (t Trigger) Scope() Scope {
	switch t.Kind {
	case KindCombatStart, KindAbilityCast, KindEffectApplied, KindEffectRemoved,
		KindDamageTaken, KindBossHpBelow, KindNpcAppears, KindEntityDeath,
		KindPhaseEnded, KindAnyOf:
		return ScopeAll
	case KindTimeElapsed, KindCounterReaches:
		return ScopeTimerPhase
	case KindPhaseEntered:
		return ScopeTimerCounter
	case KindTimerExpires, KindTimerStarted, KindTargetSet, KindManual:
		return ScopeTimer
	case KindBossHpAbove:
		return ScopePhase
	case KindCombatEnd, KindAnyPhaseChange, KindNever:
		return ScopeCounter
	default:
		return 0
	}
}

func (t Trigger) ValidForTimer() bool   { return t.Scope().Contains(ScopeTimer) }
func (t Trigger) ValidForPhase() bool   { return t.Scope().Contains(ScopePhase) }
func (t Trigger) ValidForCounter() bool { return t.Scope().Contains(ScopeCounter) }

// ContainsCombatStart reports whether t is CombatStart, or nests one
// inside an AnyOf composition.
func (t Trigger) ContainsCombatStart() bool {
	switch t.Kind {
	case KindCombatStart:
		return true
	case KindAnyOf:
		for _, c := range t.Conditions {
			if c.ContainsCombatStart() {
				return true
			}
		}
	}
	return false
}

// SourceTargetFilters extracts the source/target filters carried by
// event-based trigger kinds, defaulting to Any for kinds that don't
// carry one.
func (t Trigger) SourceTargetFilters() (source, target EntityFilter) {
	switch t.Kind {
	case KindAbilityCast, KindDamageTaken:
		return t.Source, EntityFilter{}
	case KindEffectApplied, KindEffectRemoved:
		return t.Source, t.Target
	case KindTargetSet:
		return EntityFilter{}, t.Target
	default:
		return EntityFilter{}, EntityFilter{}
	}
}

// MatchesAbility reports whether an AbilityCast trigger (or a nested
// one inside AnyOf) matches the given ability. An empty selector list
// matches nothing — a trigger author must name what they want.
func (t Trigger) MatchesAbility(abilityID int64, abilityName string) bool {
	switch t.Kind {
	case KindAbilityCast:
		return len(t.Abilities) > 0 && anyAbilityMatches(t.Abilities, abilityID, abilityName)
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesAbility(abilityID, abilityName) })
	}
	return false
}

func (t Trigger) MatchesEffectApplied(effectID int64, effectName string) bool {
	switch t.Kind {
	case KindEffectApplied:
		return len(t.Effects) > 0 && anyEffectMatches(t.Effects, effectID, effectName)
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesEffectApplied(effectID, effectName) })
	}
	return false
}

func (t Trigger) MatchesEffectRemoved(effectID int64, effectName string) bool {
	switch t.Kind {
	case KindEffectRemoved:
		return len(t.Effects) > 0 && anyEffectMatches(t.Effects, effectID, effectName)
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesEffectRemoved(effectID, effectName) })
	}
	return false
}

func (t Trigger) MatchesDamageTaken(abilityID int64, abilityName string) bool {
	switch t.Kind {
	case KindDamageTaken:
		return len(t.Abilities) > 0 && anyAbilityMatches(t.Abilities, abilityID, abilityName)
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesDamageTaken(abilityID, abilityName) })
	}
	return false
}

// MatchesBossHpBelow reports whether a boss' HP percent crossed below
// the threshold between two samples, and the boss matches the
// trigger's selector (empty selector = any boss).
func (t Trigger) MatchesBossHpBelow(npcID int64, name string, oldPercent, newPercent float32) bool {
	switch t.Kind {
	case KindBossHpBelow:
		if !(oldPercent > t.HPPercent && newPercent <= t.HPPercent) {
			return false
		}
		return len(t.Selector) == 0 || anyEntityMatches(t.Selector, npcID, name)
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool {
			return c.MatchesBossHpBelow(npcID, name, oldPercent, newPercent)
		})
	}
	return false
}

func (t Trigger) MatchesBossHpAbove(npcID int64, name string, oldPercent, newPercent float32) bool {
	switch t.Kind {
	case KindBossHpAbove:
		if !(oldPercent < t.HPPercent && newPercent >= t.HPPercent) {
			return false
		}
		return len(t.Selector) == 0 || anyEntityMatches(t.Selector, npcID, name)
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool {
			return c.MatchesBossHpAbove(npcID, name, oldPercent, newPercent)
		})
	}
	return false
}

// MatchesNpcAppears requires an explicit selector; an empty one never
// matches (otherwise every NPC spawn would fire it).
func (t Trigger) MatchesNpcAppears(npcID int64, name string) bool {
	switch t.Kind {
	case KindNpcAppears:
		return len(t.Selector) > 0 && anyEntityMatches(t.Selector, npcID, name)
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesNpcAppears(npcID, name) })
	}
	return false
}

// MatchesEntityDeath treats an empty selector as "any death".
func (t Trigger) MatchesEntityDeath(npcID int64, name string) bool {
	switch t.Kind {
	case KindEntityDeath:
		return len(t.Selector) == 0 || anyEntityMatches(t.Selector, npcID, name)
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesEntityDeath(npcID, name) })
	}
	return false
}

func (t Trigger) MatchesPhaseEntered(phaseID string) bool {
	switch t.Kind {
	case KindPhaseEntered:
		return t.PhaseID == phaseID
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesPhaseEntered(phaseID) })
	}
	return false
}

func (t Trigger) MatchesPhaseEnded(phaseID string) bool {
	switch t.Kind {
	case KindPhaseEnded:
		return t.PhaseID == phaseID
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesPhaseEnded(phaseID) })
	}
	return false
}

func (t Trigger) MatchesCounterReaches(counterID string, oldValue, newValue uint32) bool {
	switch t.Kind {
	case KindCounterReaches:
		return t.CounterID == counterID && oldValue < t.CounterValue && newValue >= t.CounterValue
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool {
			return c.MatchesCounterReaches(counterID, oldValue, newValue)
		})
	}
	return false
}

func (t Trigger) MatchesTimeElapsed(oldSecs, newSecs float32) bool {
	switch t.Kind {
	case KindTimeElapsed:
		return oldSecs < t.Secs && newSecs >= t.Secs
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesTimeElapsed(oldSecs, newSecs) })
	}
	return false
}

func (t Trigger) MatchesTimerExpires(timerID string) bool {
	switch t.Kind {
	case KindTimerExpires:
		return t.TimerID == timerID
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesTimerExpires(timerID) })
	}
	return false
}

func (t Trigger) MatchesTimerStarted(timerID string) bool {
	switch t.Kind {
	case KindTimerStarted:
		return t.TimerID == timerID
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool { return c.MatchesTimerStarted(timerID) })
	}
	return false
}

// MatchesTargetSet requires an explicit selector on the NPC doing the
// targeting.
func (t Trigger) MatchesTargetSet(sourceNpcID int64, sourceName string) bool {
	switch t.Kind {
	case KindTargetSet:
		return len(t.Selector) > 0 && anyEntityMatches(t.Selector, sourceNpcID, sourceName)
	case KindAnyOf:
		return anyConditionMatches(t.Conditions, func(c Trigger) bool {
			return c.MatchesTargetSet(sourceNpcID, sourceName)
		})
	}
	return false
}

func anyConditionMatches(conditions []Trigger, pred func(Trigger) bool) bool {
	for _, c := range conditions {
		if pred(c) {
			return true
		}
	}
	return false
}

// AbilitySelector matches an ability by numeric id or, failing that,
// by case-insensitive name.
type AbilitySelector struct {
	ID   int64
	Name string
}

func (s AbilitySelector) matches(id int64, name string) bool {
	if s.ID != 0 {
		return s.ID == id
	}
	return s.Name != "" && strings.EqualFold(s.Name, name)
}

func anyAbilityMatches(selectors []AbilitySelector, id int64, name string) bool {
	for _, s := range selectors {
		if s.matches(id, name) {
			return true
		}
	}
	return false
}

// EffectSelector matches an effect by numeric id or name, same
// semantics as AbilitySelector.
type EffectSelector struct {
	ID   int64
	Name string
}

func (s EffectSelector) matches(id int64, name string) bool {
	if s.ID != 0 {
		return s.ID == id
	}
	return s.Name != "" && strings.EqualFold(s.Name, name)
}

func anyEffectMatches(selectors []EffectSelector, id int64, name string) bool {
	for _, s := range selectors {
		if s.matches(id, name) {
			return true
		}
	}
	return false
}

// EntitySelector matches an entity (usually an NPC) by numeric id or
// name.
type EntitySelector struct {
	ID   int64
	Name string
}

func (s EntitySelector) matches(id int64, name string) bool {
	if s.ID != 0 {
		return s.ID == id
	}
	return s.Name != "" && strings.EqualFold(s.Name, name)
}

func anyEntityMatches(selectors []EntitySelector, id int64, name string) bool {
	for _, s := range selectors {
		if s.matches(id, name) {
			return true
		}
	}
	return false
}

// FilterKind names the semantic class an EntityFilter restricts to.
type FilterKind uint8

const (
	FilterAny FilterKind = iota
	FilterLocalPlayer
	FilterAnyPlayer
	FilterBoss
	FilterNpcExceptBoss
	FilterSelector
)

// EntityFilter is a broader predicate than EntitySelector: instead of
// naming specific entities it can ask for "any player", "the local
// player", "the boss", or fall back to an explicit selector list.
type EntityFilter struct {
	Kind      FilterKind
	Selectors []EntitySelector
}

// Ctx is what an EntityFilter needs to know about an entity to decide
// whether it matches.
type Ctx struct {
	ID            int64
	Name          string
	IsPlayer      bool
	IsLocalPlayer bool
	IsBoss        bool
}

// Matches reports whether ctx satisfies the filter.
func (f EntityFilter) Matches(ctx Ctx) bool {
	switch f.Kind {
	case FilterAny:
		return true
	case FilterLocalPlayer:
		return ctx.IsLocalPlayer
	case FilterAnyPlayer:
		return ctx.IsPlayer
	case FilterBoss:
		return ctx.IsBoss
	case FilterNpcExceptBoss:
		return !ctx.IsPlayer && !ctx.IsBoss
	case FilterSelector:
		return anyEntityMatches(f.Selectors, ctx.ID, ctx.Name)
	default:
		return false
	}
}
