// Package challenge implements per-encounter conditional metric
// accumulation: "how much damage did the raid do to the add during
// phase 2", the kind of derived stat a boss definition author wants
// without writing a bespoke evaluator for every fight.
package challenge

import (
	"time"

	"github.com/baras-go/combatlog/internal/boss"
	"github.com/baras-go/combatlog/internal/trigger"
)

// Metric names which event kind a ChallengeDefinition accumulates.
type Metric uint8

const (
	MetricDamage Metric = iota
	MetricHealing
	MetricEffectiveHealing
	MetricDamageTaken
	MetricHealingTaken
	MetricAbilityCount
	MetricEffectCount
	MetricDeaths
	MetricThreat
)

// Condition is one clause of a definition's AND-list of gates.
type Condition struct {
	PhaseID string // empty = no phase gate

	Source trigger.EntityFilter
	HasSource bool
	Target    trigger.EntityFilter
	HasTarget bool

	Ability    trigger.AbilitySelector
	HasAbility bool
	Effect     trigger.EffectSelector
	HasEffect  bool

	Counter *boss.CounterCondition

	HasHPRange bool
	HPMin, HPMax float32
}

// Definition describes one challenge: what it measures and under what
// conditions events count toward it.
type Definition struct {
	ID           string
	Name         string
	Metric       Metric
	Conditions   []Condition
	Enabled      bool
	Color        string
	ColumnPreset string
}

// Value is one definition's accumulated state.
type Value struct {
	Value         float64
	EventCount    int
	ByPlayer      map[int64]float64
	FirstEventTime time.Time
	ActivatedTime  time.Time
	activated      bool
	DurationSecs   float64
}

// EntityInfo is what condition evaluation needs to know about a party
// to an event.
type EntityInfo struct {
	EntityID      int64
	Name          string
	IsPlayer      bool
	IsLocalPlayer bool
	NpcID         int64
}

// Context snapshots the fields counter/phase/hp conditions are
// evaluated against, refreshed before each event.
type Context struct {
	CurrentPhase string
	Counters     map[string]uint32
	HPByNpcID    map[int64]float32
	BossNpcIDs   map[int64]bool
}

// Tracker accumulates every enabled Definition for one encounter.
type Tracker struct {
	definitions []Definition
	values      map[string]*Value
}

// NewTracker initializes a value for every enabled definition.
// Definitions with no phase-gated condition activate immediately;
// phase-gated ones activate the first time SetPhase names their phase.
func NewTracker(definitions []Definition, now time.Time) *Tracker {
	t := &Tracker{definitions: definitions, values: make(map[string]*Value)}
	for _, d := range definitions {
		if !d.Enabled {
			continue
		}
		v := &Value{ByPlayer: make(map[int64]float64)}
		if !definitionHasPhaseGate(d) {
			v.ActivatedTime = now
			v.activated = true
		}
		t.values[d.ID] = v
	}
	return t
}

func definitionHasPhaseGate(d Definition) bool {
	for _, c := range d.Conditions {
		if c.PhaseID != "" {
			return true
		}
	}
	return false
}

// SetPhase activates any phase-gated challenge whose condition names
// the newly entered phase, the first time it's entered.
func (t *Tracker) SetPhase(phaseID string, now time.Time) {
	for _, d := range t.definitions {
		v, ok := t.values[d.ID]
		if !ok || v.activated {
			continue
		}
		for _, c := range d.Conditions {
			if c.PhaseID == phaseID {
				v.ActivatedTime = now
				v.activated = true
				break
			}
		}
	}
}

func conditionsMet(conds []Condition, ctx Context, source, target EntityInfo, abilityID int64, abilityName string, effectID int64, effectName string) bool {
	for _, c := range conds {
		if c.PhaseID != "" && c.PhaseID != ctx.CurrentPhase {
			return false
		}
		if c.HasSource && !c.Source.Matches(trigger.Ctx{ID: source.EntityID, Name: source.Name, IsPlayer: source.IsPlayer, IsLocalPlayer: source.IsLocalPlayer}) {
			return false
		}
		if c.HasTarget && !c.Target.Matches(trigger.Ctx{ID: target.EntityID, Name: target.Name, IsPlayer: target.IsPlayer, IsLocalPlayer: target.IsLocalPlayer, IsBoss: ctx.BossNpcIDs[target.NpcID]}) {
			return false
		}
		if c.HasAbility && !abilitySelectorMatches(c.Ability, abilityID, abilityName) {
			return false
		}
		if c.HasEffect && !effectSelectorMatches(c.Effect, effectID, effectName) {
			return false
		}
		if c.Counter != nil && !c.Counter.Evaluate(ctx.Counters) {
			return false
		}
		if c.HasHPRange {
			pct := ctx.HPByNpcID[target.NpcID]
			if pct < c.HPMin || pct > c.HPMax {
				return false
			}
		}
	}
	return true
}

func abilitySelectorMatches(s trigger.AbilitySelector, id int64, name string) bool {
	if s.ID != 0 {
		return s.ID == id
	}
	return s.Name != "" && s.Name == name
}

func effectSelectorMatches(s trigger.EffectSelector, id int64, name string) bool {
	if s.ID != 0 {
		return s.ID == id
	}
	return s.Name != "" && s.Name == name
}

func (t *Tracker) record(metric Metric, ctx Context, amount float64, source, target EntityInfo, abilityID int64, abilityName string, effectID int64, effectName string, now time.Time, byPlayerEntity int64, byPlayerIsPlayer bool) {
	for _, d := range t.definitions {
		if d.Metric != metric || !d.Enabled {
			continue
		}
		v, ok := t.values[d.ID]
		if !ok || !v.activated {
			continue
		}
		if !conditionsMet(d.Conditions, ctx, source, target, abilityID, abilityName, effectID, effectName) {
			continue
		}
		if v.EventCount == 0 {
			v.FirstEventTime = now
		}
		v.Value += amount
		v.EventCount++
		if byPlayerIsPlayer {
			v.ByPlayer[byPlayerEntity] += amount
		}
	}
}

// RecordDamage feeds the Damage metric (attributed to source) and
// DamageTaken (attributed to target).
func (t *Tracker) RecordDamage(ctx Context, source, target EntityInfo, amount int32, now time.Time) {
	t.record(MetricDamage, ctx, float64(amount), source, target, 0, "", 0, "", now, source.EntityID, source.IsPlayer)
	t.record(MetricDamageTaken, ctx, float64(amount), source, target, 0, "", 0, "", now, target.EntityID, target.IsPlayer)
}

// RecordHeal feeds Healing/EffectiveHealing (by source) and
// HealingTaken (by target).
func (t *Tracker) RecordHeal(ctx Context, source, target EntityInfo, amount, effective int32, now time.Time) {
	t.record(MetricHealing, ctx, float64(amount), source, target, 0, "", 0, "", now, source.EntityID, source.IsPlayer)
	t.record(MetricEffectiveHealing, ctx, float64(effective), source, target, 0, "", 0, "", now, source.EntityID, source.IsPlayer)
	t.record(MetricHealingTaken, ctx, float64(effective), source, target, 0, "", 0, "", now, target.EntityID, target.IsPlayer)
}

// RecordAbility feeds AbilityCount, attributed to the caster.
func (t *Tracker) RecordAbility(ctx Context, source, target EntityInfo, abilityID int64, abilityName string, now time.Time) {
	t.record(MetricAbilityCount, ctx, 1, source, target, abilityID, abilityName, 0, "", now, source.EntityID, source.IsPlayer)
}

// RecordEffect feeds EffectCount, attributed to the caster.
func (t *Tracker) RecordEffect(ctx Context, source, target EntityInfo, effectID int64, effectName string, now time.Time) {
	t.record(MetricEffectCount, ctx, 1, source, target, 0, "", effectID, effectName, now, source.EntityID, source.IsPlayer)
}

// RecordDeath feeds Deaths, attributed to the entity that died.
func (t *Tracker) RecordDeath(ctx Context, entity EntityInfo, now time.Time) {
	t.record(MetricDeaths, ctx, 1, entity, entity, 0, "", 0, "", now, entity.EntityID, entity.IsPlayer)
}

// RecordThreat feeds Threat, attributed to the generator.
func (t *Tracker) RecordThreat(ctx Context, source, target EntityInfo, amount float32, now time.Time) {
	t.record(MetricThreat, ctx, float64(amount), source, target, 0, "", 0, "", now, source.EntityID, source.IsPlayer)
}

// Snapshot returns the live view of every activated challenge:
// duration computed from ActivatedTime (or FirstEventTime if unset) to
// now, challenges with no recorded events omitted.
func (t *Tracker) Snapshot(now time.Time) map[string]Value {
	out := make(map[string]Value)
	for id, v := range t.values {
		if v.EventCount == 0 {
			continue
		}
		snap := *v
		start := v.ActivatedTime
		if start.IsZero() {
			start = v.FirstEventTime
		}
		snap.DurationSecs = now.Sub(start).Seconds()
		out[id] = snap
	}
	return out
}
