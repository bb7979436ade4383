// Package encounter holds the per-combat accumulation state: combat
// lifecycle, per-player totals, entity HP snapshots, and shield-absorb
// pool estimation. The EventProcessor drives an Encounter's state
// transitions; this package only owns the data and the pure
// accumulation rules.
package encounter

import (
	"time"

	"github.com/baras-go/combatlog/internal/signalbus"
)

// State is where an Encounter sits in its combat lifecycle.
type State uint8

const (
	NotStarted State = iota
	InCombat
	PostCombat
)

// PlayerStats accumulates one player's totals for the lifetime of an
// encounter.
type PlayerStats struct {
	DamageDone      int64
	DamageTaken     int64
	HealingDone     int64
	EffectiveHeal   int64
	HealingTaken    int64
	ThreatGenerated float64
	Deaths          int
}

// HPSnapshot is the last known (current, max) HP pair for an entity.
type HPSnapshot struct {
	Current int32
	Max     int32
}

func (s HPSnapshot) Percent() float32 {
	if s.Max <= 0 {
		return 0
	}
	return float32(s.Current) / float32(s.Max)
}

// ShieldKey identifies one active shield instance by the effect that
// created it and the entity it's shielding.
type ShieldKey struct {
	EffectID int64
	TargetID int64
}

// ShieldInstance tracks the remaining absorb pool of a limited shield.
// Unlimited (percentage-based) shields are not tracked here; their
// absorbed amounts pass straight through.
type ShieldInstance struct {
	RemainingPool int64
}

// Encounter is one pull: everything accumulated between a
// CombatStarted and the matching CombatEnded.
type Encounter struct {
	ID    uint64
	State State

	EnterCombatTime  time.Time
	LastActivityTime time.Time
	ExitTime         time.Time

	AreaID         int64
	AreaName       string
	DifficultyID   int64
	DifficultyName string

	BossDefinitionID string
	BossName         string
	BossEntityID     int64
	BossNpcClassIDs  []int64

	Phase    string
	Counters map[string]uint32

	AllPlayersDead bool

	players      map[int64]*PlayerStats
	hp           map[int64]HPSnapshot
	shields      map[ShieldKey]*ShieldInstance
	deadEntities map[int64]bool
}

// New returns an empty Encounter in the NotStarted state.
func New(id uint64) *Encounter {
	return &Encounter{
		ID:       id,
		State:    NotStarted,
		Counters: make(map[string]uint32),
		players:      make(map[int64]*PlayerStats),
		hp:           make(map[int64]HPSnapshot),
		shields:      make(map[ShieldKey]*ShieldInstance),
		deadEntities: make(map[int64]bool),
	}
}

func (e *Encounter) player(entityID int64) *PlayerStats {
	ps, ok := e.players[entityID]
	if !ok {
		ps = &PlayerStats{}
		e.players[entityID] = ps
	}
	return ps
}

// PlayerStats returns a read-only copy of a player's accumulated totals.
func (e *Encounter) PlayerStats(entityID int64) (PlayerStats, bool) {
	ps, ok := e.players[entityID]
	if !ok {
		return PlayerStats{}, false
	}
	return *ps, true
}

// RecordDamage attributes amount to sourceID's damage-done and
// targetID's damage-taken, when each party is a player.
func (e *Encounter) RecordDamage(sourceID, targetID int64, amount int32, sourceIsPlayer, targetIsPlayer bool) {
	if sourceIsPlayer {
		e.player(sourceID).DamageDone += int64(amount)
	}
	if targetIsPlayer {
		e.player(targetID).DamageTaken += int64(amount)
	}
}

// RecordHeal attributes heal/effective-heal to sourceID and
// healing-taken to targetID.
func (e *Encounter) RecordHeal(sourceID, targetID int64, amount, effective int32, sourceIsPlayer, targetIsPlayer bool) {
	if sourceIsPlayer {
		ps := e.player(sourceID)
		ps.HealingDone += int64(amount)
		ps.EffectiveHeal += int64(effective)
	}
	if targetIsPlayer {
		e.player(targetID).HealingTaken += int64(effective)
	}
}

// RecordThreat adds amount to sourceID's generated threat.
func (e *Encounter) RecordThreat(sourceID int64, amount float32, sourceIsPlayer bool) {
	if sourceIsPlayer {
		e.player(sourceID).ThreatGenerated += float64(amount)
	}
}

// RecordDeath increments entityID's death count when it's a player.
// AllPlayersDead is recomputed separately via RecomputeAllPlayersDead,
// once the caller knows the full player roster.
func (e *Encounter) RecordDeath(entityID int64, isPlayer bool) {
	if isPlayer {
		e.player(entityID).Deaths++
	}
}

// SetEntityDead marks entityID as dead for AllPlayersDead purposes.
func (e *Encounter) SetEntityDead(entityID int64) {
	e.deadEntities[entityID] = true
}

// SetEntityAlive clears entityID's dead marker (on revive).
func (e *Encounter) SetEntityAlive(entityID int64) {
	delete(e.deadEntities, entityID)
}

// RecomputeAllPlayersDead sets AllPlayersDead by checking every id in
// the known player roster against the dead-entity set. An empty
// roster (no players seen yet) is never "all dead".
func (e *Encounter) RecomputeAllPlayersDead(knownPlayers []int64) {
	if len(knownPlayers) == 0 {
		e.AllPlayersDead = false
		return
	}
	for _, id := range knownPlayers {
		if !e.deadEntities[id] {
			e.AllPlayersDead = false
			return
		}
	}
	e.AllPlayersDead = true
}

// UpdateHP records a new (current, max) for entityID and reports the
// old and new HP percentages plus whether they actually changed.
func (e *Encounter) UpdateHP(entityID int64, current, max int32) (oldPct, newPct float32, changed bool) {
	old, had := e.hp[entityID]
	next := HPSnapshot{Current: current, Max: max}
	e.hp[entityID] = next
	if !had {
		return 0, next.Percent(), true
	}
	return old.Percent(), next.Percent(), old != next
}

// HP returns the last known snapshot for entityID.
func (e *Encounter) HP(entityID int64) (HPSnapshot, bool) {
	hp, ok := e.hp[entityID]
	return hp, ok
}

// ApplyShield starts tracking a limited shield's absorb pool, if
// effectID names a known shield. Unlimited shields return (0, false)
// and are not tracked — their absorbed amounts pass straight through.
func (e *Encounter) ApplyShield(effectID, targetID int64) (pool int64, limited bool) {
	info, ok := LookupShield(effectID)
	if !ok {
		return 0, false
	}
	estimated, isLimited := info.EstimatedAbsorb()
	if !isLimited {
		return 0, false
	}
	e.shields[ShieldKey{EffectID: effectID, TargetID: targetID}] = &ShieldInstance{RemainingPool: estimated}
	return estimated, true
}

// AbsorbFromShield deducts amount from a tracked shield's remaining
// pool, clamping to what's left. It is a no-op for untracked shields
// (unlimited, or never applied).
func (e *Encounter) AbsorbFromShield(effectID, targetID int64, amount int32) {
	inst, ok := e.shields[ShieldKey{EffectID: effectID, TargetID: targetID}]
	if !ok {
		return
	}
	inst.RemainingPool -= int64(amount)
	if inst.RemainingPool < 0 {
		inst.RemainingPool = 0
	}
}

// AbsorbFromAnyShield deducts amount from one of targetID's tracked
// shields with pool remaining. The combat log's absorbed-damage marker
// doesn't name which effect absorbed the hit, so when more than one
// limited shield is active on the same target the choice among them is
// arbitrary; this only affects the reported remaining pool of each,
// never the total absorbed amount already surfaced in DamageTaken.
func (e *Encounter) AbsorbFromAnyShield(targetID int64, amount int32) {
	for key, inst := range e.shields {
		if key.TargetID != targetID || inst.RemainingPool <= 0 {
			continue
		}
		inst.RemainingPool -= int64(amount)
		if inst.RemainingPool < 0 {
			inst.RemainingPool = 0
		}
		return
	}
}

// IsBossNpcClass reports whether classID is one of the active boss
// encounter's NPC class ids.
func (e *Encounter) IsBossNpcClass(classID int64) bool {
	for _, id := range e.BossNpcClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// Context snapshots the fields trigger scope predicates need, without
// handing out a live pointer into the encounter.
func (e *Encounter) Context() signalbus.EncounterContext {
	counters := make(map[string]uint32, len(e.Counters))
	for k, v := range e.Counters {
		counters[k] = v
	}
	return signalbus.EncounterContext{
		EncounterID:      e.ID,
		AreaID:           e.AreaID,
		BossDefinitionID: e.BossDefinitionID,
		BossName:         e.BossName,
		BossNpcClassIDs:  e.BossNpcClassIDs,
		DifficultyID:     e.DifficultyID,
		Phase:            e.Phase,
		Counters:         counters,
	}
}
