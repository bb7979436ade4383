package effects

import (
	"time"

	"github.com/baras-go/combatlog/internal/signalbus"
	"github.com/baras-go/combatlog/internal/trigger"
)

// Tracker matches the GameSignal stream against a DefinitionSet and
// maintains the resulting ActiveEffect instances for overlay display.
// It implements signalbus.SignalHandler.
type Tracker struct {
	definitions *DefinitionSet

	active map[InstanceKey]*ActiveEffect

	localPlayerID   int64
	currentGameTime time.Time

	// liveMode is false during the initial historical batch load:
	// effect state must not be produced for stale data, only time
	// bookkeeping is updated.
	liveMode bool

	newTargets []NewTargetInfo

	currentTargets map[int64]trackedTarget
}

func NewTracker(definitions *DefinitionSet) *Tracker {
	return &Tracker{
		definitions:    definitions,
		active:         make(map[InstanceKey]*ActiveEffect),
		currentTargets: make(map[int64]trackedTarget),
	}
}

// SetLiveMode enables effect tracking. Call once the initial batch
// load of a log file is done.
func (t *Tracker) SetLiveMode(enabled bool) {
	t.liveMode = enabled
}

func (t *Tracker) SetLocalPlayer(entityID int64) {
	t.localPlayerID = entityID
}

// SetDefinitions swaps in a new definition set (e.g. after config
// reload), carrying display property updates over to already-active
// instances of definitions that still exist.
func (t *Tracker) SetDefinitions(definitions *DefinitionSet) {
	for _, effect := range t.active {
		if def, ok := definitions.Get(effect.DefinitionID); ok {
			effect.ShowOnRaidFrames = def.ShowOnRaidFrames
			effect.ShowOnEffectsOverlay = def.ShowOnEffectsOverlay
			effect.Color = def.Color
			effect.Category = def.Category
		}
	}
	t.definitions = definitions
}

func (t *Tracker) HasActiveEffects() bool {
	return len(t.active) > 0
}

// HasTickingEffects reports whether any effect is still live (as
// opposed to merely fading out), a cheap early-out for render loops.
func (t *Tracker) HasTickingEffects() bool {
	for _, e := range t.active {
		if e.RemovedAt == nil {
			return true
		}
	}
	return false
}

func (t *Tracker) HasPendingWork() bool {
	return t.HasTickingEffects() || len(t.newTargets) > 0
}

func (t *Tracker) CurrentGameTime() time.Time {
	return t.currentGameTime
}

func (t *Tracker) ActiveEffects() []ActiveEffect {
	out := make([]ActiveEffect, 0, len(t.active))
	for _, e := range t.active {
		out = append(out, *e)
	}
	return out
}

func (t *Tracker) EffectsForTarget(targetID int64) []ActiveEffect {
	var out []ActiveEffect
	for _, e := range t.active {
		if e.TargetEntityID == targetID {
			out = append(out, *e)
		}
	}
	return out
}

// TakeNewTargets drains the queue of targets that received a
// local-player-originated effect, for raid-frame registration. The
// registry is responsible for rejecting duplicates.
func (t *Tracker) TakeNewTargets() []NewTargetInfo {
	out := t.newTargets
	t.newTargets = nil
	return out
}

// Tick removes duration-expired effects (moving them into their fade
// window) and evicts any that have finished fading, as of the tracker's
// last known game time.
func (t *Tracker) Tick() {
	if t.currentGameTime.IsZero() {
		return
	}
	now := t.currentGameTime
	for _, e := range t.active {
		if e.IsActive(now) && e.HasDurationExpired(now) {
			e.markRemoved(now)
		}
	}
	for key, e := range t.active {
		if e.ShouldRemove(now) {
			delete(t.active, key)
		}
	}
}

func entityFilterCtx(id int64, name string, isPlayer, isLocalPlayer, isBoss bool) trigger.Ctx {
	return trigger.Ctx{ID: id, Name: name, IsPlayer: isPlayer, IsLocalPlayer: isLocalPlayer, IsBoss: isBoss}
}

func (t *Tracker) matchesFilters(def Definition, source, target trigger.Ctx) bool {
	return def.Source.Matches(source) && def.Target.Matches(target)
}

func isPlayerLikeSignalType(entityType string) bool {
	return entityType == "Player" || entityType == "Companion"
}

func isBossNpcClass(classIDs []int64, classID int64) bool {
	if classID == 0 {
		return false
	}
	for _, id := range classIDs {
		if id == classID {
			return true
		}
	}
	return false
}

func (t *Tracker) handleEffectApplied(sig signalbus.Signal, ctx signalbus.EncounterContext) {
	t.currentGameTime = sig.Timestamp

	// Garbage collect instances for targets no longer active, before
	// processing the new signal.
	for key, e := range t.active {
		if !e.IsActive(sig.Timestamp) {
			delete(t.active, key)
		}
	}

	if !t.liveMode {
		return
	}

	isFromLocal := sig.SourceID == t.localPlayerID
	source := entityFilterCtx(sig.SourceID, sig.SourceName, true, isFromLocal, isBossNpcClass(ctx.BossNpcClassIDs, sig.SourceNpcID))
	target := entityFilterCtx(sig.TargetID, sig.TargetName, true, sig.TargetID == t.localPlayerID, isBossNpcClass(ctx.BossNpcClassIDs, sig.TargetNpcID))

	shouldRegister := false
	for _, def := range t.definitions.FindMatching(sig.EffectID, sig.EffectName) {
		if def.Trigger != TriggerOnApplied {
			continue
		}
		if !t.matchesFilters(def, source, target) {
			continue
		}

		key := InstanceKey{DefinitionID: def.ID, TargetEntityID: sig.TargetID}
		if existing, ok := t.active[key]; ok {
			shouldRefresh := def.canRefreshWith(sig.ActionID, sig.ActionName)
			if shouldRefresh {
				existing.refresh(sig.Timestamp, def.DurationSecs)
				if sig.Charges > 0 {
					existing.setStacks(uint8(sig.Charges))
				}
				shouldRegister = true
			}
			continue
		}

		effect := newActiveEffect(def, sig.EffectID, sig.SourceID, sig.TargetID, sig.TargetName, isFromLocal, sig.Timestamp)
		if sig.Charges > 0 {
			effect.setStacks(uint8(sig.Charges))
		}
		t.active[key] = &effect
		shouldRegister = true
	}

	if shouldRegister && isFromLocal && isPlayerLikeSignalType(sig.EntityType) {
		t.newTargets = append(t.newTargets, NewTargetInfo{EntityID: sig.TargetID, Name: sig.TargetName})
	}
}

func (t *Tracker) refreshEffectsByAction(actionID int64, actionName string, targetID int64, targetName, targetEntityType string, timestamp time.Time) {
	didRefresh := false
	for _, def := range t.definitions.Enabled() {
		if !def.canRefreshWith(actionID, actionName) {
			continue
		}
		key := InstanceKey{DefinitionID: def.ID, TargetEntityID: targetID}
		if existing, ok := t.active[key]; ok {
			existing.refresh(timestamp, def.DurationSecs)
			didRefresh = true
		}
	}
	if didRefresh && isPlayerLikeSignalType(targetEntityType) {
		t.newTargets = append(t.newTargets, NewTargetInfo{EntityID: targetID, Name: targetName})
	}
}

func (t *Tracker) handleEffectRemoved(sig signalbus.Signal) {
	t.currentGameTime = sig.Timestamp
	if !t.liveMode {
		return
	}

	isFromLocal := sig.SourceID == t.localPlayerID
	for _, def := range t.definitions.FindMatching(sig.EffectID, sig.EffectName) {
		key := InstanceKey{DefinitionID: def.ID, TargetEntityID: sig.TargetID}
		switch def.Trigger {
		case TriggerOnApplied:
			if existing, ok := t.active[key]; ok {
				existing.markRemoved(sig.Timestamp)
			}
		case TriggerOnRemoved:
			effect := newActiveEffect(def, sig.EffectID, sig.SourceID, sig.TargetID, sig.TargetName, isFromLocal, sig.Timestamp)
			t.active[key] = &effect
		}
	}
}

func (t *Tracker) handleChargesChanged(sig signalbus.Signal) {
	t.currentGameTime = sig.Timestamp
	for _, def := range t.definitions.FindMatching(sig.EffectID, sig.EffectName) {
		key := InstanceKey{DefinitionID: def.ID, TargetEntityID: sig.TargetID}
		existing, ok := t.active[key]
		if !ok {
			continue
		}
		existing.setStacks(uint8(sig.Charges))
		if def.canRefreshWith(sig.ActionID, sig.ActionName) {
			existing.refresh(sig.Timestamp, def.DurationSecs)
		}
	}
}

func (t *Tracker) handleEntityDeath(entityID int64, timestamp time.Time) {
	persist := make(map[string]bool)
	for _, def := range t.definitions.Enabled() {
		if def.PersistPastDeath {
			persist[def.ID] = true
		}
	}
	for key, e := range t.active {
		if e.TargetEntityID == entityID && !persist[key.DefinitionID] {
			e.markRemoved(timestamp)
		}
	}
}

func (t *Tracker) handleCombatEnded(timestamp time.Time) {
	keepOutsideCombat := make(map[string]bool)
	for _, def := range t.definitions.Enabled() {
		if def.TrackOutsideCombat {
			keepOutsideCombat[def.ID] = true
		}
	}
	for key, e := range t.active {
		if !keepOutsideCombat[key.DefinitionID] {
			e.markRemoved(timestamp)
		}
	}
}

func (t *Tracker) handleAreaChange(timestamp time.Time) {
	for _, e := range t.active {
		e.markRemoved(timestamp)
	}
	t.currentTargets = make(map[int64]trackedTarget)
}

// HandleSignal implements signalbus.SignalHandler.
func (t *Tracker) HandleSignal(sig signalbus.Signal, ctx signalbus.EncounterContext) {
	switch sig.Kind {
	case signalbus.KindEffectApplied:
		t.handleEffectApplied(sig, ctx)
	case signalbus.KindEffectRemoved:
		t.handleEffectRemoved(sig)
	case signalbus.KindEffectChargesChanged:
		t.handleChargesChanged(sig)
	case signalbus.KindEntityDeath:
		t.handleEntityDeath(sig.EntityID, sig.Timestamp)
	case signalbus.KindCombatEnded:
		t.handleCombatEnded(sig.Timestamp)
	case signalbus.KindAreaEntered:
		t.handleAreaChange(sig.Timestamp)
	case signalbus.KindPlayerInitialized:
		t.SetLocalPlayer(sig.EntityID)
	case signalbus.KindAbilityActivated:
		if sig.SourceID == t.localPlayerID {
			resolvedID, resolvedName, resolvedType := sig.TargetID, sig.TargetName, sig.EntityType
			if sig.TargetID == sig.SourceID || sig.TargetID == 0 {
				if tracked, ok := t.currentTargets[sig.SourceID]; ok {
					resolvedID, resolvedName, resolvedType = tracked.entityID, tracked.name, tracked.entityType
				} else {
					resolvedID, resolvedName = sig.SourceID, sig.SourceName
				}
			}
			t.refreshEffectsByAction(sig.AbilityID, sig.AbilityName, resolvedID, resolvedName, resolvedType, sig.Timestamp)
		}
	case signalbus.KindTargetChanged:
		t.currentTargets[sig.SourceID] = trackedTarget{entityID: sig.TargetID, name: sig.TargetName, entityType: sig.EntityType}
	case signalbus.KindTargetCleared:
		delete(t.currentTargets, sig.SourceID)
	}
}

// OnEncounterStart implements signalbus.SignalHandler.
func (t *Tracker) OnEncounterStart(encounterID uint64) {}

// OnEncounterEnd implements signalbus.SignalHandler.
func (t *Tracker) OnEncounterEnd(encounterID uint64) {
	t.handleCombatEnded(t.currentGameTime)
}
