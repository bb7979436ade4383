package effects

import "time"

// fadeWindow is how long a removed effect lingers in the active set so
// overlays can animate it fading out before eviction.
const fadeWindow = 500 * time.Millisecond

// InstanceKey identifies one active effect by the definition that
// created it and the entity it's applied to.
type InstanceKey struct {
	DefinitionID   string
	TargetEntityID int64
}

// ActiveEffect is a live buff/debuff/cooldown instance.
type ActiveEffect struct {
	DefinitionID string
	EffectID     int64
	Name         string
	DisplayText  string

	SourceEntityID int64
	TargetEntityID int64
	TargetName     string
	IsFromLocal    bool

	StartTime time.Time
	Expiry    *time.Time // nil = no fixed duration
	RemovedAt *time.Time

	Stacks uint8

	Color                [4]uint8
	Category             string
	ShowOnRaidFrames     bool
	ShowOnEffectsOverlay bool
}

func newActiveEffect(def Definition, effectID, sourceID, targetID int64, targetName string, isFromLocal bool, timestamp time.Time) ActiveEffect {
	effect := ActiveEffect{
		DefinitionID:         def.ID,
		EffectID:             effectID,
		Name:                 def.Name,
		DisplayText:          def.effectiveDisplayText(),
		SourceEntityID:       sourceID,
		TargetEntityID:       targetID,
		TargetName:           targetName,
		IsFromLocal:          isFromLocal,
		StartTime:            timestamp,
		Color:                def.Color,
		Category:             def.Category,
		ShowOnRaidFrames:     def.ShowOnRaidFrames,
		ShowOnEffectsOverlay: def.ShowOnEffectsOverlay,
	}
	if def.DurationSecs != nil {
		expiry := timestamp.Add(time.Duration(*def.DurationSecs * float32(time.Second)))
		effect.Expiry = &expiry
	}
	return effect
}

// IsActive reports whether the effect is still live (not yet removed,
// or removed but still within its fade window) at t.
func (e *ActiveEffect) IsActive(t time.Time) bool {
	if e.RemovedAt != nil {
		return t.Before(e.RemovedAt.Add(fadeWindow))
	}
	return true
}

// HasDurationExpired reports whether the effect's fixed duration (if
// any) has elapsed as of t.
func (e *ActiveEffect) HasDurationExpired(t time.Time) bool {
	return e.Expiry != nil && !t.Before(*e.Expiry)
}

// ShouldRemove reports whether the effect has finished its fade-out as
// of t and can be evicted from the active set.
func (e *ActiveEffect) ShouldRemove(t time.Time) bool {
	return e.RemovedAt != nil && !t.Before(e.RemovedAt.Add(fadeWindow))
}

func (e *ActiveEffect) markRemoved(t time.Time) {
	if e.RemovedAt == nil {
		removedAt := t
		e.RemovedAt = &removedAt
	}
}

func (e *ActiveEffect) refresh(timestamp time.Time, durationSecs *float32) {
	e.StartTime = timestamp
	e.RemovedAt = nil
	if durationSecs != nil {
		expiry := timestamp.Add(time.Duration(*durationSecs * float32(time.Second)))
		e.Expiry = &expiry
	}
}

func (e *ActiveEffect) setStacks(stacks uint8) {
	e.Stacks = stacks
}

// NewTargetInfo is a target that received a local-player-originated
// effect, queued for raid-frame registration.
type NewTargetInfo struct {
	EntityID int64
	Name     string
}

type trackedTarget struct {
	entityID   int64
	name       string
	entityType string
}
