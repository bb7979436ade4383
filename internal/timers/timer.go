// Package timers implements boss-mechanic and ability countdown timers:
// definitions keyed by id, activated by the same Trigger DSL used
// elsewhere, with refresh/repeat/chain semantics and a separate
// ephemeral "alert" flavor that never becomes a countdown.
package timers

import (
	"time"

	"github.com/baras-go/combatlog/internal/boss"
	"github.com/baras-go/combatlog/internal/trigger"
)

// TimerKey identifies one active timer instance: a definition, plus an
// optional per-target instance when the same mechanic fires on
// multiple entities at once (e.g. a DoT tracked per player).
type TimerKey struct {
	DefinitionID string
	TargetID     int64
	HasTarget    bool
}

func NewTimerKey(definitionID string, targetID *int64) TimerKey {
	if targetID == nil {
		return TimerKey{DefinitionID: definitionID}
	}
	return TimerKey{DefinitionID: definitionID, TargetID: *targetID, HasTarget: true}
}

// Definition describes one timer: what starts it, how long it runs,
// and where it applies.
type Definition struct {
	ID      string
	Name    string
	Enabled bool

	Trigger       trigger.Trigger
	CancelTrigger *trigger.Trigger

	DurationSecs float32

	IsAlert   bool
	AlertText string

	CanBeRefreshed bool
	Repeats        int32 // -1 means unlimited

	TriggersTimer string // chains to another definition id on exhaustion, empty = no chain

	Color            [4]uint8
	ShowOnRaidFrames bool

	// Scope predicates. Empty slices/zero values mean "no restriction".
	AreaIDs           []int64
	BossDefinitionIDs []string
	Difficulties      []int64
	Phases            []string
	CounterCondition  *boss.CounterCondition

	HasSourceFilter bool
	SourceFilter    trigger.EntityFilter
	HasTargetFilter bool
	TargetFilter    trigger.EntityFilter
}

func (d Definition) matchesTimerExpires(expiredID string) bool {
	return d.Trigger.Kind == trigger.KindTimerExpires && d.Trigger.TimerID == expiredID
}

// ActiveTimer is a running countdown instance of a Definition.
type ActiveTimer struct {
	DefinitionID string
	Name         string
	TargetID     *int64

	StartTime time.Time
	Duration  time.Duration

	MaxRepeats  int32
	RepeatCount int32

	Color            [4]uint8
	TriggersTimer    string
	ShowOnRaidFrames bool
}

func newActiveTimer(def Definition, targetID *int64, timestamp time.Time) *ActiveTimer {
	return &ActiveTimer{
		DefinitionID:     def.ID,
		Name:             def.Name,
		TargetID:         targetID,
		StartTime:        timestamp,
		Duration:         time.Duration(def.DurationSecs * float32(time.Second)),
		MaxRepeats:       def.Repeats,
		Color:            def.Color,
		TriggersTimer:    def.TriggersTimer,
		ShowOnRaidFrames: def.ShowOnRaidFrames,
	}
}

func (t *ActiveTimer) ExpiresAt() time.Time {
	return t.StartTime.Add(t.Duration)
}

func (t *ActiveTimer) HasExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt())
}

func (t *ActiveTimer) Refresh(now time.Time) {
	t.StartTime = now
}

func (t *ActiveTimer) CanRepeat() bool {
	return t.MaxRepeats < 0 || t.RepeatCount < t.MaxRepeats
}

func (t *ActiveTimer) Repeat(now time.Time) {
	t.RepeatCount++
	t.StartTime = now
}

// FiredAlert is an ephemeral notification, as opposed to a countdown
// timer: it has no duration and is forgotten once drained.
type FiredAlert struct {
	ID        string
	Name      string
	Text      string
	Color     [4]uint8
	Timestamp time.Time
}
