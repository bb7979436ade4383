// Package model defines the data types produced by the log parser and
// consumed by everything downstream: entities, actions, effects, and
// the combat events that tie them together.
package model

import (
	"time"

	"github.com/baras-go/combatlog/internal/intern"
)

// EntityType distinguishes the five shapes an Entity can take on the wire.
type EntityType uint8

const (
	EntityEmpty EntityType = iota
	EntityPlayer
	EntityCompanion
	EntityNpc
	EntitySelfReference
)

func (t EntityType) String() string {
	switch t {
	case EntityPlayer:
		return "Player"
	case EntityCompanion:
		return "Companion"
	case EntityNpc:
		return "Npc"
	case EntitySelfReference:
		return "SelfReference"
	default:
		return "Empty"
	}
}

// Entity identifies a participant in a combat line: a player, a
// companion, an NPC, the literal self-reference marker `[=]`, or the
// empty entity `[]`.
type Entity struct {
	Type EntityType

	// LogID is the instance identity of this spawn within the session.
	LogID int64
	// ClassID is the type identity: a player's class template id, or
	// an NPC's template id. Zero for players with no class context.
	ClassID int64

	Name intern.IStr

	CurrentHP int32
	MaxHP     int32
}

// Action is the ability or game action named by the fourth bracketed
// field of a log line.
type Action struct {
	ID   int64
	Name intern.IStr
}

// Effect is the parsed fifth bracketed field: a type/effect pair, plus
// the optional difficulty or discipline extensions the game appends
// for AreaEntered and DisciplineChanged lines.
type Effect struct {
	TypeID   int64
	TypeName intern.IStr

	EffectID   int64
	EffectName intern.IStr

	DifficultyID   int64
	DifficultyName intern.IStr

	DisciplineID   int64
	DisciplineName intern.IStr
}

// Details is the variant-shaped trailing payload of a line. Which
// fields are meaningful depends on Effect.EffectID; unused fields are
// left at their zero value rather than wrapped in a sum type, matching
// the parser's "always return a Details, just mostly empty" behavior.
type Details struct {
	DmgAmount    int32
	DmgEffective int32
	DmgTypeID    int64
	DmgTypeName  intern.IStr
	DmgAbsorbed  int32
	IsCrit       bool
	IsReflect    bool
	DefenseTypeID int64

	HealAmount    int32
	HealEffective int32
	IsHealCrit    bool

	Threat float32

	Charges   int32
	AbilityID int64
}

// CombatEvent is one fully parsed line of the combat log.
type CombatEvent struct {
	LineNumber int64
	Timestamp  time.Time

	Source Entity
	Target Entity

	Action Action
	Effect Effect

	Details Details
}
