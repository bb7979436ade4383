// Package boss defines boss-encounter definitions: which NPCs count as
// a given boss, its phase and counter definitions, and the area/
// difficulty scope a timer or challenge definition can restrict itself
// to.
package boss

import "github.com/baras-go/combatlog/internal/trigger"

// CounterCondition is a predicate over a counter's current value, used
// to gate phase transitions and timer/challenge activation.
type CounterCondition struct {
	CounterID string
	Op        CounterOp
	Value     uint32
}

type CounterOp uint8

const (
	OpGreaterEqual CounterOp = iota
	OpLessEqual
	OpEqual
)

// Evaluate reports whether counters[c.CounterID] satisfies the
// condition. A missing counter is treated as zero.
func (c CounterCondition) Evaluate(counters map[string]uint32) bool {
	v := counters[c.CounterID]
	switch c.Op {
	case OpGreaterEqual:
		return v >= c.Value
	case OpLessEqual:
		return v <= c.Value
	case OpEqual:
		return v == c.Value
	default:
		return false
	}
}

// PhaseDefinition describes one phase of a boss fight.
type PhaseDefinition struct {
	ID    string
	Name  string
	Color string

	// EnterTriggers: the phase becomes current when any of these fire
	// (and PrecededBy/CounterCondition, if set, are satisfied).
	EnterTriggers []trigger.Trigger
	EndTrigger    trigger.Trigger

	PrecededBy       string
	CounterCondition *CounterCondition
	ResetsCounters   []string
}

// CounterDefinition describes one raid-mechanic counter (add spawns,
// button presses, whatever a timer or challenge needs to track).
type CounterDefinition struct {
	ID           string
	InitialValue uint32
	IncrementOn  []trigger.Trigger
	DecrementOn  []trigger.Trigger
	ResetOn      []trigger.Trigger
	SetValueOn   map[uint32]trigger.Trigger
}

// Definition is one boss encounter: which NPC class ids identify it,
// and the phases/counters that apply once it's detected.
type Definition struct {
	ID       string
	Name     string
	NpcClassIDs []int64

	AreaIDs      []int64
	Difficulties []int64

	InitialPhase string
	Phases       []PhaseDefinition
	Counters     []CounterDefinition
}

// MatchesNpcClass reports whether classID identifies this boss.
func (d Definition) MatchesNpcClass(classID int64) bool {
	for _, id := range d.NpcClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// Phase looks up a phase definition by id.
func (d Definition) Phase(id string) (PhaseDefinition, bool) {
	for _, p := range d.Phases {
		if p.ID == id {
			return p, true
		}
	}
	return PhaseDefinition{}, false
}

// Set is a loaded collection of boss definitions, indexed for
// detection lookups by NPC class id.
type Set struct {
	definitions []Definition
	byClassID   map[int64]*Definition
}

// NewSet builds a Set from loaded definitions. Later definitions
// sharing an NPC class id with an earlier one shadow it — duplicate
// detection at the loading layer (internal/config) is expected to have
// already warned about this.
func NewSet(definitions []Definition) *Set {
	s := &Set{definitions: definitions, byClassID: make(map[int64]*Definition)}
	for i := range s.definitions {
		d := &s.definitions[i]
		for _, classID := range d.NpcClassIDs {
			s.byClassID[classID] = d
		}
	}
	return s
}

// DetectByNpcClass returns the boss definition matching classID, if any.
func (s *Set) DetectByNpcClass(classID int64) (*Definition, bool) {
	d, ok := s.byClassID[classID]
	return d, ok
}

// ByID looks up a loaded definition by its id.
func (s *Set) ByID(id string) (*Definition, bool) {
	for i := range s.definitions {
		if s.definitions[i].ID == id {
			return &s.definitions[i], true
		}
	}
	return nil, false
}

// All returns every loaded definition.
func (s *Set) All() []Definition {
	return s.definitions
}
