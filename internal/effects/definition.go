// Package effects tracks active buffs/debuffs (and cooldown-style
// post-removal timers) by matching the GameSignal stream against a set
// of human-authored EffectDefinitions, for overlay rendering.
package effects

import (
	"log"

	"github.com/baras-go/combatlog/internal/trigger"
)

// TriggerMode is which signal creates the active instance.
type TriggerMode uint8

const (
	// TriggerOnApplied creates the ActiveEffect when the game effect is
	// applied, and removes it when the game effect is removed — models
	// a buff/debuff.
	TriggerOnApplied TriggerMode = iota
	// TriggerOnRemoved creates the ActiveEffect when the game effect is
	// removed — models a cooldown window that starts once a buff falls
	// off.
	TriggerOnRemoved
)

// Definition describes one effect to watch for and how to render it
// once active.
type Definition struct {
	ID      string
	Name    string
	Enabled bool

	Effects          trigger.EffectSelector
	RefreshAbilities []trigger.AbilitySelector

	Source trigger.EntityFilter
	Target trigger.EntityFilter

	Trigger        TriggerMode
	DurationSecs   *float32 // nil = no fixed duration (persists until removed/death)
	CanBeRefreshed bool

	DisplayText string
	Color       [4]uint8
	Category    string

	ShowOnRaidFrames     bool
	ShowOnEffectsOverlay bool

	PersistPastDeath   bool
	TrackOutsideCombat bool
}

func (d Definition) effectiveDisplayText() string {
	if d.DisplayText != "" {
		return d.DisplayText
	}
	return d.Name
}

func (d Definition) matchesEffect(effectID int64, effectName string) bool {
	return effectSelectorMatches(d.Effects, effectID, effectName)
}

func (d Definition) canRefreshWith(actionID int64, actionName string) bool {
	if len(d.RefreshAbilities) == 0 {
		return d.CanBeRefreshed
	}
	for _, sel := range d.RefreshAbilities {
		if abilitySelectorMatches(sel, actionID, actionName) {
			return true
		}
	}
	return false
}

func effectSelectorMatches(s trigger.EffectSelector, id int64, name string) bool {
	if s.ID != 0 {
		return s.ID == id
	}
	return s.Name != "" && s.Name == name
}

func abilitySelectorMatches(s trigger.AbilitySelector, id int64, name string) bool {
	if s.ID != 0 {
		return s.ID == id
	}
	return s.Name != "" && s.Name == name
}

// DefinitionSet is the merged collection of effect definitions a
// tracker matches against, keyed by id.
type DefinitionSet struct {
	effects map[string]Definition
}

func NewDefinitionSet() *DefinitionSet {
	return &DefinitionSet{effects: make(map[string]Definition)}
}

// AddDefinitions merges definitions in. When overwrite is false,
// duplicate ids are skipped (first kept); when true, later definitions
// replace earlier ones (used to let user config override bundled
// defaults). Returns the ids encountered more than once.
func (s *DefinitionSet) AddDefinitions(definitions []Definition, overwrite bool) []string {
	var duplicates []string
	for _, def := range definitions {
		if def.Effects.ID == 0 && def.Effects.Name == "" && len(def.RefreshAbilities) == 0 {
			log.Printf("effects: definition %q has no effect selector or refresh abilities, it will never match anything", def.ID)
		}
		if _, exists := s.effects[def.ID]; exists {
			duplicates = append(duplicates, def.ID)
			if !overwrite {
				continue
			}
		}
		s.effects[def.ID] = def
	}
	return duplicates
}

func (s *DefinitionSet) Get(id string) (Definition, bool) {
	d, ok := s.effects[id]
	return d, ok
}

// FindMatching returns every enabled definition whose effect selector
// matches the given game effect id/name.
func (s *DefinitionSet) FindMatching(effectID int64, effectName string) []Definition {
	var out []Definition
	for _, def := range s.effects {
		if def.Enabled && def.matchesEffect(effectID, effectName) {
			out = append(out, def)
		}
	}
	return out
}

// Enabled returns every enabled definition.
func (s *DefinitionSet) Enabled() []Definition {
	var out []Definition
	for _, def := range s.effects {
		if def.Enabled {
			out = append(out, def)
		}
	}
	return out
}
