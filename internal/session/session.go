// Package session holds the state that spans encounters within one
// combat log reading session: the log id of the local
// player, which NPC instances have been seen, the current area, the
// target map, and a small ring of recent encounters.
package session

import (
	"github.com/google/uuid"

	"github.com/baras-go/combatlog/internal/encounter"
)

// ringSize is how many encounters the cache keeps. Once exceeded, the
// oldest is evicted; callers holding a reference to a retired
// encounter may still read it but it is no longer reachable from the
// cache.
const ringSize = 3

// Cache is the session-scoped state the EventProcessor threads through
// every event. It is owned exclusively by the processor's goroutine.
type Cache struct {
	ID uuid.UUID

	LocalPlayerID int64

	PlayerDisciplines map[int64]int64
	seenNpcInstances  map[int64]bool
	targets           map[int64]int64

	CurrentAreaID         int64
	CurrentAreaName       string
	CurrentDifficultyID   int64
	CurrentDifficultyName string

	ring    []*encounter.Encounter
	nextID  uint64
}

// New returns an empty Cache, with a fresh session id and a single
// NotStarted encounter as the current one.
func New() *Cache {
	c := &Cache{
		ID:                uuid.New(),
		PlayerDisciplines: make(map[int64]int64),
		seenNpcInstances:  make(map[int64]bool),
		targets:           make(map[int64]int64),
	}
	c.pushLocked()
	return c
}

// Current returns the active (most recently pushed) encounter.
func (c *Cache) Current() *encounter.Encounter {
	return c.ring[len(c.ring)-1]
}

// History returns the retained encounters, oldest first. Callers must
// not mutate them; the cache considers them immutable once retired.
func (c *Cache) History() []*encounter.Encounter {
	out := make([]*encounter.Encounter, len(c.ring))
	copy(out, c.ring)
	return out
}

// Push starts a new encounter, evicting the oldest if the ring is full.
func (c *Cache) Push() *encounter.Encounter {
	return c.pushLocked()
}

func (c *Cache) pushLocked() *encounter.Encounter {
	c.nextID++
	e := encounter.New(c.nextID)
	c.ring = append(c.ring, e)
	if len(c.ring) > ringSize {
		c.ring = c.ring[len(c.ring)-ringSize:]
	}
	return e
}

// RegisterNpcInstance records logID as seen, reporting whether this is
// the first time it's been observed this session.
func (c *Cache) RegisterNpcInstance(logID int64) (firstSeen bool) {
	if c.seenNpcInstances[logID] {
		return false
	}
	c.seenNpcInstances[logID] = true
	return true
}

// SetDiscipline upserts entityID's discipline id.
func (c *Cache) SetDiscipline(entityID, disciplineID int64) {
	c.PlayerDisciplines[entityID] = disciplineID
}

// KnownPlayerIDs returns every entity id that has ever reported a
// discipline change this session — the player roster used for
// AllPlayersDead computation.
func (c *Cache) KnownPlayerIDs() []int64 {
	out := make([]int64, 0, len(c.PlayerDisciplines))
	for id := range c.PlayerDisciplines {
		out = append(out, id)
	}
	return out
}

// SetTarget records that sourceID is now targeting targetID.
func (c *Cache) SetTarget(sourceID, targetID int64) {
	c.targets[sourceID] = targetID
}

// ClearTarget removes sourceID's current target.
func (c *Cache) ClearTarget(sourceID int64) {
	delete(c.targets, sourceID)
}

// Target returns sourceID's current target, if any.
func (c *Cache) Target(sourceID int64) (int64, bool) {
	t, ok := c.targets[sourceID]
	return t, ok
}

// SetArea updates the current area, only overwriting the difficulty
// when difficultyID is nonzero — the game emits two AreaEntered
// events per transition and the first always carries a zero difficulty.
func (c *Cache) SetArea(areaID int64, areaName string, difficultyID int64, difficultyName string) {
	c.CurrentAreaID = areaID
	c.CurrentAreaName = areaName
	if difficultyID != 0 {
		c.CurrentDifficultyID = difficultyID
		c.CurrentDifficultyName = difficultyName
	}
}
