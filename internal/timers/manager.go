package timers

import (
	"log"
	"time"

	"github.com/baras-go/combatlog/internal/signalbus"
	"github.com/baras-go/combatlog/internal/trigger"
)

// timerRecencyThreshold bounds how old a signal can be and still start
// or cancel a timer in live mode. Timers exist to warn a player about
// something about to happen; a signal replayed five minutes late isn't
// that.
const timerRecencyThreshold = 5 * time.Minute

// Manager owns every timer definition and the countdown/alert state
// derived from the signal stream. It implements signalbus.SignalHandler.
type Manager struct {
	definitions  map[string]Definition
	activeTimers map[TimerKey]*ActiveTimer
	firedAlerts  []FiredAlert

	ctx       signalbus.EncounterContext
	inCombat  bool
	liveMode  bool
	wallClock func() time.Time

	lastTimestamp    time.Time
	combatStartTime  time.Time
	lastCombatSecs   float32

	localPlayerID int64
	bossEntityIDs map[int64]bool
}

// NewManager returns a Manager with live-mode recency filtering on, as
// is correct for a process tailing a log in real time. Batch/historical
// replay should call SetLiveMode(false).
func NewManager() *Manager {
	return &Manager{
		definitions:   make(map[string]Definition),
		activeTimers:  make(map[TimerKey]*ActiveTimer),
		liveMode:      true,
		wallClock:     time.Now,
		bossEntityIDs: make(map[int64]bool),
	}
}

// LoadDefinitions replaces the definition set, keeping only enabled
// definitions and warning (keeping the first) on duplicate ids.
func (m *Manager) LoadDefinitions(defs []Definition) {
	m.definitions = make(map[string]Definition, len(defs))
	duplicates := 0
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		if existing, ok := m.definitions[def.ID]; ok {
			log.Printf("timers: duplicate timer id %q (first: %q, duplicate: %q), keeping first", def.ID, existing.Name, def.Name)
			duplicates++
			continue
		}
		m.definitions[def.ID] = def
	}
	if duplicates > 0 {
		log.Printf("timers: loaded %d definitions (%d duplicates skipped)", len(m.definitions), duplicates)
	}
	m.validateTimerChains()
}

func (m *Manager) validateTimerChains() {
	for id, def := range m.definitions {
		if def.TriggersTimer == "" {
			continue
		}
		if _, ok := m.definitions[def.TriggersTimer]; !ok {
			log.Printf("timers: %q chains to %q which does not exist", id, def.TriggersTimer)
		}
	}
}

// SetLiveMode toggles the recency threshold. Call SetLiveMode(false)
// before a historical/batch replay so old timestamps aren't rejected.
func (m *Manager) SetLiveMode(enabled bool) {
	m.liveMode = enabled
}

// SetLocalPlayerID records the local player for LocalPlayer-scoped
// entity filters.
func (m *Manager) SetLocalPlayerID(id int64) {
	m.localPlayerID = id
}

// ActiveTimers returns every currently unexpired countdown timer, for
// overlay rendering.
func (m *Manager) ActiveTimers(now time.Time) []ActiveTimer {
	out := make([]ActiveTimer, 0, len(m.activeTimers))
	for _, t := range m.activeTimers {
		if !t.HasExpired(now) {
			out = append(out, *t)
		}
	}
	return out
}

// TakeFiredAlerts drains and returns the ephemeral alerts fired since
// the last call.
func (m *Manager) TakeFiredAlerts() []FiredAlert {
	alerts := m.firedAlerts
	m.firedAlerts = nil
	return alerts
}

func (m *Manager) isDefinitionActive(def Definition) bool {
	if len(def.AreaIDs) > 0 && !containsInt64(def.AreaIDs, m.ctx.AreaID) {
		return false
	}
	if len(def.BossDefinitionIDs) > 0 && !containsString(def.BossDefinitionIDs, m.ctx.BossDefinitionID) {
		return false
	}
	if len(def.Difficulties) > 0 && !containsInt64(def.Difficulties, m.ctx.DifficultyID) {
		return false
	}
	if len(def.Phases) > 0 && !containsString(def.Phases, m.ctx.Phase) {
		return false
	}
	if def.CounterCondition != nil && !def.CounterCondition.Evaluate(m.ctx.Counters) {
		return false
	}
	return true
}

func containsInt64(haystack []int64, needle int64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func (m *Manager) sourceTargetFiltersPass(def Definition, source, target trigger.Ctx) bool {
	if def.HasSourceFilter && !def.SourceFilter.Matches(source) {
		return false
	}
	if def.HasTargetFilter && !def.TargetFilter.Matches(target) {
		return false
	}
	return true
}

// startTimer starts def as either an alert or a countdown, refreshing
// an existing instance when one exists and the definition allows it.
func (m *Manager) startTimer(def Definition, timestamp time.Time, targetID *int64) {
	if def.IsAlert {
		text := def.AlertText
		if text == "" {
			text = def.Name
		}
		m.firedAlerts = append(m.firedAlerts, FiredAlert{
			ID:        def.ID,
			Name:      def.Name,
			Text:      text,
			Color:     def.Color,
			Timestamp: timestamp,
		})
		return
	}

	key := NewTimerKey(def.ID, targetID)
	if existing, ok := m.activeTimers[key]; ok {
		if def.CanBeRefreshed {
			existing.Refresh(timestamp)
			m.cancelTimersOnStart(def.ID)
		}
		return
	}

	m.activeTimers[key] = newActiveTimer(def, targetID, timestamp)
	m.cancelTimersOnStart(def.ID)
}

// cancelTimersOnStart cancels any active timer whose cancel trigger is
// TimerStarted(startedID).
func (m *Manager) cancelTimersOnStart(startedID string) {
	for key, t := range m.activeTimers {
		def, ok := m.definitions[t.DefinitionID]
		if !ok || def.CancelTrigger == nil {
			continue
		}
		ct := *def.CancelTrigger
		if ct.Kind == trigger.KindTimerStarted && ct.TimerID == startedID {
			delete(m.activeTimers, key)
		}
	}
}

// cancelTimersMatching cancels every active timer whose definition's
// cancel trigger matches sig.
func (m *Manager) cancelTimersMatching(sig signalbus.Signal) {
	for key, t := range m.activeTimers {
		def, ok := m.definitions[t.DefinitionID]
		if !ok || def.CancelTrigger == nil {
			continue
		}
		if trigger.MatchesSignal(*def.CancelTrigger, sig) {
			delete(m.activeTimers, key)
		}
	}
}

// clearCombatTimers drops every active timer. Called on CombatEnded
// and on encounter end; timers don't carry across fights.
func (m *Manager) clearCombatTimers() {
	m.activeTimers = make(map[TimerKey]*ActiveTimer)
	m.inCombat = false
	m.lastCombatSecs = 0
}

// processExpirations advances every active timer against now: expired
// timers either repeat in place or, once exhausted, are removed and
// may chain into a next definition. It then starts any definition
// whose trigger is TimerExpires(x) for an x that expired this tick.
func (m *Manager) processExpirations(now time.Time) {
	var expiredIDs []string
	var chains []struct {
		id       string
		targetID *int64
	}

	for key, t := range m.activeTimers {
		if !t.HasExpired(now) {
			continue
		}
		expiredIDs = append(expiredIDs, t.DefinitionID)
		if t.CanRepeat() {
			t.Repeat(now)
			continue
		}
		delete(m.activeTimers, key)
		if t.TriggersTimer != "" {
			chains = append(chains, struct {
				id       string
				targetID *int64
			}{t.TriggersTimer, t.TargetID})
		}
	}

	for _, c := range chains {
		if next, ok := m.definitions[c.id]; ok && m.isDefinitionActive(next) {
			m.startTimer(next, now, c.targetID)
		}
	}

	for _, expiredID := range expiredIDs {
		for _, def := range m.definitions {
			if def.matchesTimerExpires(expiredID) && m.isDefinitionActive(def) {
				m.startTimer(def, now, nil)
			}
		}
	}
}

// HandleSignal implements signalbus.SignalHandler.
func (m *Manager) HandleSignal(sig signalbus.Signal, ctx signalbus.EncounterContext) {
	if len(m.definitions) == 0 {
		return
	}
	if m.liveMode && m.wallClock().Sub(sig.Timestamp) > timerRecencyThreshold {
		return
	}

	m.ctx = ctx
	m.lastTimestamp = sig.Timestamp

	switch sig.Kind {
	case signalbus.KindPlayerInitialized:
		m.localPlayerID = sig.EntityID
	case signalbus.KindCombatStarted:
		m.inCombat = true
		m.combatStartTime = sig.Timestamp
		m.lastCombatSecs = 0
	case signalbus.KindCombatEnded:
		m.clearCombatTimers()
	case signalbus.KindBossEncounterDetected:
		m.inCombat = true
		m.combatStartTime = sig.Timestamp
		m.lastCombatSecs = 0
	case signalbus.KindBossHpChanged:
		if sig.NewHPPercent > 0 {
			m.bossEntityIDs[sig.NpcID] = true
		}
	}

	source := trigger.Ctx{ID: sig.SourceID, Name: sig.SourceName, IsLocalPlayer: sig.SourceID == m.localPlayerID}
	target := trigger.Ctx{ID: sig.TargetID, Name: sig.TargetName, IsLocalPlayer: sig.TargetID == m.localPlayerID, IsBoss: m.bossEntityIDs[sig.NpcID]}

	for _, def := range m.definitions {
		if !trigger.MatchesSignal(def.Trigger, sig) {
			continue
		}
		if !m.isDefinitionActive(def) {
			continue
		}
		if !m.sourceTargetFiltersPass(def, source, target) {
			continue
		}
		var targetID *int64
		if sig.TargetID != 0 {
			id := sig.TargetID
			targetID = &id
		}
		m.startTimer(def, sig.Timestamp, targetID)
	}

	m.cancelTimersMatching(sig)

	if m.inCombat {
		m.checkTimeElapsed(sig.Timestamp)
	}
	m.processExpirations(sig.Timestamp)
}

func (m *Manager) checkTimeElapsed(now time.Time) {
	secs := float32(now.Sub(m.combatStartTime).Seconds())
	for _, def := range m.definitions {
		if def.Trigger.Kind != trigger.KindTimeElapsed {
			continue
		}
		if !def.Trigger.MatchesTimeElapsed(m.lastCombatSecs, secs) {
			continue
		}
		if !m.isDefinitionActive(def) {
			continue
		}
		m.startTimer(def, now, nil)
	}
	m.lastCombatSecs = secs
}

// Tick re-evaluates expirations against the last seen signal
// timestamp, so timers still fire between log lines.
func (m *Manager) Tick() {
	if m.lastTimestamp.IsZero() {
		return
	}
	m.processExpirations(m.lastTimestamp)
}

// OnEncounterStart implements signalbus.SignalHandler.
func (m *Manager) OnEncounterStart(encounterID uint64) {}

// OnEncounterEnd implements signalbus.SignalHandler.
func (m *Manager) OnEncounterEnd(encounterID uint64) {
	m.clearCombatTimers()
}
