package signalbus

// SignalHandler is implemented by each independent subsystem that
// reacts to the signal stream (effect tracking, timers, challenges,
// the overlay router, CLI output). Handlers run single-threaded on
// the Bus's calling goroutine; HandleSignal must not block.
type SignalHandler interface {
	HandleSignal(sig Signal, ctx EncounterContext)
	OnEncounterStart(encounterID uint64)
	OnEncounterEnd(encounterID uint64)
}

// Bus fans a batch of signals for one event out to every registered
// handler, in registration order, before moving to the next signal.
// There is no queuing between handlers: handler N sees a signal before
// handler N+1 does, and both finish it before the bus advances.
type Bus struct {
	handlers []SignalHandler
}

// NewBus returns an empty Bus. Handlers are added with Register.
func NewBus() *Bus {
	return &Bus{}
}

// Register adds h to the end of the dispatch order.
func (b *Bus) Register(h SignalHandler) {
	b.handlers = append(b.handlers, h)
}

// Dispatch delivers every signal in signals to every handler, in
// order. Safe to call with an empty or nil slice.
func (b *Bus) Dispatch(signals []Signal, ctx EncounterContext) {
	for _, sig := range signals {
		for _, h := range b.handlers {
			h.HandleSignal(sig, ctx)
		}
	}
}

// EncounterStarted notifies every handler that a new encounter began.
func (b *Bus) EncounterStarted(encounterID uint64) {
	for _, h := range b.handlers {
		h.OnEncounterStart(encounterID)
	}
}

// EncounterEnded notifies every handler that an encounter closed.
func (b *Bus) EncounterEnded(encounterID uint64) {
	for _, h := range b.handlers {
		h.OnEncounterEnd(encounterID)
	}
}
