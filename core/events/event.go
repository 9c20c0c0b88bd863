package events

// Event represents a structured state change emitted by the ledger.
type Event struct {
	Type       string
	Attributes map[string]string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC streams,
// indexers, metrics).
type Emitter interface {
	Emit(*Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(*Event) {}

// MultiEmitter fans each event out to every wrapped emitter in order. Nil
// entries are skipped.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(evt *Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
