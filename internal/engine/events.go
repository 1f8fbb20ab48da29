package engine

import "quill/internal/domain/services"

// Subscribe registers an observer for a document's session events and
// returns its unsubscribe function. Observers come and go independently;
// there is no single callback slot to save and restore.
func (e *Engine) Subscribe(documentID string, fn services.EventHandler) func() {
	s := e.getOrCreate(documentID)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// emit delivers an event to the session's observers. Delivery is synchronous
// on the emitting goroutine, over a copy of the observer list so handlers
// may unsubscribe themselves.
func (s *session) emit(event services.Event) {
	s.subsMu.Lock()
	handlers := make([]services.EventHandler, 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range handlers {
		fn(event)
	}
}
