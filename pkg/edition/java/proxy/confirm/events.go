package confirm

// TransitionCompletedEvent is fired after a transition was confirmed
// and the buffered packets were replayed.
type TransitionCompletedEvent struct {
	handler  *Handler
	Replayed int // Number of buffered packets handed to the next session handler.
}

// Handler returns the handler that completed.
func (e *TransitionCompletedEvent) Handler() *Handler { return e.handler }

// TransitionAbortedEvent is fired when the connection disconnected
// before the transition was confirmed.
type TransitionAbortedEvent struct {
	handler  *Handler
	Released int // Number of buffered packets released without replay.
}

// Handler returns the handler that was aborted.
func (e *TransitionAbortedEvent) Handler() *Handler { return e.handler }
