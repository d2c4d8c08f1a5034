package skein

// EditorObserver receives notifications after buffer mutations. Callbacks
// run synchronously on the mutating goroutine, after the buffer and
// history are consistent; they must not mutate the editor re-entrantly.
type EditorObserver interface {
	// TokenChanged fires after a single-slot overwrite.
	TokenChanged(pos int, old, new Token)

	// RangeChanged fires after an insert, delete, or replace. The range
	// describes the affected region as recorded in the edit.
	RangeChanged(r Range)
}

// AddObserver registers an observer. Registration order is notification
// order.
func (e *Editor) AddObserver(obs EditorObserver) {
	if e == nil || e.closed || obs == nil {
		return
	}
	e.observers = append(e.observers, obs)
}

// RemoveObserver unregisters a previously added observer.
func (e *Editor) RemoveObserver(obs EditorObserver) {
	if e == nil {
		return
	}
	for i, o := range e.observers {
		if o == obs {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

// ObserverFuncs adapts plain functions to EditorObserver. Nil fields are
// skipped.
type ObserverFuncs struct {
	OnToken func(pos int, old, new Token)
	OnRange func(r Range)
}

func (o *ObserverFuncs) TokenChanged(pos int, old, new Token) {
	if o.OnToken != nil {
		o.OnToken(pos, old, new)
	}
}

func (o *ObserverFuncs) RangeChanged(r Range) {
	if o.OnRange != nil {
		o.OnRange(r)
	}
}
