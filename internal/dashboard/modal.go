package dashboard

import "errors"

// ErrModalClosed is returned by Save when the modal is not open.
var ErrModalClosed = errors.New("modal is not open")

// Modal holds the uncommitted draft of one edit dialog.
//
//	CLOSED -> Open -> OPEN(draft) -> Save ok -> CLOSED (store changed)
//	                              -> Save err -> OPEN(draft kept)
//	                              -> Cancel  -> CLOSED (store unchanged)
type Modal[T any] struct {
	defaults func() T
	open     bool
	editing  bool
	draft    T
}

// NewModal creates a closed modal. defaults builds the draft for "create".
func NewModal[T any](defaults func() T) *Modal[T] {
	if defaults == nil {
		defaults = func() T { var zero T; return zero }
	}
	return &Modal[T]{defaults: defaults}
}

// Open seeds the draft from target, or from defaults when target is nil.
func (m *Modal[T]) Open(target *T) {
	m.open = true
	m.editing = target != nil
	if target != nil {
		m.draft = *target
		return
	}
	m.draft = m.defaults()
}

// IsOpen reports whether the modal is showing.
func (m *Modal[T]) IsOpen() bool { return m.open }

// Editing reports whether the modal was opened on an existing record.
func (m *Modal[T]) Editing() bool { return m.editing }

// Draft returns a copy of the current draft.
func (m *Modal[T]) Draft() T { return m.draft }

// Update edits the draft in place. It does nothing while closed.
func (m *Modal[T]) Update(fn func(*T)) {
	if !m.open {
		return
	}
	fn(&m.draft)
}

// Save hands the draft to commit. On success the modal closes; on failure it
// stays open with the draft untouched and the commit error is returned.
func (m *Modal[T]) Save(commit func(T) error) error {
	if !m.open {
		return ErrModalClosed
	}
	if err := commit(m.draft); err != nil {
		return err
	}
	m.close()
	return nil
}

// Cancel discards the draft.
func (m *Modal[T]) Cancel() {
	m.close()
}

func (m *Modal[T]) close() {
	var zero T
	m.open = false
	m.editing = false
	m.draft = zero
}
