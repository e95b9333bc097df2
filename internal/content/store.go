package content

import (
	"errors"
	"sync"
	"time"
)

var errNoop = errors.New("no change")

// Observer is called after every committed mutation with the change and
// the snapshot it produced.
type Observer func(Change, Snapshot)

// Options configures a Store.
type Options struct {
	IDs IDGenerator      // default: NewClockIDs()
	Now func() time.Time // default: time.Now
	// StrictReferences makes SaveQuiz reject a chapter that does not belong
	// to the quiz's subject.
	StrictReferences bool
}

// Store holds the current Snapshot. Mutations build a new snapshot and swap
// it in; snapshots already handed to readers never change.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	mut  mutator

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewStore creates a store holding a copy of initial.
func NewStore(initial Snapshot, opts Options) *Store {
	ids := opts.IDs
	if ids == nil {
		ids = NewClockIDs()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		snap:      initial.clone(),
		mut:       mutator{ids: ids, now: now, strict: opts.StrictReferences},
		observers: make(map[int]Observer),
	}
}

// Snapshot returns the current content.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// ListSubjects returns the subjects in order.
func (s *Store) ListSubjects() []Subject {
	return s.Snapshot().Subjects
}

// ListQuizzes returns the quizzes in order.
func (s *Store) ListQuizzes() []Quiz {
	return s.Snapshot().Quizzes
}

// Subject returns the subject with the given id.
func (s *Store) Subject(id int64) (Subject, bool) {
	return s.Snapshot().Subject(id)
}

// Quiz returns the quiz with the given id.
func (s *Store) Quiz(id int64) (Quiz, bool) {
	return s.Snapshot().Quiz(id)
}

// Subscribe registers an observer. The returned func removes it.
func (s *Store) Subscribe(fn Observer) (cancel func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// SaveSubject creates a subject when existingID is 0 and otherwise replaces
// the name and description of the subject with that id, keeping its chapters.
// A blank name returns ErrInvalid and leaves the store unchanged.
func (s *Store) SaveSubject(in SubjectInput, existingID int64) (Subject, error) {
	var out Subject
	err := s.apply(func(cur Snapshot) (Snapshot, Change, error) {
		next, sub, ch, err := s.mut.saveSubject(cur, in, existingID)
		out = sub
		return next, ch, err
	})
	return out, err
}

// DeleteSubject removes a subject and its chapters. Quizzes referring to it
// are kept. It reports whether anything was removed.
func (s *Store) DeleteSubject(id int64) bool {
	return s.remove(func(cur Snapshot) (Snapshot, Change, bool) {
		return s.mut.deleteSubject(cur, id)
	})
}

// SaveChapter creates or updates a chapter of the subject with subjectID.
func (s *Store) SaveChapter(subjectID int64, in ChapterInput, existingID int64) (Chapter, error) {
	var out Chapter
	err := s.apply(func(cur Snapshot) (Snapshot, Change, error) {
		next, c, ch, err := s.mut.saveChapter(cur, subjectID, in, existingID)
		out = c
		return next, ch, err
	})
	return out, err
}

// DeleteChapter removes a chapter from its subject.
func (s *Store) DeleteChapter(subjectID, chapterID int64) bool {
	return s.remove(func(cur Snapshot) (Snapshot, Change, bool) {
		return s.mut.deleteChapter(cur, subjectID, chapterID)
	})
}

// SaveQuiz creates or updates a quiz. New quizzes start active with no
// questions and today's creation date; updates keep those fields.
func (s *Store) SaveQuiz(in QuizInput, existingID int64) (Quiz, error) {
	var out Quiz
	err := s.apply(func(cur Snapshot) (Snapshot, Change, error) {
		next, q, ch, err := s.mut.saveQuiz(cur, in, existingID)
		out = q
		return next, ch, err
	})
	return out, err
}

// SetQuizActive switches a quiz on or off.
func (s *Store) SetQuizActive(id int64, active bool) (Quiz, error) {
	var out Quiz
	err := s.apply(func(cur Snapshot) (Snapshot, Change, error) {
		next, q, ch, err := s.mut.setQuizActive(cur, id, active)
		out = q
		return next, ch, err
	})
	return out, err
}

// DeleteQuiz removes a quiz.
func (s *Store) DeleteQuiz(id int64) bool {
	return s.remove(func(cur Snapshot) (Snapshot, Change, bool) {
		return s.mut.deleteQuiz(cur, id)
	})
}

func (s *Store) apply(fn func(Snapshot) (Snapshot, Change, error)) error {
	s.mu.Lock()
	next, change, err := fn(s.snap)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next.Version = s.snap.Version + 1
	s.snap = next
	s.mu.Unlock()

	s.publish(change, next)
	return nil
}

func (s *Store) remove(fn func(Snapshot) (Snapshot, Change, bool)) bool {
	var removed bool
	_ = s.apply(func(cur Snapshot) (Snapshot, Change, error) {
		next, change, ok := fn(cur)
		if !ok {
			return cur, Change{}, errNoop
		}
		removed = true
		return next, change, nil
	})
	return removed
}

func (s *Store) publish(change Change, snap Snapshot) {
	s.obsMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for i := 0; i < s.nextObs; i++ {
		if fn, ok := s.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	s.obsMu.Unlock()

	for _, fn := range observers {
		fn(change, snap.clone())
	}
}
