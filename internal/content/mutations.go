package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// mutator applies mutations to snapshots. Every method works on a copy and
// returns the input snapshot untouched when the mutation is rejected.
type mutator struct {
	ids    IDGenerator
	now    func() time.Time
	strict bool
}

func (m mutator) saveSubject(s Snapshot, in SubjectInput, existingID int64) (Snapshot, Subject, Change, error) {
	if isBlank(in.Name) {
		return s, Subject{}, Change{}, fmt.Errorf("%w: subject name is required", ErrInvalid)
	}

	next := s.clone()
	if existingID != 0 {
		for i := range next.Subjects {
			sub := &next.Subjects[i]
			if sub.ID != existingID {
				continue
			}
			sub.Name = in.Name
			sub.Description = in.Description
			sub.Slug = slug.Make(in.Name)
			return next, *sub, Change{Entity: EntitySubject, Action: ActionUpdated, ID: sub.ID, Name: sub.Name}, nil
		}
		return s, Subject{}, Change{}, fmt.Errorf("%w: subject %d", ErrNotFound, existingID)
	}

	sub := Subject{
		ID:          m.freshID(func(id int64) bool { _, ok := s.Subject(id); return ok }),
		Name:        in.Name,
		Description: in.Description,
		Slug:        slug.Make(in.Name),
		Chapters:    []Chapter{},
	}
	next.Subjects = append(next.Subjects, sub)
	return next, sub, Change{Entity: EntitySubject, Action: ActionCreated, ID: sub.ID, Name: sub.Name}, nil
}

func (m mutator) deleteSubject(s Snapshot, id int64) (Snapshot, Change, bool) {
	idx := -1
	for i, sub := range s.Subjects {
		if sub.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, Change{}, false
	}

	removed := s.Subjects[idx]
	next := s.clone()
	next.Subjects = append(next.Subjects[:idx], next.Subjects[idx+1:]...)
	return next, Change{Entity: EntitySubject, Action: ActionDeleted, ID: removed.ID, Name: removed.Name}, true
}

func (m mutator) saveChapter(s Snapshot, subjectID int64, in ChapterInput, existingID int64) (Snapshot, Chapter, Change, error) {
	if isBlank(in.Name) {
		return s, Chapter{}, Change{}, fmt.Errorf("%w: chapter name is required", ErrInvalid)
	}

	next := s.clone()
	var sub *Subject
	for i := range next.Subjects {
		if next.Subjects[i].ID == subjectID {
			sub = &next.Subjects[i]
			break
		}
	}
	if sub == nil {
		return s, Chapter{}, Change{}, fmt.Errorf("%w: subject %d", ErrNotFound, subjectID)
	}

	if existingID != 0 {
		for i := range sub.Chapters {
			ch := &sub.Chapters[i]
			if ch.ID != existingID {
				continue
			}
			ch.Name = in.Name
			ch.Description = in.Description
			return next, *ch, Change{Entity: EntityChapter, Action: ActionUpdated, ID: ch.ID, SubjectID: subjectID, Name: ch.Name}, nil
		}
		return s, Chapter{}, Change{}, fmt.Errorf("%w: chapter %d in subject %d", ErrNotFound, existingID, subjectID)
	}

	owner := *sub
	ch := Chapter{
		ID:          m.freshID(func(id int64) bool { _, ok := owner.Chapter(id); return ok }),
		Name:        in.Name,
		Description: in.Description,
	}
	sub.Chapters = append(sub.Chapters, ch)
	return next, ch, Change{Entity: EntityChapter, Action: ActionCreated, ID: ch.ID, SubjectID: subjectID, Name: ch.Name}, nil
}

func (m mutator) deleteChapter(s Snapshot, subjectID, chapterID int64) (Snapshot, Change, bool) {
	sub, ok := s.Subject(subjectID)
	if !ok {
		return s, Change{}, false
	}
	ch, ok := sub.Chapter(chapterID)
	if !ok {
		return s, Change{}, false
	}

	next := s.clone()
	for i := range next.Subjects {
		if next.Subjects[i].ID != subjectID {
			continue
		}
		kept := next.Subjects[i].Chapters[:0]
		for _, c := range next.Subjects[i].Chapters {
			if c.ID != chapterID {
				kept = append(kept, c)
			}
		}
		next.Subjects[i].Chapters = kept
	}
	return next, Change{Entity: EntityChapter, Action: ActionDeleted, ID: ch.ID, SubjectID: subjectID, Name: ch.Name}, true
}

func (m mutator) saveQuiz(s Snapshot, in QuizInput, existingID int64) (Snapshot, Quiz, Change, error) {
	if err := m.validateQuiz(s, in); err != nil {
		return s, Quiz{}, Change{}, err
	}

	next := s.clone()
	if existingID != 0 {
		for i := range next.Quizzes {
			q := &next.Quizzes[i]
			if q.ID != existingID {
				continue
			}
			q.Title = in.Title
			q.Description = in.Description
			q.Duration = in.Duration
			q.SubjectID = in.SubjectID
			q.ChapterID = in.ChapterID
			q.Date = in.Date
			return next, *q, Change{Entity: EntityQuiz, Action: ActionUpdated, ID: q.ID, Name: q.Title}, nil
		}
		return s, Quiz{}, Change{}, fmt.Errorf("%w: quiz %d", ErrNotFound, existingID)
	}

	q := Quiz{
		ID:          m.freshID(func(id int64) bool { _, ok := s.Quiz(id); return ok }),
		Title:       in.Title,
		Description: in.Description,
		Duration:    in.Duration,
		SubjectID:   in.SubjectID,
		ChapterID:   in.ChapterID,
		Questions:   0,
		IsActive:    true,
		CreatedAt:   m.now().Format(DateLayout),
		Date:        in.Date,
	}
	next.Quizzes = append(next.Quizzes, q)
	return next, q, Change{Entity: EntityQuiz, Action: ActionCreated, ID: q.ID, Name: q.Title}, nil
}

func (m mutator) setQuizActive(s Snapshot, id int64, active bool) (Snapshot, Quiz, Change, error) {
	next := s.clone()
	for i := range next.Quizzes {
		q := &next.Quizzes[i]
		if q.ID != id {
			continue
		}
		q.IsActive = active
		action := ActionDeactivated
		if active {
			action = ActionActivated
		}
		return next, *q, Change{Entity: EntityQuiz, Action: action, ID: q.ID, Name: q.Title}, nil
	}
	return s, Quiz{}, Change{}, fmt.Errorf("%w: quiz %d", ErrNotFound, id)
}

func (m mutator) deleteQuiz(s Snapshot, id int64) (Snapshot, Change, bool) {
	q, ok := s.Quiz(id)
	if !ok {
		return s, Change{}, false
	}

	next := s.clone()
	kept := next.Quizzes[:0]
	for _, other := range next.Quizzes {
		if other.ID != id {
			kept = append(kept, other)
		}
	}
	next.Quizzes = kept
	return next, Change{Entity: EntityQuiz, Action: ActionDeleted, ID: q.ID, Name: q.Title}, true
}

func (m mutator) validateQuiz(s Snapshot, in QuizInput) error {
	switch {
	case isBlank(in.Title):
		return fmt.Errorf("%w: quiz title is required", ErrInvalid)
	case in.SubjectID == 0:
		return fmt.Errorf("%w: quiz subject is required", ErrInvalid)
	case in.ChapterID == 0:
		return fmt.Errorf("%w: quiz chapter is required", ErrInvalid)
	case in.Duration < 0:
		return fmt.Errorf("%w: quiz duration must not be negative", ErrInvalid)
	}
	if in.Date != "" {
		if _, err := time.Parse(DateLayout, in.Date); err != nil {
			return fmt.Errorf("%w: quiz date %q is not YYYY-MM-DD", ErrInvalid, in.Date)
		}
	}
	if m.strict {
		sub, ok := s.Subject(in.SubjectID)
		if !ok {
			return fmt.Errorf("%w: subject %d does not exist", ErrInvalid, in.SubjectID)
		}
		if _, ok := sub.Chapter(in.ChapterID); !ok {
			return fmt.Errorf("%w: chapter %d does not belong to subject %d", ErrInvalid, in.ChapterID, in.SubjectID)
		}
	}
	return nil
}

// freshID draws ids until one is non-zero and not taken.
func (m mutator) freshID(taken func(int64) bool) int64 {
	for {
		id := m.ids.Next()
		if id != 0 && !taken(id) {
			return id
		}
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
