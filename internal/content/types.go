// Package content holds the subjects, chapters and quizzes managed by the
// admin dashboard, and the operations that change them.
package content

import (
	"errors"
	"fmt"
	"strings"
)

// DateLayout is the calendar-day format used for quiz dates.
const DateLayout = "2006-01-02"

var (
	// ErrInvalid is returned when a save is rejected because of its input.
	// The store is left unchanged.
	ErrInvalid = errors.New("invalid input")
	// ErrNotFound is returned when an update targets an id that is not in the store.
	ErrNotFound = errors.New("not found")
)

// Chapter is a named subdivision of exactly one Subject.
type Chapter struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Subject is a top-level content category owning an ordered list of chapters.
type Subject struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Slug        string    `json:"slug"`
	Chapters    []Chapter `json:"chapters"`
}

// Chapter returns the chapter with the given id.
func (s Subject) Chapter(id int64) (Chapter, bool) {
	for _, ch := range s.Chapters {
		if ch.ID == id {
			return ch, true
		}
	}
	return Chapter{}, false
}

// Quiz is a timed assessment referencing one subject and one chapter.
type Quiz struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Duration    int    `json:"duration"` // minutes
	SubjectID   int64  `json:"subjectId"`
	ChapterID   int64  `json:"chapterId"`
	Questions   int    `json:"questions"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
	Date        string `json:"date,omitempty"`
}

// SubjectInput is the editable part of a Subject.
type SubjectInput struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
}

// ChapterInput is the editable part of a Chapter.
type ChapterInput struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
}

// QuizInput is the editable part of a Quiz.
type QuizInput struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Duration    int    `json:"duration" form:"duration"`
	SubjectID   int64  `json:"subjectId" form:"subject_id"`
	ChapterID   int64  `json:"chapterId" form:"chapter_id"`
	Date        string `json:"date" form:"date"`
}

// SelectSubject points the input at a subject. Changing the subject clears
// the chapter, since chapters belong to exactly one subject.
func (in *QuizInput) SelectSubject(id int64) {
	if in.SubjectID == id {
		return
	}
	in.SubjectID = id
	in.ChapterID = 0
}

// Snapshot is the content of the store at one point in time. A Snapshot
// handed out by the Store is never modified afterwards.
type Snapshot struct {
	Subjects []Subject `json:"subjects"`
	Quizzes  []Quiz    `json:"quizzes"`
	Version  uint64    `json:"version"`
}

// Subject returns the subject with the given id.
func (s Snapshot) Subject(id int64) (Subject, bool) {
	for _, sub := range s.Subjects {
		if sub.ID == id {
			return sub, true
		}
	}
	return Subject{}, false
}

// Quiz returns the quiz with the given id.
func (s Snapshot) Quiz(id int64) (Quiz, bool) {
	for _, q := range s.Quizzes {
		if q.ID == id {
			return q, true
		}
	}
	return Quiz{}, false
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Subjects: make([]Subject, len(s.Subjects)),
		Quizzes:  make([]Quiz, len(s.Quizzes)),
		Version:  s.Version,
	}
	for i, sub := range s.Subjects {
		sub.Chapters = append([]Chapter{}, sub.Chapters...)
		out.Subjects[i] = sub
	}
	copy(out.Quizzes, s.Quizzes)
	return out
}

// Entity names the kind of record a Change touched.
type Entity string

const (
	EntitySubject Entity = "subject"
	EntityChapter Entity = "chapter"
	EntityQuiz    Entity = "quiz"
)

// Action names what a Change did.
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionDeleted     Action = "deleted"
	ActionActivated   Action = "activated"
	ActionDeactivated Action = "deactivated"
)

// Change describes one committed mutation.
type Change struct {
	Entity    Entity
	Action    Action
	ID        int64
	SubjectID int64 // owning subject, for chapters
	Name      string
}

// Message is the confirmation shown to the user for this change,
// e.g. "Subject created successfully".
func (c Change) Message() string {
	return Message(c.Entity, c.Action)
}

// Destructive reports whether the change removed a record.
func (c Change) Destructive() bool {
	return c.Action == ActionDeleted
}

// Message formats the confirmation text for an entity and action.
func Message(e Entity, a Action) string {
	name := string(e)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s %s successfully", name, a)
}
