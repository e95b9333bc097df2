package content_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/p-n-ai/pai-admin/internal/content"
)

var today = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newStore(t *testing.T, initial content.Snapshot) *content.Store {
	t.Helper()
	return content.NewStore(initial, content.Options{
		IDs: content.NewSequenceIDs(100),
		Now: func() time.Time { return today },
	})
}

func physics() content.Snapshot {
	return content.Snapshot{
		Subjects: []content.Subject{
			{ID: 1, Name: "Physics", Chapters: []content.Chapter{{ID: 1, Name: "Force"}}},
		},
	}
}

func TestStore_SaveSubject_Create(t *testing.T) {
	store := newStore(t, physics())

	sub, err := store.SaveSubject(content.SubjectInput{Name: "App Dev-I", Description: "Intro"}, 0)
	if err != nil {
		t.Fatalf("SaveSubject() error = %v", err)
	}
	if sub.ID == 0 || sub.ID == 1 {
		t.Errorf("ID = %d, want a fresh id", sub.ID)
	}
	if sub.Slug != "app-dev-i" {
		t.Errorf("Slug = %q, want app-dev-i", sub.Slug)
	}
	if len(sub.Chapters) != 0 {
		t.Errorf("Chapters = %v, want empty", sub.Chapters)
	}

	subjects := store.ListSubjects()
	if len(subjects) != 2 {
		t.Fatalf("len(subjects) = %d, want 2", len(subjects))
	}
	if subjects[1].Name != "App Dev-I" {
		t.Errorf("subjects[1].Name = %q, want App Dev-I (appended last)", subjects[1].Name)
	}
}

func TestStore_SaveSubject_UpdateKeepsChapters(t *testing.T) {
	store := newStore(t, physics())

	sub, err := store.SaveSubject(content.SubjectInput{Name: "Modern Physics", Description: "Quanta"}, 1)
	if err != nil {
		t.Fatalf("SaveSubject() error = %v", err)
	}
	if sub.ID != 1 {
		t.Errorf("ID = %d, want 1", sub.ID)
	}
	if len(sub.Chapters) != 1 || sub.Chapters[0].Name != "Force" {
		t.Errorf("Chapters = %v, want [Force]", sub.Chapters)
	}
	got, _ := store.Subject(1)
	if got.Description != "Quanta" {
		t.Errorf("Description = %q, want Quanta", got.Description)
	}
}

func TestStore_SaveSubject_BlankNameIsRejected(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		existingID int64
	}{
		{"empty create", "", 0},
		{"whitespace create", "  ", 0},
		{"whitespace update", "\t\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := content.NewSequenceIDs(100)
			store := content.NewStore(physics(), content.Options{IDs: ids})
			before := store.Snapshot()

			_, err := store.SaveSubject(content.SubjectInput{Name: tt.input}, tt.existingID)
			if !errors.Is(err, content.ErrInvalid) {
				t.Fatalf("SaveSubject() error = %v, want ErrInvalid", err)
			}
			if !reflect.DeepEqual(store.Snapshot(), before) {
				t.Error("store changed after rejected save")
			}
			if next := ids.Next(); next != 100 {
				t.Errorf("generator advanced to %d, want no id drawn", next)
			}
		})
	}
}

func TestStore_SaveSubject_UnknownIDIsNotFound(t *testing.T) {
	store := newStore(t, physics())
	before := store.Snapshot()

	_, err := store.SaveSubject(content.SubjectInput{Name: "Chemistry"}, 42)
	if !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("SaveSubject() error = %v, want ErrNotFound", err)
	}
	if !reflect.DeepEqual(store.Snapshot(), before) {
		t.Error("store changed after update of unknown subject")
	}
}

func TestStore_DeleteSubject_Idempotent(t *testing.T) {
	store := newStore(t, physics())

	if !store.DeleteSubject(1) {
		t.Error("first DeleteSubject() = false, want true")
	}
	if store.DeleteSubject(1) {
		t.Error("second DeleteSubject() = true, want false")
	}
	for _, s := range store.ListSubjects() {
		if s.ID == 1 {
			t.Error("deleted subject still listed")
		}
	}
}

func TestStore_DeleteSubject_KeepsQuizzes(t *testing.T) {
	snap := physics()
	snap.Quizzes = []content.Quiz{{ID: 7, Title: "Forces", SubjectID: 1, ChapterID: 1, IsActive: true}}
	store := newStore(t, snap)

	store.DeleteSubject(1)

	if len(store.ListQuizzes()) != 1 {
		t.Error("deleting a subject should not remove quizzes that reference it")
	}
}

func TestStore_SaveChapter_Create(t *testing.T) {
	store := newStore(t, physics())

	ch, err := store.SaveChapter(1, content.ChapterInput{Name: "Optics"}, 0)
	if err != nil {
		t.Fatalf("SaveChapter() error = %v", err)
	}
	if ch.ID == 1 || ch.ID == 0 {
		t.Errorf("ID = %d, want fresh id", ch.ID)
	}

	sub, _ := store.Subject(1)
	if len(sub.Chapters) != 2 {
		t.Fatalf("len(Chapters) = %d, want 2", len(sub.Chapters))
	}
	if sub.Chapters[1].Name != "Optics" {
		t.Errorf("Chapters[1].Name = %q, want Optics", sub.Chapters[1].Name)
	}
}

func TestStore_SaveChapter_Update(t *testing.T) {
	store := newStore(t, physics())

	_, err := store.SaveChapter(1, content.ChapterInput{Name: "Forces", Description: "Newton"}, 1)
	if err != nil {
		t.Fatalf("SaveChapter() error = %v", err)
	}
	sub, _ := store.Subject(1)
	if sub.Chapters[0].Name != "Forces" || sub.Chapters[0].Description != "Newton" {
		t.Errorf("Chapters[0] = %+v, want updated chapter", sub.Chapters[0])
	}
}

func TestStore_SaveChapter_Errors(t *testing.T) {
	tests := []struct {
		name      string
		subjectID int64
		input     content.ChapterInput
		existing  int64
		want      error
	}{
		{"blank name", 1, content.ChapterInput{Name: " "}, 0, content.ErrInvalid},
		{"unknown subject", 9, content.ChapterInput{Name: "Optics"}, 0, content.ErrNotFound},
		{"unknown chapter", 1, content.ChapterInput{Name: "Optics"}, 9, content.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, physics())
			before := store.Snapshot()

			_, err := store.SaveChapter(tt.subjectID, tt.input, tt.existing)
			if !errors.Is(err, tt.want) {
				t.Errorf("SaveChapter() error = %v, want %v", err, tt.want)
			}
			if !reflect.DeepEqual(store.Snapshot(), before) {
				t.Error("store changed after rejected save")
			}
		})
	}
}

func TestStore_DeleteChapter(t *testing.T) {
	store := newStore(t, physics())

	if !store.DeleteChapter(1, 1) {
		t.Error("DeleteChapter() = false, want true")
	}
	if store.DeleteChapter(1, 1) {
		t.Error("second DeleteChapter() = true, want false")
	}
	sub, _ := store.Subject(1)
	if len(sub.Chapters) != 0 {
		t.Errorf("Chapters = %v, want empty", sub.Chapters)
	}
}

func TestStore_SaveQuiz_Create(t *testing.T) {
	store := newStore(t, content.Snapshot{})

	q, err := store.SaveQuiz(content.QuizInput{Title: "Quiz1", SubjectID: 1, ChapterID: 1, Duration: 30}, 0)
	if err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}

	quizzes := store.ListQuizzes()
	if len(quizzes) != 1 {
		t.Fatalf("len(quizzes) = %d, want 1", len(quizzes))
	}
	got := quizzes[0]
	if got.ID != q.ID {
		t.Errorf("ID = %d, want %d", got.ID, q.ID)
	}
	if got.Questions != 0 {
		t.Errorf("Questions = %d, want 0", got.Questions)
	}
	if !got.IsActive {
		t.Error("IsActive = false, want true")
	}
	if got.CreatedAt != "2026-03-14" {
		t.Errorf("CreatedAt = %q, want 2026-03-14", got.CreatedAt)
	}
	if got.Duration != 30 {
		t.Errorf("Duration = %d, want 30", got.Duration)
	}
}

func TestStore_SaveQuiz_UpdateKeepsServerFields(t *testing.T) {
	store := newStore(t, content.Snapshot{
		Quizzes: []content.Quiz{{
			ID: 5, Title: "Old", SubjectID: 1, ChapterID: 1,
			Questions: 12, IsActive: false, CreatedAt: "2024-01-15",
		}},
	})

	q, err := store.SaveQuiz(content.QuizInput{Title: "New", SubjectID: 2, ChapterID: 3, Duration: 45, Date: "2026-04-01"}, 5)
	if err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}
	want := content.Quiz{
		ID: 5, Title: "New", SubjectID: 2, ChapterID: 3, Duration: 45, Date: "2026-04-01",
		Questions: 12, IsActive: false, CreatedAt: "2024-01-15",
	}
	if q != want {
		t.Errorf("SaveQuiz() = %+v, want %+v", q, want)
	}
}

func TestStore_SaveQuiz_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input content.QuizInput
	}{
		{"blank title", content.QuizInput{Title: " ", SubjectID: 1, ChapterID: 1}},
		{"no subject", content.QuizInput{Title: "Q", ChapterID: 1}},
		{"no chapter", content.QuizInput{Title: "Q", SubjectID: 1}},
		{"negative duration", content.QuizInput{Title: "Q", SubjectID: 1, ChapterID: 1, Duration: -5}},
		{"bad date", content.QuizInput{Title: "Q", SubjectID: 1, ChapterID: 1, Date: "14/03/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, physics())

			_, err := store.SaveQuiz(tt.input, 0)
			if !errors.Is(err, content.ErrInvalid) {
				t.Errorf("SaveQuiz() error = %v, want ErrInvalid", err)
			}
			if len(store.ListQuizzes()) != 0 {
				t.Error("rejected quiz was stored")
			}
		})
	}
}

func TestStore_SaveQuiz_References(t *testing.T) {
	mismatched := content.QuizInput{Title: "Q", SubjectID: 1, ChapterID: 99}

	t.Run("relaxed by default", func(t *testing.T) {
		store := newStore(t, physics())
		if _, err := store.SaveQuiz(mismatched, 0); err != nil {
			t.Errorf("SaveQuiz() error = %v, want nil", err)
		}
	})

	t.Run("strict rejects foreign chapter", func(t *testing.T) {
		store := content.NewStore(physics(), content.Options{StrictReferences: true})
		_, err := store.SaveQuiz(mismatched, 0)
		if !errors.Is(err, content.ErrInvalid) {
			t.Errorf("SaveQuiz() error = %v, want ErrInvalid", err)
		}
	})

	t.Run("strict accepts owned chapter", func(t *testing.T) {
		store := content.NewStore(physics(), content.Options{StrictReferences: true})
		if _, err := store.SaveQuiz(content.QuizInput{Title: "Q", SubjectID: 1, ChapterID: 1}, 0); err != nil {
			t.Errorf("SaveQuiz() error = %v, want nil", err)
		}
	})
}

func TestStore_SetQuizActive(t *testing.T) {
	store := newStore(t, content.Snapshot{Quizzes: []content.Quiz{{ID: 3, Title: "Q", IsActive: true}}})

	q, err := store.SetQuizActive(3, false)
	if err != nil {
		t.Fatalf("SetQuizActive() error = %v", err)
	}
	if q.IsActive {
		t.Error("IsActive = true, want false")
	}

	if _, err := store.SetQuizActive(4, true); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("SetQuizActive(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteQuiz(t *testing.T) {
	store := newStore(t, content.Snapshot{Quizzes: []content.Quiz{{ID: 3}, {ID: 4}}})

	if !store.DeleteQuiz(3) {
		t.Error("DeleteQuiz() = false, want true")
	}
	if store.DeleteQuiz(3) {
		t.Error("second DeleteQuiz() = true, want false")
	}
	quizzes := store.ListQuizzes()
	if len(quizzes) != 1 || quizzes[0].ID != 4 {
		t.Errorf("quizzes = %v, want [4]", quizzes)
	}
}

func TestStore_FreshIDsSkipTakenOnes(t *testing.T) {
	snap := content.Snapshot{Subjects: []content.Subject{{ID: 100, Name: "Taken"}}}
	store := content.NewStore(snap, content.Options{IDs: content.NewSequenceIDs(100)})

	sub, err := store.SaveSubject(content.SubjectInput{Name: "Next"}, 0)
	if err != nil {
		t.Fatalf("SaveSubject() error = %v", err)
	}
	if sub.ID != 101 {
		t.Errorf("ID = %d, want 101", sub.ID)
	}
}

func TestStore_SnapshotsAreImmutable(t *testing.T) {
	store := newStore(t, physics())

	held := store.Snapshot()
	held.Subjects[0].Name = "Tampered"
	if got, _ := store.Subject(1); got.Name != "Physics" {
		t.Errorf("reader mutation leaked into store: Name = %q", got.Name)
	}

	before := store.Snapshot()
	if _, err := store.SaveChapter(1, content.ChapterInput{Name: "Optics"}, 0); err != nil {
		t.Fatalf("SaveChapter() error = %v", err)
	}
	if len(before.Subjects[0].Chapters) != 1 {
		t.Error("earlier snapshot changed after a mutation")
	}
	if store.Snapshot().Version != before.Version+1 {
		t.Errorf("Version = %d, want %d", store.Snapshot().Version, before.Version+1)
	}
}

func TestStore_Subscribe(t *testing.T) {
	store := newStore(t, physics())

	var changes []content.Change
	cancel := store.Subscribe(func(c content.Change, snap content.Snapshot) {
		changes = append(changes, c)
		if len(snap.Subjects) == 0 {
			t.Error("observer received empty snapshot")
		}
	})

	store.SaveSubject(content.SubjectInput{Name: "Chemistry"}, 0)
	store.SaveSubject(content.SubjectInput{Name: ""}, 0) // rejected, not published
	store.DeleteQuiz(404)                                // no-op, not published
	store.DeleteSubject(1)

	if len(changes) != 2 {
		t.Fatalf("len(changes) = %d, want 2", len(changes))
	}
	if changes[0].Message() != "Subject created successfully" {
		t.Errorf("changes[0].Message() = %q", changes[0].Message())
	}
	if !changes[1].Destructive() {
		t.Error("delete change should be destructive")
	}

	cancel()
	store.SaveSubject(content.SubjectInput{Name: "Biology"}, 0)
	if len(changes) != 2 {
		t.Error("observer called after cancel")
	}
}
