package content

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/search"
)

// AllSubjects selects every quiz in FilterQuizzes.
const AllSubjects = "all"

// UnknownName is shown for references to records that no longer exist.
const UnknownName = "Unknown"

// Stats holds the figures shown on the dashboard cards.
type Stats struct {
	Subjects      int `json:"totalSubjects"`
	Chapters      int `json:"totalChapters"`
	Quizzes       int `json:"totalQuizzes"`
	ActiveQuizzes int `json:"activeQuizzes"`
}

// ComputeStats counts the records in a snapshot.
func ComputeStats(s Snapshot) Stats {
	st := Stats{Subjects: len(s.Subjects), Quizzes: len(s.Quizzes)}
	for _, sub := range s.Subjects {
		st.Chapters += len(sub.Chapters)
	}
	for _, q := range s.Quizzes {
		if q.IsActive {
			st.ActiveQuizzes++
		}
	}
	return st
}

// QuizView is a quiz with its references resolved to display names.
type QuizView struct {
	Quiz
	SubjectName string `json:"subject"`
	ChapterName string `json:"chapter"`
}

// ResolveQuiz looks up the subject and chapter names of a quiz.
func ResolveQuiz(s Snapshot, q Quiz) QuizView {
	v := QuizView{Quiz: q, SubjectName: UnknownName, ChapterName: UnknownName}
	sub, ok := s.Subject(q.SubjectID)
	if !ok {
		return v
	}
	v.SubjectName = sub.Name
	if ch, ok := sub.Chapter(q.ChapterID); ok {
		v.ChapterName = ch.Name
	}
	return v
}

// ResolveQuizzes resolves every quiz in the snapshot, in order.
func ResolveQuizzes(s Snapshot) []QuizView {
	out := make([]QuizView, 0, len(s.Quizzes))
	for _, q := range s.Quizzes {
		out = append(out, ResolveQuiz(s, q))
	}
	return out
}

// QuizFilters returns the distinct subject names of the given quizzes in the
// order they first appear.
func QuizFilters(quizzes []QuizView) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range quizzes {
		if seen[q.SubjectName] {
			continue
		}
		seen[q.SubjectName] = true
		out = append(out, q.SubjectName)
	}
	return out
}

// FilterQuizzes keeps the quizzes of one subject. An empty subject or
// AllSubjects keeps everything.
func FilterQuizzes(quizzes []QuizView, subject string) []QuizView {
	if subject == "" || subject == AllSubjects {
		return quizzes
	}
	out := make([]QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		if q.SubjectName == subject {
			out = append(out, q)
		}
	}
	return out
}

// ChapterHit is a chapter found by Search together with its subject.
type ChapterHit struct {
	SubjectID   int64   `json:"subjectId"`
	SubjectName string  `json:"subject"`
	Chapter     Chapter `json:"chapter"`
}

// SearchResult groups Search matches by record type.
type SearchResult struct {
	Query    string       `json:"query"`
	Subjects []Subject    `json:"subjects"`
	Chapters []ChapterHit `json:"chapters"`
	Quizzes  []QuizView   `json:"quizzes"`
}

// Empty reports whether nothing matched.
func (r SearchResult) Empty() bool {
	return len(r.Subjects) == 0 && len(r.Chapters) == 0 && len(r.Quizzes) == 0
}

// Search finds subjects, chapters and quizzes whose name or title contains
// query, ignoring case and diacritics.
func Search(s Snapshot, query string) SearchResult {
	query = strings.TrimSpace(query)
	res := SearchResult{
		Query:    query,
		Subjects: []Subject{},
		Chapters: []ChapterHit{},
		Quizzes:  []QuizView{},
	}
	if query == "" {
		return res
	}

	m := search.New(language.Und, search.Loose)
	contains := func(text string) bool {
		start, _ := m.IndexString(text, query)
		return start >= 0
	}

	for _, sub := range s.Subjects {
		if contains(sub.Name) {
			res.Subjects = append(res.Subjects, sub)
		}
		for _, ch := range sub.Chapters {
			if contains(ch.Name) {
				res.Chapters = append(res.Chapters, ChapterHit{SubjectID: sub.ID, SubjectName: sub.Name, Chapter: ch})
			}
		}
	}
	for _, q := range s.Quizzes {
		if contains(q.Title) {
			res.Quizzes = append(res.Quizzes, ResolveQuiz(s, q))
		}
	}
	return res
}
