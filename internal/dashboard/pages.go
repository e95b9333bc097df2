package dashboard

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/p-n-ai/pai-admin/internal/activity"
	"github.com/p-n-ai/pai-admin/internal/content"
	"github.com/p-n-ai/pai-admin/internal/notify"
)

const (
	tabHome     = "home"
	tabSubjects = "subjects"
	tabQuiz     = "quiz"
	tabSummary  = "summary"
	tabUsers    = "users"
	tabSearch   = "search"

	recentActivity = 10

	questionsPending = "Question management will be implemented next"
)

var templateFuncs = template.FuncMap{
	"status": func(active bool) string {
		if active {
			return "Active"
		}
		return "Inactive"
	},
}

type navItem struct {
	Tab   string
	Label string
	Path  string
}

var navItems = []navItem{
	{tabHome, "Home", "/"},
	{tabSubjects, "Subjects", "/subjects"},
	{tabQuiz, "Quiz", "/quiz"},
	{tabSummary, "Summary", "/summary"},
	{tabUsers, "Users", "/users"},
}

// page is the data every template receives.
type page struct {
	Tab      string
	Nav      []navItem
	Query    string
	Flash    *flash
	Stats    content.Stats
	Subjects []content.Subject
	Quizzes  []content.QuizView
	Filters  []string
	Filter   string
	Search   *content.SearchResult
	Activity []activity.Event
	Modal    *modalView
}

// modalView is an open edit dialog rendered over a page.
type modalView struct {
	Kind    string // subject, chapter or quiz
	Title   string
	Action  string
	Editing bool
	Error   string

	Subject content.SubjectInput
	Chapter content.ChapterInput
	Quiz    content.QuizInput

	SubjectName string            // chapter modal
	Subjects    []content.Subject // quiz modal subject choices
	Chapters    []content.Chapter // quiz modal chapter choices
}

func (s *Server) registerPages(r *gin.Engine) {
	r.GET("/", s.pageHome)
	r.GET("/subjects", s.pageSubjects)
	r.GET("/quiz", s.pageQuiz)
	r.GET("/summary", s.pageSummary)
	r.GET("/users", s.pageUsers)
	r.GET("/search", s.pageSearch)

	r.GET("/subjects/new", s.subjectModal)
	r.POST("/subjects/new", s.subjectModal)
	r.GET("/subjects/:id/edit", s.subjectModal)
	r.POST("/subjects/:id/edit", s.subjectModal)
	r.POST("/subjects/:id/delete", s.deleteSubject)

	r.GET("/subjects/:id/chapters/new", s.chapterModal)
	r.POST("/subjects/:id/chapters/new", s.chapterModal)
	r.GET("/subjects/:id/chapters/:chapterId/edit", s.chapterModal)
	r.POST("/subjects/:id/chapters/:chapterId/edit", s.chapterModal)
	r.POST("/subjects/:id/chapters/:chapterId/delete", s.deleteChapter)

	r.GET("/quizzes/new", s.quizModal)
	r.POST("/quizzes/new", s.quizModal)
	r.GET("/quizzes/:id/edit", s.quizModal)
	r.POST("/quizzes/:id/edit", s.quizModal)
	r.POST("/quizzes/:id/delete", s.deleteQuiz)
	r.POST("/quizzes/:id/toggle", s.toggleQuiz)
	r.POST("/quizzes/:id/questions", s.manageQuestions)
}

// basePage projects the current snapshot for a tab.
func (s *Server) basePage(c *gin.Context, tab string) page {
	snap := s.snapshot()
	views := content.ResolveQuizzes(snap)
	return page{
		Tab:      tab,
		Nav:      navItems,
		Query:    c.Query("q"),
		Stats:    content.ComputeStats(snap),
		Subjects: snap.Subjects,
		Quizzes:  views,
		Filters:  content.QuizFilters(views),
		Filter:   content.AllSubjects,
	}
}

func (s *Server) quizPage(c *gin.Context) page {
	p := s.basePage(c, tabQuiz)
	if f := c.Query("subject"); f != "" {
		p.Filter = f
	}
	p.Quizzes = content.FilterQuizzes(p.Quizzes, p.Filter)
	return p
}

func (s *Server) render(c *gin.Context, status int, p page) {
	p.Flash = takeFlash(c)
	c.HTML(status, "page", p)
}

func (s *Server) pageHome(c *gin.Context) {
	s.render(c, http.StatusOK, s.basePage(c, tabHome))
}

func (s *Server) pageSubjects(c *gin.Context) {
	s.render(c, http.StatusOK, s.basePage(c, tabSubjects))
}

func (s *Server) pageQuiz(c *gin.Context) {
	s.render(c, http.StatusOK, s.quizPage(c))
}

func (s *Server) pageSummary(c *gin.Context) {
	p := s.basePage(c, tabSummary)
	if s.activity != nil {
		events, err := s.activity.Recent(recentActivity)
		if err != nil {
			slog.Warn("reading recent activity failed", "error", err)
		}
		p.Activity = events
	}
	s.render(c, http.StatusOK, p)
}

func (s *Server) pageUsers(c *gin.Context) {
	s.render(c, http.StatusOK, s.basePage(c, tabUsers))
}

func (s *Server) pageSearch(c *gin.Context) {
	p := s.basePage(c, tabSearch)
	res := content.Search(s.snapshot(), p.Query)
	p.Search = &res
	s.render(c, http.StatusOK, p)
}

// modalRequest drives one request against a modal. GET shows the opened
// modal. POST applies the submitted action: cancel closes it without touching
// the store; refresh re-renders with the bound draft; anything else saves.
type modalRequest[T any] struct {
	modal   *Modal[T]
	bind    func(c *gin.Context, draft *T) error
	commit  func(T) error
	view    func(draft T, errMsg string) page
	back    string
	success string
}

func serveModal[T any](s *Server, c *gin.Context, req modalRequest[T]) {
	if c.Request.Method == http.MethodGet {
		s.render(c, http.StatusOK, req.view(req.modal.Draft(), ""))
		return
	}

	action := c.PostForm("action")
	if action == "cancel" {
		req.modal.Cancel()
		c.Redirect(http.StatusSeeOther, req.back)
		return
	}

	var bindErr error
	req.modal.Update(func(d *T) { bindErr = req.bind(c, d) })
	if bindErr != nil {
		s.render(c, http.StatusUnprocessableEntity, req.view(req.modal.Draft(), "The form could not be read: "+bindErr.Error()))
		return
	}
	if action == "refresh" {
		s.render(c, http.StatusOK, req.view(req.modal.Draft(), ""))
		return
	}

	err := req.modal.Save(req.commit)
	switch {
	case err == nil:
		setFlash(c, req.success, notify.SeverityNormal)
		c.Redirect(http.StatusSeeOther, req.back)
	case errors.Is(err, content.ErrInvalid):
		s.render(c, http.StatusUnprocessableEntity, req.view(req.modal.Draft(), userMessage(err)))
	case errors.Is(err, content.ErrNotFound):
		s.notFound(c)
	default:
		c.Error(err)
		s.render(c, http.StatusInternalServerError, req.view(req.modal.Draft(), "Saving failed"))
	}
}

func (s *Server) subjectModal(c *gin.Context) {
	id, ok := s.optionalID(c, "id")
	if !ok {
		return
	}
	m := NewModal[content.SubjectInput](nil)
	if id == 0 {
		m.Open(nil)
	} else {
		sub, found := s.snapshot().Subject(id)
		if !found {
			s.notFound(c)
			return
		}
		m.Open(&content.SubjectInput{Name: sub.Name, Description: sub.Description})
	}

	action, title := "/subjects/new", "Add New Subject"
	if m.Editing() {
		action, title = "/subjects/"+strconv.FormatInt(id, 10)+"/edit", "Edit Subject"
	}
	serveModal(s, c, modalRequest[content.SubjectInput]{
		modal: m,
		bind: func(c *gin.Context, d *content.SubjectInput) error {
			return c.ShouldBind(d)
		},
		commit: func(in content.SubjectInput) error {
			_, err := s.store.SaveSubject(in, id)
			return err
		},
		view: func(d content.SubjectInput, errMsg string) page {
			p := s.basePage(c, tabHome)
			p.Modal = &modalView{Kind: "subject", Title: title, Action: action, Editing: m.Editing(), Error: errMsg, Subject: d}
			return p
		},
		back:    "/",
		success: content.Message(content.EntitySubject, saveAction(id)),
	})
}

func (s *Server) chapterModal(c *gin.Context) {
	subjectID, ok := s.requireID(c, "id")
	if !ok {
		return
	}
	chapterID, ok := s.optionalID(c, "chapterId")
	if !ok {
		return
	}
	sub, found := s.snapshot().Subject(subjectID)
	if !found {
		s.notFound(c)
		return
	}

	m := NewModal[content.ChapterInput](nil)
	if chapterID == 0 {
		m.Open(nil)
	} else {
		ch, found := sub.Chapter(chapterID)
		if !found {
			s.notFound(c)
			return
		}
		m.Open(&content.ChapterInput{Name: ch.Name, Description: ch.Description})
	}

	base := "/subjects/" + strconv.FormatInt(subjectID, 10) + "/chapters/"
	action, title := base+"new", "Add New Chapter"
	if m.Editing() {
		action, title = base+strconv.FormatInt(chapterID, 10)+"/edit", "Edit Chapter"
	}
	serveModal(s, c, modalRequest[content.ChapterInput]{
		modal: m,
		bind: func(c *gin.Context, d *content.ChapterInput) error {
			return c.ShouldBind(d)
		},
		commit: func(in content.ChapterInput) error {
			_, err := s.store.SaveChapter(subjectID, in, chapterID)
			return err
		},
		view: func(d content.ChapterInput, errMsg string) page {
			p := s.basePage(c, tabHome)
			p.Modal = &modalView{Kind: "chapter", Title: title, Action: action, Editing: m.Editing(), Error: errMsg, Chapter: d, SubjectName: sub.Name}
			return p
		},
		back:    "/",
		success: content.Message(content.EntityChapter, saveAction(chapterID)),
	})
}

func (s *Server) quizModal(c *gin.Context) {
	id, ok := s.optionalID(c, "id")
	if !ok {
		return
	}
	m := NewModal(func() content.QuizInput { return content.QuizInput{Duration: 60} })
	if id == 0 {
		m.Open(nil)
	} else {
		q, found := s.snapshot().Quiz(id)
		if !found {
			s.notFound(c)
			return
		}
		m.Open(&content.QuizInput{
			Title:       q.Title,
			Description: q.Description,
			Duration:    q.Duration,
			SubjectID:   q.SubjectID,
			ChapterID:   q.ChapterID,
			Date:        q.Date,
		})
	}

	action, title := "/quizzes/new", "Create New Quiz"
	if m.Editing() {
		action, title = "/quizzes/"+strconv.FormatInt(id, 10)+"/edit", "Edit Quiz"
	}
	serveModal(s, c, modalRequest[content.QuizInput]{
		modal: m,
		bind:  bindQuiz,
		commit: func(in content.QuizInput) error {
			_, err := s.store.SaveQuiz(in, id)
			return err
		},
		view: func(d content.QuizInput, errMsg string) page {
			p := s.quizPage(c)
			mv := &modalView{Kind: "quiz", Title: title, Action: action, Editing: m.Editing(), Error: errMsg, Quiz: d, Subjects: p.Subjects}
			for _, sub := range p.Subjects {
				if sub.ID == d.SubjectID {
					mv.Chapters = sub.Chapters
				}
			}
			p.Modal = mv
			return p
		},
		back:    "/quiz",
		success: content.Message(content.EntityQuiz, saveAction(id)),
	})
}

// bindQuiz reads the quiz form. The form echoes the subject its chapter list
// was built for; picking another subject clears the chapter.
func bindQuiz(c *gin.Context, d *content.QuizInput) error {
	var form content.QuizInput
	if err := c.ShouldBind(&form); err != nil {
		return err
	}
	loaded, _ := strconv.ParseInt(c.PostForm("loaded_subject_id"), 10, 64)
	*d = form
	d.SubjectID = loaded
	d.SelectSubject(form.SubjectID)
	return nil
}

func (s *Server) deleteSubject(c *gin.Context) {
	id, ok := s.requireID(c, "id")
	if !ok {
		return
	}
	if s.store.DeleteSubject(id) {
		setFlash(c, content.Message(content.EntitySubject, content.ActionDeleted), notify.SeverityDestructive)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) deleteChapter(c *gin.Context) {
	subjectID, ok := s.requireID(c, "id")
	if !ok {
		return
	}
	chapterID, ok := s.requireID(c, "chapterId")
	if !ok {
		return
	}
	if s.store.DeleteChapter(subjectID, chapterID) {
		setFlash(c, content.Message(content.EntityChapter, content.ActionDeleted), notify.SeverityDestructive)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) deleteQuiz(c *gin.Context) {
	id, ok := s.requireID(c, "id")
	if !ok {
		return
	}
	if s.store.DeleteQuiz(id) {
		setFlash(c, content.Message(content.EntityQuiz, content.ActionDeleted), notify.SeverityDestructive)
	}
	c.Redirect(http.StatusSeeOther, "/quiz")
}

func (s *Server) toggleQuiz(c *gin.Context) {
	id, ok := s.requireID(c, "id")
	if !ok {
		return
	}
	q, found := s.snapshot().Quiz(id)
	if !found {
		s.notFound(c)
		return
	}
	updated, err := s.store.SetQuizActive(id, !q.IsActive)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			s.notFound(c)
			return
		}
		c.Error(err)
		c.String(http.StatusInternalServerError, "toggling quiz failed")
		return
	}
	action := content.ActionDeactivated
	if updated.IsActive {
		action = content.ActionActivated
	}
	setFlash(c, content.Message(content.EntityQuiz, action), notify.SeverityNormal)
	c.Redirect(http.StatusSeeOther, "/quiz")
}

// manageQuestions is a placeholder until quizzes carry questions.
func (s *Server) manageQuestions(c *gin.Context) {
	if _, ok := s.requireID(c, "id"); !ok {
		return
	}
	if s.notifier != nil {
		s.notifier.Notify(c.Request.Context(), notify.Notification{Message: questionsPending, Severity: notify.SeverityNormal})
	}
	setFlash(c, questionsPending, notify.SeverityNormal)
	c.Redirect(http.StatusSeeOther, "/quiz")
}

func (s *Server) notFound(c *gin.Context) {
	c.String(http.StatusNotFound, "not found")
}

// requireID parses a positive id path parameter, answering 400 otherwise.
func (s *Server) requireID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.String(http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// optionalID is requireID for routes shared by create and edit.
func (s *Server) optionalID(c *gin.Context, name string) (int64, bool) {
	if c.Param(name) == "" {
		return 0, true
	}
	return s.requireID(c, name)
}

func saveAction(existingID int64) content.Action {
	if existingID == 0 {
		return content.ActionCreated
	}
	return content.ActionUpdated
}

// userMessage strips the sentinel prefix from a validation error.
func userMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), content.ErrInvalid.Error()+": ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
