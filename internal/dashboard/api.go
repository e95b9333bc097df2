package dashboard

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-admin/internal/content"
	"github.com/p-n-ai/pai-admin/internal/export"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 200
)

func (s *Server) registerAPI(api *gin.RouterGroup) {
	api.GET("/subjects", s.apiListSubjects)
	api.POST("/subjects", s.apiSaveSubject)
	api.GET("/subjects/:id", s.apiGetSubject)
	api.PUT("/subjects/:id", s.apiSaveSubject)
	api.DELETE("/subjects/:id", s.apiDeleteSubject)
	api.POST("/subjects/:id/chapters", s.apiSaveChapter)
	api.PUT("/subjects/:id/chapters/:chapterId", s.apiSaveChapter)
	api.DELETE("/subjects/:id/chapters/:chapterId", s.apiDeleteChapter)

	api.GET("/quizzes", s.apiListQuizzes)
	api.POST("/quizzes", s.apiSaveQuiz)
	api.GET("/quizzes/:id", s.apiGetQuiz)
	api.PUT("/quizzes/:id", s.apiSaveQuiz)
	api.PATCH("/quizzes/:id/active", s.apiSetQuizActive)
	api.DELETE("/quizzes/:id", s.apiDeleteQuiz)

	api.GET("/stats", s.apiStats)
	api.GET("/search", s.apiSearch)
	api.GET("/activity", s.apiActivity)
	api.GET("/export/quizzes.xlsx", s.apiExportQuizzes)
}

// GET /api/v1/subjects
func (s *Server) apiListSubjects(c *gin.Context) {
	writeJSONWithETag(c, s.store.ListSubjects())
}

// GET /api/v1/subjects/:id
func (s *Server) apiGetSubject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, found := s.store.Subject(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("subject %d not found", id)})
		return
	}
	writeJSONWithETag(c, sub)
}

// POST /api/v1/subjects, PUT /api/v1/subjects/:id
func (s *Server) apiSaveSubject(c *gin.Context) {
	existingID, ok := optionalPathID(c, "id")
	if !ok {
		return
	}
	var in content.SubjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	sub, err := s.store.SaveSubject(in, existingID)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(saveStatus(existingID), sub)
}

// DELETE /api/v1/subjects/:id
func (s *Server) apiDeleteSubject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.store.DeleteSubject(id)
	c.Status(http.StatusNoContent)
}

// POST /api/v1/subjects/:id/chapters, PUT /api/v1/subjects/:id/chapters/:chapterId
func (s *Server) apiSaveChapter(c *gin.Context) {
	subjectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	existingID, ok := optionalPathID(c, "chapterId")
	if !ok {
		return
	}
	var in content.ChapterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	ch, err := s.store.SaveChapter(subjectID, in, existingID)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(saveStatus(existingID), ch)
}

// DELETE /api/v1/subjects/:id/chapters/:chapterId
func (s *Server) apiDeleteChapter(c *gin.Context) {
	subjectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	chapterID, ok := pathID(c, "chapterId")
	if !ok {
		return
	}
	s.store.DeleteChapter(subjectID, chapterID)
	c.Status(http.StatusNoContent)
}

// GET /api/v1/quizzes?subject=
func (s *Server) apiListQuizzes(c *gin.Context) {
	views := content.ResolveQuizzes(s.store.Snapshot())
	writeJSONWithETag(c, content.FilterQuizzes(views, c.Query("subject")))
}

// GET /api/v1/quizzes/:id
func (s *Server) apiGetQuiz(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	snap := s.store.Snapshot()
	q, found := snap.Quiz(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("quiz %d not found", id)})
		return
	}
	writeJSONWithETag(c, content.ResolveQuiz(snap, q))
}

// POST /api/v1/quizzes, PUT /api/v1/quizzes/:id
func (s *Server) apiSaveQuiz(c *gin.Context) {
	existingID, ok := optionalPathID(c, "id")
	if !ok {
		return
	}
	var in content.QuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	q, err := s.store.SaveQuiz(in, existingID)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(saveStatus(existingID), q)
}

type activeRequest struct {
	Active *bool `json:"active"`
}

// PATCH /api/v1/quizzes/:id/active
func (s *Server) apiSetQuizActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `body must be {"active": true|false}`})
		return
	}
	q, err := s.store.SetQuizActive(id, *req.Active)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// DELETE /api/v1/quizzes/:id
func (s *Server) apiDeleteQuiz(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.store.DeleteQuiz(id)
	c.Status(http.StatusNoContent)
}

// GET /api/v1/stats
func (s *Server) apiStats(c *gin.Context) {
	c.JSON(http.StatusOK, content.ComputeStats(s.store.Snapshot()))
}

// GET /api/v1/search?q=
func (s *Server) apiSearch(c *gin.Context) {
	c.JSON(http.StatusOK, content.Search(s.store.Snapshot(), c.Query("q")))
}

// GET /api/v1/activity?limit=
func (s *Server) apiActivity(c *gin.Context) {
	if s.activity == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "activity log is not enabled"})
		return
	}
	limit := defaultActivityLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxActivityLimit)
	}
	events, err := s.activity.Recent(limit)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reading activity failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GET /api/v1/export/quizzes.xlsx?subject=
func (s *Server) apiExportQuizzes(c *gin.Context) {
	subject := c.Query("subject")
	var buf bytes.Buffer
	if err := export.WriteQuizzes(&buf, s.store.Snapshot(), subject); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(subject)))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// writeJSONWithETag answers 304 when the client already holds this payload.
func writeJSONWithETag(c *gin.Context, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encoding response failed"})
		return
	}
	tag := etag(body)
	c.Header("ETag", tag)
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func etag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func apiError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, content.ErrInvalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": userMessage(err)})
	case errors.Is(err, content.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func saveStatus(existingID int64) int {
	if existingID == 0 {
		return http.StatusCreated
	}
	return http.StatusOK
}

// pathID parses a positive id path parameter, answering 400 when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return id, true
}

// optionalPathID is pathID for routes shared by create (no parameter) and update.
func optionalPathID(c *gin.Context, name string) (int64, bool) {
	if c.Param(name) == "" {
		return 0, true
	}
	return pathID(c, name)
}
