// Package seed loads the initial dashboard content from YAML.
package seed

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-admin/internal/content"
)

//go:embed default.yaml
var defaultSeed []byte

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

type document struct {
	Subjects []subjectDoc `yaml:"subjects"`
	Quizzes  []quizDoc    `yaml:"quizzes"`
}

type subjectDoc struct {
	ID          int64        `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Chapters    []chapterDoc `yaml:"chapters"`
}

type chapterDoc struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type quizDoc struct {
	ID          int64  `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Duration    int    `yaml:"duration"`
	SubjectID   int64  `yaml:"subject_id"`
	ChapterID   int64  `yaml:"chapter_id"`
	Questions   int    `yaml:"questions"`
	Active      *bool  `yaml:"active"`
	CreatedAt   string `yaml:"created_at"`
	Date        string `yaml:"date"`
}

// Default returns the built-in demo content.
func Default() (content.Snapshot, error) {
	return Parse(defaultSeed, time.Now())
}

// Load reads a seed file. An empty path loads the built-in demo content.
func Load(path string) (content.Snapshot, error) {
	if path == "" {
		snap, err := Default()
		if err != nil {
			return content.Snapshot{}, fmt.Errorf("loading default seed: %w", err)
		}
		slog.Info("seed loaded", "source", "default", "subjects", len(snap.Subjects), "quizzes", len(snap.Quizzes))
		return snap, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return content.Snapshot{}, fmt.Errorf("reading seed: %w", err)
	}
	snap, err := Parse(data, time.Now())
	if err != nil {
		return content.Snapshot{}, fmt.Errorf("loading seed %s: %w", path, err)
	}
	slog.Info("seed loaded", "source", path, "subjects", len(snap.Subjects), "quizzes", len(snap.Quizzes))
	return snap, nil
}

// Parse validates a YAML seed document and converts it into a snapshot.
// Quizzes without created_at are dated now.
func Parse(data []byte, now time.Time) (content.Snapshot, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return content.Snapshot{}, fmt.Errorf("parsing YAML: %w", err)
	}
	if raw == nil {
		return content.Snapshot{}, fmt.Errorf("seed document is empty")
	}
	if err := validateSchema(raw); err != nil {
		return content.Snapshot{}, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return content.Snapshot{}, fmt.Errorf("decoding seed: %w", err)
	}
	if err := checkIDs(doc); err != nil {
		return content.Snapshot{}, err
	}
	return doc.snapshot(now)
}

func validateSchema(raw any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validating seed: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("seed does not match schema: %s", strings.Join(msgs, "; "))
}

func checkIDs(doc document) error {
	subjects := make(map[int64]bool)
	for _, s := range doc.Subjects {
		if subjects[s.ID] {
			return fmt.Errorf("duplicate subject id %d", s.ID)
		}
		subjects[s.ID] = true

		chapters := make(map[int64]bool)
		for _, c := range s.Chapters {
			if chapters[c.ID] {
				return fmt.Errorf("duplicate chapter id %d in subject %d", c.ID, s.ID)
			}
			chapters[c.ID] = true
		}
	}

	quizzes := make(map[int64]bool)
	for _, q := range doc.Quizzes {
		if quizzes[q.ID] {
			return fmt.Errorf("duplicate quiz id %d", q.ID)
		}
		quizzes[q.ID] = true
	}
	return nil
}

func (d document) snapshot(now time.Time) (content.Snapshot, error) {
	snap := content.Snapshot{
		Subjects: make([]content.Subject, 0, len(d.Subjects)),
		Quizzes:  make([]content.Quiz, 0, len(d.Quizzes)),
	}

	for _, s := range d.Subjects {
		sub := content.Subject{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Slug:        slug.Make(s.Name),
			Chapters:    make([]content.Chapter, 0, len(s.Chapters)),
		}
		for _, c := range s.Chapters {
			sub.Chapters = append(sub.Chapters, content.Chapter{ID: c.ID, Name: c.Name, Description: c.Description})
		}
		snap.Subjects = append(snap.Subjects, sub)
	}

	for _, q := range d.Quizzes {
		created, err := day(q.CreatedAt, now)
		if err != nil {
			return content.Snapshot{}, fmt.Errorf("quiz %d created_at: %w", q.ID, err)
		}
		var scheduled string
		if q.Date != "" {
			if scheduled, err = day(q.Date, now); err != nil {
				return content.Snapshot{}, fmt.Errorf("quiz %d date: %w", q.ID, err)
			}
		}
		active := true
		if q.Active != nil {
			active = *q.Active
		}
		snap.Quizzes = append(snap.Quizzes, content.Quiz{
			ID:          q.ID,
			Title:       q.Title,
			Description: q.Description,
			Duration:    q.Duration,
			SubjectID:   q.SubjectID,
			ChapterID:   q.ChapterID,
			Questions:   q.Questions,
			IsActive:    active,
			CreatedAt:   created,
			Date:        scheduled,
		})
	}
	return snap, nil
}

// day normalises a YAML date to YYYY-MM-DD; empty means now.
func day(v string, now time.Time) (string, error) {
	if v == "" {
		return now.Format(content.DateLayout), nil
	}
	if len(v) > len(content.DateLayout) {
		v = v[:len(content.DateLayout)]
	}
	t, err := time.Parse(content.DateLayout, v)
	if err != nil {
		return "", err
	}
	return t.Format(content.DateLayout), nil
}
