package dashboard_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-admin/internal/content"
	"github.com/p-n-ai/pai-admin/internal/dashboard"
)

func TestModal_OpenForCreateUsesDefaults(t *testing.T) {
	m := dashboard.NewModal(func() content.QuizInput { return content.QuizInput{Duration: 60} })
	if m.IsOpen() {
		t.Fatal("new modal should start closed")
	}

	m.Open(nil)

	if !m.IsOpen() || m.Editing() {
		t.Errorf("IsOpen() = %v, Editing() = %v, want open for create", m.IsOpen(), m.Editing())
	}
	if m.Draft().Duration != 60 {
		t.Errorf("Draft().Duration = %d, want default 60", m.Draft().Duration)
	}
}

func TestModal_OpenForEditCopiesTarget(t *testing.T) {
	target := content.SubjectInput{Name: "Physics", Description: "Mechanics"}
	m := dashboard.NewModal[content.SubjectInput](nil)

	m.Open(&target)
	m.Update(func(d *content.SubjectInput) { d.Name = "Chemistry" })

	if !m.Editing() {
		t.Error("Editing() = false, want true")
	}
	if m.Draft().Name != "Chemistry" {
		t.Errorf("Draft().Name = %q, want Chemistry", m.Draft().Name)
	}
	if target.Name != "Physics" {
		t.Errorf("target.Name = %q, editing the draft must not touch the target", target.Name)
	}
}

func TestModal_SaveFailureKeepsDraft(t *testing.T) {
	m := dashboard.NewModal[content.SubjectInput](nil)
	m.Open(nil)
	m.Update(func(d *content.SubjectInput) { d.Description = "kept" })

	wantErr := errors.New("rejected")
	err := m.Save(func(content.SubjectInput) error { return wantErr })

	if !errors.Is(err, wantErr) {
		t.Errorf("Save() error = %v, want %v", err, wantErr)
	}
	if !m.IsOpen() {
		t.Error("modal closed after a failed save")
	}
	if m.Draft().Description != "kept" {
		t.Errorf("Draft().Description = %q, want kept", m.Draft().Description)
	}
}

func TestModal_SaveSuccessCloses(t *testing.T) {
	m := dashboard.NewModal[content.ChapterInput](nil)
	m.Open(nil)
	m.Update(func(d *content.ChapterInput) { d.Name = "Optics" })

	var committed content.ChapterInput
	err := m.Save(func(in content.ChapterInput) error {
		committed = in
		return nil
	})

	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if committed.Name != "Optics" {
		t.Errorf("committed %+v, want the draft", committed)
	}
	if m.IsOpen() {
		t.Error("modal still open after a successful save")
	}
	if m.Draft() != (content.ChapterInput{}) {
		t.Errorf("Draft() = %+v, want cleared", m.Draft())
	}
}

func TestModal_CancelNeverCommits(t *testing.T) {
	m := dashboard.NewModal[content.SubjectInput](nil)
	m.Open(&content.SubjectInput{Name: "Physics"})
	m.Update(func(d *content.SubjectInput) { d.Name = "" })

	m.Cancel()

	if m.IsOpen() {
		t.Error("modal still open after Cancel")
	}
	called := false
	err := m.Save(func(content.SubjectInput) error {
		called = true
		return nil
	})
	if !errors.Is(err, dashboard.ErrModalClosed) {
		t.Errorf("Save() after Cancel error = %v, want ErrModalClosed", err)
	}
	if called {
		t.Error("commit called on a closed modal")
	}
}

func TestModal_UpdateWhileClosedIsIgnored(t *testing.T) {
	m := dashboard.NewModal[content.SubjectInput](nil)
	m.Update(func(d *content.SubjectInput) { d.Name = "ghost" })

	if m.Draft().Name != "" {
		t.Errorf("Draft().Name = %q, want empty", m.Draft().Name)
	}
}
