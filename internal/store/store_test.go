package store

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pavelanni/scangrade/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun() (model.Run, []model.ExamResult, []model.Warning) {
	run := model.Run{
		CourseName:   "Advanced Mathematics",
		CourseCode:   "MAT-301",
		KeyText:      "1:a, 2:b, 3:v",
		NumQuestions: 3,
		Scale:        20,
		PassMark:     14,
		CreatedAt:    time.Now(),
	}
	results := []model.ExamResult{
		{Position: 0, Filename: "alice.pdf", Score: 20, Correct: 3, Incorrect: 0,
			Answers: model.AnswerSet{1: "a", 2: "b", 3: "v"}},
		{Position: 1, Filename: "bob.pdf", Score: 6.67, Correct: 1, Incorrect: 2,
			Answers: model.AnswerSet{1: "a", 3: "f"}},
	}
	warnings := []model.Warning{
		{Filename: "broken.pdf", Reason: "open PDF: not a PDF"},
	}
	return run, results, warnings
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	run, results, warnings := testRun()

	id, err := s.CreateRun(run, results, warnings)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero run ID")
	}

	got, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.CourseName != run.CourseName || got.CourseCode != run.CourseCode {
		t.Errorf("course metadata mismatch: %+v", got)
	}
	if got.NumQuestions != 3 || got.Scale != 20 || got.PassMark != 14 {
		t.Errorf("run parameters mismatch: %+v", got)
	}

	// Not found.
	_, err = s.GetRun(9999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestGetResultsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	run, results, warnings := testRun()

	id, err := s.CreateRun(run, results, warnings)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetResults(id)
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Filename != "alice.pdf" || got[1].Filename != "bob.pdf" {
		t.Errorf("results out of upload order: %q, %q", got[0].Filename, got[1].Filename)
	}
	if !reflect.DeepEqual(got[1].Answers, model.AnswerSet{1: "a", 3: "f"}) {
		t.Errorf("answer set did not round-trip: %v", got[1].Answers)
	}
	if got[0].Score != 20 || got[1].Score != 6.67 {
		t.Errorf("scores did not round-trip: %v, %v", got[0].Score, got[1].Score)
	}
}

func TestGetWarnings(t *testing.T) {
	s := newTestStore(t)
	run, results, warnings := testRun()

	id, err := s.CreateRun(run, results, warnings)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetWarnings(id)
	if err != nil {
		t.Fatalf("GetWarnings: %v", err)
	}
	if len(got) != 1 || got[0].Filename != "broken.pdf" {
		t.Errorf("warnings did not round-trip: %v", got)
	}
}

func TestGetRunView(t *testing.T) {
	s := newTestStore(t)
	run, results, warnings := testRun()

	id, err := s.CreateRun(run, results, warnings)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	view, err := s.GetRunView(id)
	if err != nil {
		t.Fatalf("GetRunView: %v", err)
	}
	if view.Run.ID != id {
		t.Errorf("view run ID = %d, want %d", view.Run.ID, id)
	}
	if len(view.Results) != 2 || len(view.Warnings) != 1 {
		t.Errorf("view has %d results, %d warnings; want 2, 1", len(view.Results), len(view.Warnings))
	}
}

func TestListRunsAndExport(t *testing.T) {
	s := newTestStore(t)

	count, err := s.RunCount()
	if err != nil {
		t.Fatalf("RunCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 runs, got %d", count)
	}

	run, results, warnings := testRun()
	if _, err := s.CreateRun(run, results, warnings); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	run.CourseCode = "MAT-302"
	if _, err := s.CreateRun(run, nil, nil); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	// Newest first.
	if runs[0].CourseCode != "MAT-302" {
		t.Errorf("runs[0].CourseCode = %q, want MAT-302", runs[0].CourseCode)
	}

	views, err := s.ExportAllRuns()
	if err != nil {
		t.Fatalf("ExportAllRuns: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if len(views[1].Results) != 2 {
		t.Errorf("oldest run should carry 2 results, got %d", len(views[1].Results))
	}
}
