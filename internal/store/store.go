package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/scangrade/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_name TEXT NOT NULL,
		course_code TEXT NOT NULL,
		key_text TEXT NOT NULL,
		num_questions INTEGER NOT NULL,
		scale REAL NOT NULL DEFAULT 20,
		pass_mark REAL NOT NULL DEFAULT 14,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exam_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		filename TEXT NOT NULL,
		score REAL NOT NULL,
		correct INTEGER NOT NULL,
		incorrect INTEGER NOT NULL,
		answers TEXT NOT NULL DEFAULT '{}',
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS run_warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		reason TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRun stores a run together with its results and warnings in one
// transaction and returns the run ID.
func (s *Store) CreateRun(run model.Run, results []model.ExamResult, warnings []model.Warning) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := tx.Exec(
		`INSERT INTO runs (course_name, course_code, key_text, num_questions, scale, pass_mark, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.CourseName, run.CourseCode, run.KeyText, run.NumQuestions, run.Scale, run.PassMark, createdAt,
	)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, r := range results {
		answers, err := json.Marshal(r.Answers)
		if err != nil {
			return 0, fmt.Errorf("marshal answers for %s: %w", r.Filename, err)
		}
		_, err = tx.Exec(
			`INSERT INTO exam_results (run_id, position, filename, score, correct, incorrect, answers)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, r.Position, r.Filename, r.Score, r.Correct, r.Incorrect, string(answers),
		)
		if err != nil {
			return 0, err
		}
	}

	for _, w := range warnings {
		_, err := tx.Exec(
			`INSERT INTO run_warnings (run_id, filename, reason) VALUES (?, ?, ?)`,
			runID, w.Filename, w.Reason,
		)
		if err != nil {
			return 0, err
		}
	}

	return runID, tx.Commit()
}

// GetRun returns a run by ID.
func (s *Store) GetRun(id int64) (model.Run, error) {
	var r model.Run
	err := s.db.QueryRow(
		`SELECT id, course_name, course_code, key_text, num_questions, scale, pass_mark, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.CourseName, &r.CourseCode, &r.KeyText, &r.NumQuestions, &r.Scale, &r.PassMark, &r.CreatedAt)
	return r, err
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]model.Run, error) {
	rows, err := s.db.Query(
		`SELECT id, course_name, course_code, key_text, num_questions, scale, pass_mark, created_at
		 FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.CourseName, &r.CourseCode, &r.KeyText, &r.NumQuestions, &r.Scale, &r.PassMark, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetResults returns a run's exam results in upload order.
func (s *Store) GetResults(runID int64) ([]model.ExamResult, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, position, filename, score, correct, incorrect, answers
		 FROM exam_results WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.ExamResult
	for rows.Next() {
		var r model.ExamResult
		var answers string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Position, &r.Filename, &r.Score, &r.Correct, &r.Incorrect, &answers); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers for result %d: %w", r.ID, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetWarnings returns the warnings recorded for a run.
func (s *Store) GetWarnings(runID int64) ([]model.Warning, error) {
	rows, err := s.db.Query(
		`SELECT filename, reason FROM run_warnings WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var warnings []model.Warning
	for rows.Next() {
		var w model.Warning
		if err := rows.Scan(&w.Filename, &w.Reason); err != nil {
			return nil, err
		}
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}

// GetRunView builds a full view of a run with results and warnings.
func (s *Store) GetRunView(id int64) (*model.RunView, error) {
	run, err := s.GetRun(id)
	if err != nil {
		return nil, err
	}
	results, err := s.GetResults(id)
	if err != nil {
		return nil, err
	}
	warnings, err := s.GetWarnings(id)
	if err != nil {
		return nil, err
	}
	return &model.RunView{Run: run, Results: results, Warnings: warnings}, nil
}

// RunCount returns the number of stored runs.
func (s *Store) RunCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}
