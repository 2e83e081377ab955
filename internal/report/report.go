// Package report aggregates batch results into the statistics consumed by
// the reporting collaborator.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/pavelanni/scangrade/internal/model"
)

// DefaultPassMark is the passing threshold on the 0-20 scale.
const DefaultPassMark = 14

// Status marks a result as passing or failing at the run's pass mark.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Row is one exam result annotated with its pass/fail status.
type Row struct {
	model.ExamResult
	Status Status `json:"status"`
}

// Summary holds aggregate statistics for one run.
type Summary struct {
	Exams    int      `json:"exams"`
	Mean     float64  `json:"mean"`
	PassMean *float64 `json:"pass_mean,omitempty"`
	Max      float64  `json:"max"`
	Min      float64  `json:"min"`
	Passed   int      `json:"passed"`
	Failed   int      `json:"failed"`
	PassRate float64  `json:"pass_rate"`
	FailRate float64  `json:"fail_rate"`
	PassMark float64  `json:"pass_mark"`
}

// Report is the full result payload for one run.
type Report struct {
	CourseName     string          `json:"course_name"`
	CourseCode     string          `json:"course_code"`
	GeneratedAt    time.Time       `json:"generated_at"`
	TotalQuestions int             `json:"total_questions"`
	Summary        Summary         `json:"summary"`
	Results        []Row           `json:"results"`
	Warnings       []model.Warning `json:"warnings,omitempty"`
}

// Build assembles the report for a run, preserving upload order in the
// result rows.
func Build(run model.Run, results []model.ExamResult, warnings []model.Warning) Report {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, Row{ExamResult: r, Status: statusOf(r.Score, run.PassMark)})
	}
	return Report{
		CourseName:     run.CourseName,
		CourseCode:     run.CourseCode,
		GeneratedAt:    run.CreatedAt,
		TotalQuestions: run.NumQuestions,
		Summary:        Summarize(results, run.PassMark),
		Results:        rows,
		Warnings:       warnings,
	}
}

// Summarize computes aggregate statistics at the given pass mark. An
// empty result list yields a zero summary.
func Summarize(results []model.ExamResult, passMark float64) Summary {
	s := Summary{Exams: len(results), PassMark: passMark}
	if len(results) == 0 {
		return s
	}

	var sum, passSum float64
	s.Max = results[0].Score
	s.Min = results[0].Score
	for _, r := range results {
		sum += r.Score
		if r.Score > s.Max {
			s.Max = r.Score
		}
		if r.Score < s.Min {
			s.Min = r.Score
		}
		if r.Score >= passMark {
			s.Passed++
			passSum += r.Score
		}
	}
	s.Failed = s.Exams - s.Passed
	s.Mean = round2(sum / float64(s.Exams))
	s.PassRate = round2(float64(s.Passed) / float64(s.Exams) * 100)
	s.FailRate = round2(float64(s.Failed) / float64(s.Exams) * 100)
	if s.Passed > 0 {
		m := round2(passSum / float64(s.Passed))
		s.PassMean = &m
	}
	return s
}

// WriteCSV writes the per-exam table as CSV, one row per result in upload
// order.
func WriteCSV(w io.Writer, results []model.ExamResult, passMark float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"position", "filename", "correct", "incorrect", "score", "status"}); err != nil {
		return err
	}
	for _, r := range results {
		rec := []string{
			fmt.Sprintf("%d", r.Position+1),
			r.Filename,
			fmt.Sprintf("%d", r.Correct),
			fmt.Sprintf("%d", r.Incorrect),
			fmt.Sprintf("%.2f", r.Score),
			string(statusOf(r.Score, passMark)),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func statusOf(score, passMark float64) Status {
	if score >= passMark {
		return StatusPass
	}
	return StatusFail
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
