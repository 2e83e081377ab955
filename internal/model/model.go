package model

import "time"

// AnswerSet maps a question number to the marked answer token.
// Keys of a per-page set come from a single page; keys of a per-exam set
// are the merge of all pages.
type AnswerSet map[int]string

// Answer tokens accepted by the grader: a-e for multiple choice,
// v/f for true/false.
var validTokens = map[string]bool{
	"a": true, "b": true, "c": true, "d": true, "e": true,
	"v": true, "f": true,
}

// ValidToken reports whether s is one of the seven accepted answer tokens.
// Callers are expected to lowercase and trim s first.
func ValidToken(s string) bool {
	return validTokens[s]
}

// ExamResult is the graded outcome of a single uploaded exam.
type ExamResult struct {
	ID        int64     `json:"id,omitempty"`
	RunID     int64     `json:"run_id,omitempty"`
	Position  int       `json:"position"`
	Filename  string    `json:"filename"`
	Score     float64   `json:"score"`
	Correct   int       `json:"correct"`
	Incorrect int       `json:"incorrect"`
	Answers   AnswerSet `json:"answers"`
}

// Warning records an exam that was excluded from a batch, with the reason.
type Warning struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Run holds the metadata of one grading run.
type Run struct {
	ID           int64     `json:"id"`
	CourseName   string    `json:"course_name"`
	CourseCode   string    `json:"course_code"`
	KeyText      string    `json:"key_text"`
	NumQuestions int       `json:"num_questions"`
	Scale        float64   `json:"scale"`
	PassMark     float64   `json:"pass_mark"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunView combines a run with its results and warnings for display and export.
type RunView struct {
	Run      Run          `json:"run"`
	Results  []ExamResult `json:"results"`
	Warnings []Warning    `json:"warnings,omitempty"`
}
