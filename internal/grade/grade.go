// Package grade merges per-page answer sets and scores them against a key.
package grade

import (
	"log/slog"
	"math"

	"github.com/pavelanni/scangrade/internal/answerkey"
	"github.com/pavelanni/scangrade/internal/model"
)

// DefaultScale is the grading scale the score is computed on.
const DefaultScale = 20

// Merge folds per-page partial answer sets, in page order, into one
// per-exam set. When the same question is detected on more than one page
// the later page wins.
func Merge(pages []model.AnswerSet) model.AnswerSet {
	merged := make(model.AnswerSet)
	for i, page := range pages {
		for q, token := range page {
			if prev, ok := merged[q]; ok && prev != token {
				slog.Debug("conflicting detection overwritten",
					"question", q, "previous", prev, "token", token, "page", i+1)
			}
			merged[q] = token
		}
	}
	return merged
}

// Grade compares an exam's merged answers to the key. Only questions
// present in the key are counted; extra detected answers contribute
// nothing. A correct answer is an exact token match. With an empty key
// the score and both counts are zero.
func Grade(answers model.AnswerSet, key answerkey.Key, scale float64) (score float64, correct, incorrect int) {
	total := len(key)
	if total == 0 {
		return 0, 0, 0
	}
	for q, want := range key {
		if got, ok := answers[q]; ok && got == want {
			correct++
		}
	}
	incorrect = total - correct
	score = round2(float64(correct) / float64(total) * scale)
	return score, correct, incorrect
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
