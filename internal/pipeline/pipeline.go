// Package pipeline runs the extraction-and-grading flow over a batch of
// uploaded exams. Failures are isolated: a bad page contributes zero
// answers, a bad file excludes that exam, and nothing short of
// cancellation stops the rest of the batch.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pavelanni/scangrade/internal/answerkey"
	"github.com/pavelanni/scangrade/internal/grade"
	"github.com/pavelanni/scangrade/internal/model"
	"github.com/pavelanni/scangrade/internal/raster"
	"github.com/pavelanni/scangrade/internal/sanitize"
	"github.com/pavelanni/scangrade/internal/vision"
)

// DefaultCallTimeout bounds each individual vision call.
const DefaultCallTimeout = 60 * time.Second

// MaxUploads is how many exams a single batch may carry. Enforced at the
// upload boundary, not here.
const MaxUploads = 30

// PageRenderer turns PDF bytes into ordered page images.
type PageRenderer interface {
	Pages(data []byte, pageCap int) ([][]byte, error)
}

// Exam is one uploaded PDF identified by its original filename.
type Exam struct {
	Filename string
	Data     []byte
}

// ProgressFunc is called after each exam finishes, in upload order.
type ProgressFunc func(done, total int, filename string)

// Config holds pipeline tunables; zero values fall back to the defaults.
type Config struct {
	PageCap     int
	Scale       float64
	CallTimeout time.Duration
}

// Pipeline processes batches of exams against a shared answer key.
type Pipeline struct {
	renderer  PageRenderer
	extractor vision.Extractor
	cfg       Config
}

// New creates a pipeline around a renderer and an extractor.
func New(renderer PageRenderer, extractor vision.Extractor, cfg Config) *Pipeline {
	if cfg.PageCap <= 0 {
		cfg.PageCap = raster.DefaultPageCap
	}
	if cfg.Scale <= 0 {
		cfg.Scale = grade.DefaultScale
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Pipeline{renderer: renderer, extractor: extractor, cfg: cfg}
}

// Run processes every exam sequentially, in upload order, against the
// shared key. Exams whose bytes cannot be rasterized are excluded and
// reported as warnings; failed or timed-out page extractions count as
// zero answers for that page. Cancellation is honored between exams and
// returns the results accumulated so far along with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, key answerkey.Key, exams []Exam, progress ProgressFunc) ([]model.ExamResult, []model.Warning, error) {
	results := make([]model.ExamResult, 0, len(exams))
	var warnings []model.Warning

	total := len(exams)
	for i, exam := range exams {
		if err := ctx.Err(); err != nil {
			return results, warnings, err
		}

		pages, err := p.renderer.Pages(exam.Data, p.cfg.PageCap)
		if err != nil {
			slog.Warn("excluding exam: rasterization failed",
				"file", exam.Filename, "error", err)
			warnings = append(warnings, model.Warning{Filename: exam.Filename, Reason: err.Error()})
			if progress != nil {
				progress(i+1, total, exam.Filename)
			}
			continue
		}

		partials := make([]model.AnswerSet, len(pages))
		for pageNo, img := range pages {
			raw, err := p.extractPage(ctx, img)
			if err != nil {
				slog.Warn("page extraction failed, counting zero answers",
					"file", exam.Filename, "page", pageNo+1, "error", err)
				partials[pageNo] = model.AnswerSet{}
				continue
			}
			slog.Debug("page extracted", "file", exam.Filename, "page", pageNo+1, "raw", raw)
			partials[pageNo] = sanitize.ParseAnswers(raw)
		}

		answers := grade.Merge(partials)
		score, correct, incorrect := grade.Grade(answers, key, p.cfg.Scale)
		results = append(results, model.ExamResult{
			Position:  i,
			Filename:  exam.Filename,
			Score:     score,
			Correct:   correct,
			Incorrect: incorrect,
			Answers:   answers,
		})

		if progress != nil {
			progress(i+1, total, exam.Filename)
		}
	}

	return results, warnings, nil
}

func (p *Pipeline) extractPage(ctx context.Context, img []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.extractor.ExtractAnswers(callCtx, img)
}
