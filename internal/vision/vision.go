// Package vision issues answer-extraction requests against a
// vision-capable model, one call per page image. Backends return the
// model's raw text reply; interpreting it is the sanitizer's job.
package vision

import "context"

// Extractor sends one page image to a vision model and returns the raw
// text reply.
type Extractor interface {
	ExtractAnswers(ctx context.Context, pageJPEG []byte) (string, error)
}
