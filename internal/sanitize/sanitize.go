// Package sanitize turns the raw text reply of a vision model into a
// validated partial answer set. Model output is untrusted: anything that
// does not parse degrades to fewer detected answers, never to an error.
package sanitize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/pavelanni/scangrade/internal/model"
)

// The instructed output is a flat object, so a single-level non-greedy
// match is enough to locate it.
var objectRe = regexp.MustCompile(`\{[^{}]*\}`)

// StripCodeFences removes markdown code fence markup the model may wrap
// its reply in.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseAnswers extracts a partial answer set from one page's raw model
// reply. Pairs with non-integer keys, non-string values, or tokens outside
// the accepted domain are dropped silently. A reply with no parseable
// object yields an empty set.
func ParseAnswers(raw string) model.AnswerSet {
	answers := make(model.AnswerSet)

	match := objectRe.FindString(StripCodeFences(raw))
	if match == "" {
		return answers
	}

	var pairs map[string]any
	if err := json.Unmarshal([]byte(match), &pairs); err != nil {
		return answers
	}

	for k, v := range pairs {
		num, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		token := strings.ToLower(strings.TrimSpace(s))
		if !model.ValidToken(token) {
			continue
		}
		answers[num] = token
	}
	return answers
}
