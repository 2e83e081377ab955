// Package answerkey parses the instructor-supplied answer key.
//
// The key format is a comma-separated list of <question>:<token> pairs,
// e.g. "1:a, 2:d, 3:v". Tokens are lowercased and trimmed but not checked
// against the token domain here; legality is enforced at grading and
// extraction time.
package answerkey

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pavelanni/scangrade/internal/model"
)

// Key maps a question number to its correct answer token.
type Key map[int]string

// Parse parses a key string. An empty input yields an empty key and no
// error; callers must treat an empty key as "no key available". Any
// non-empty item without a colon or with a non-integer question number
// fails the whole parse: a partially loaded key is never returned.
func Parse(s string) (Key, error) {
	key := make(Key)
	if strings.TrimSpace(s) == "" {
		return key, nil
	}

	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		num, token, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("item %q: missing ':'", item)
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return nil, fmt.Errorf("item %q: question number is not an integer", item)
		}
		key[n] = strings.ToLower(strings.TrimSpace(token))
	}
	return key, nil
}

// Validate reports the first token in the key that is outside the accepted
// domain, or nil if all tokens are valid.
func (k Key) Validate() error {
	for q, t := range k {
		if !model.ValidToken(t) {
			return fmt.Errorf("question %d: invalid token %q", q, t)
		}
	}
	return nil
}
