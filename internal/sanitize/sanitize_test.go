package sanitize

import (
	"reflect"
	"testing"

	"github.com/pavelanni/scangrade/internal/model"
)

func TestParseAnswers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want model.AnswerSet
	}{
		{
			"plain object",
			`{"1": "a", "2": "d"}`,
			model.AnswerSet{1: "a", 2: "d"},
		},
		{
			"fenced with validation",
			"```json\n{\"1\":\"A\",\"2\":\"z\",\"x\":\"b\"}\n```",
			model.AnswerSet{1: "a"},
		},
		{
			"no braces",
			"no answers found",
			model.AnswerSet{},
		},
		{
			"empty object",
			"{}",
			model.AnswerSet{},
		},
		{
			"empty string",
			"",
			model.AnswerSet{},
		},
		{
			"prose around object",
			`Here are the answers: {"3": "v", "4": "f"} as requested.`,
			model.AnswerSet{3: "v", 4: "f"},
		},
		{
			"value lowercased and trimmed",
			`{"7": " C "}`,
			model.AnswerSet{7: "c"},
		},
		{
			"non-string value dropped",
			`{"1": 2, "3": "b"}`,
			model.AnswerSet{3: "b"},
		},
		{
			"multi-letter token dropped",
			`{"1": "ab"}`,
			model.AnswerSet{},
		},
		{
			"malformed json inside braces",
			`{"1": "a",}`,
			model.AnswerSet{},
		},
		{
			"first object wins",
			`{"1": "a"} {"2": "b"}`,
			model.AnswerSet{1: "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAnswers(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAnswers(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{}\n```", "{}"},
		{"bare fence", "```\n{}\n```", "{}"},
		{"no fence", `{"1":"a"}`, `{"1":"a"}`},
		{"surrounding space", "  {} \n", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
