package answerkey

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Key
	}{
		{"basic", "1:a, 2:d, 3:v", Key{1: "a", 2: "d", 3: "v"}},
		{"empty input", "", Key{}},
		{"whitespace only", "   ", Key{}},
		{"whitespace tolerant", "  1 : a ,2:  b  ", Key{1: "a", 2: "b"}},
		{"uppercase normalized", "1:A, 2:V", Key{1: "a", 2: "v"}},
		{"trailing comma", "1:a, 2:b,", Key{1: "a", 2: "b"}},
		{"duplicate number keeps last", "1:a, 1:b", Key{1: "b"}},
		{"token not domain checked", "1:z", Key{1: "z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing colon", "1a"},
		{"missing colon in later item", "1:a, 2b"},
		{"non-integer number", "one:a"},
		{"float number", "1.5:a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", tt.input, got)
			}
			if got != nil {
				t.Errorf("Parse(%q) returned a partial key %v alongside an error", tt.input, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := (Key{1: "a", 2: "v", 3: "f"}).Validate(); err != nil {
		t.Errorf("Validate of valid key: %v", err)
	}
	if err := (Key{1: "a", 2: "z"}).Validate(); err == nil {
		t.Error("Validate should reject token outside the domain")
	}
	if err := (Key{}).Validate(); err != nil {
		t.Errorf("Validate of empty key: %v", err)
	}
}
