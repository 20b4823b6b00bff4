package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "zero limit hides the text",
			input:  "Senior Go engineer",
			limit:  0,
			expect: "",
		},
		{
			name:   "negative limit hides the text",
			input:  "Senior Go engineer",
			limit:  -3,
			expect: "",
		},
		{
			name:   "short description is kept",
			input:  "Go, Kafka",
			limit:  20,
			expect: "Go, Kafka",
		},
		{
			name:   "exact length is kept",
			input:  "postgres",
			limit:  8,
			expect: "postgres",
		},
		{
			name:   "long description is cut",
			input:  "Build data pipelines in Go",
			limit:  10,
			expect: "Build data...",
		},
		{
			name:   "surrounding whitespace is ignored",
			input:  "\n  remote only \t",
			limit:  6,
			expect: "remote...",
		},
		{
			name:   "multibyte runes are not split",
			input:  "Développeur backend",
			limit:  4,
			expect: "Déve...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
