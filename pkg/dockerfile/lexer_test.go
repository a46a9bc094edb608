package dockerfile

import (
	"errors"
	"testing"
)

func TestLexerLogicalLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []LogicalLine
	}{
		{
			name:  "simple instructions",
			input: "FROM ubuntu:20.04\nRUN echo hello",
			expected: []LogicalLine{
				{Text: "FROM ubuntu:20.04", Line: 1},
				{Text: "RUN echo hello", Line: 2},
			},
		},
		{
			name:  "comments and blank lines dropped",
			input: "# build image\n\nFROM alpine\n   \n# install\nRUN apk add curl\n",
			expected: []LogicalLine{
				{Text: "FROM alpine", Line: 3},
				{Text: "RUN apk add curl", Line: 6},
			},
		},
		{
			name:  "leading whitespace stripped",
			input: "  FROM alpine\n\tRUN true",
			expected: []LogicalLine{
				{Text: "FROM alpine", Line: 1},
				{Text: "RUN true", Line: 2},
			},
		},
		{
			name:  "continuation joins lines",
			input: "RUN apt-get update && \\\n    apt-get install -y curl",
			expected: []LogicalLine{
				{Text: "RUN apt-get update && apt-get install -y curl", Line: 1},
			},
		},
		{
			name:  "continuation keeps starting line number",
			input: "FROM alpine\nRUN a \\\n  b \\\n  c\nCMD [\"sh\"]",
			expected: []LogicalLine{
				{Text: "FROM alpine", Line: 1},
				{Text: "RUN a b c", Line: 2},
				{Text: `CMD ["sh"]`, Line: 5},
			},
		},
		{
			name:  "comment inside continuation run",
			input: "RUN echo one \\\n# interleaved comment\n  echo two",
			expected: []LogicalLine{
				{Text: "RUN echo one echo two", Line: 1},
			},
		},
		{
			name:  "windows line endings",
			input: "FROM alpine\r\nRUN true\r\n",
			expected: []LogicalLine{
				{Text: "FROM alpine", Line: 1},
				{Text: "RUN true", Line: 2},
			},
		},
		{
			name:  "backslash inside double quotes is not a continuation",
			input: `RUN echo "a\b"` + "\nRUN true",
			expected: []LogicalLine{
				{Text: `RUN echo "a\b"`, Line: 1},
				{Text: "RUN true", Line: 2},
			},
		},
		{
			name:  "backslash inside single quotes is literal",
			input: "RUN echo 'a\\'\nRUN true",
			expected: []LogicalLine{
				{Text: "RUN echo 'a\\'", Line: 1},
				{Text: "RUN true", Line: 2},
			},
		},
		{
			name:  "escaped backslash at end is not a continuation",
			input: "RUN echo a\\\\\nRUN true",
			expected: []LogicalLine{
				{Text: "RUN echo a\\\\", Line: 1},
				{Text: "RUN true", Line: 2},
			},
		},
		{
			name:  "trailing continuation at EOF closes the line",
			input: "RUN echo hello \\",
			expected: []LogicalLine{
				{Text: "RUN echo hello", Line: 1},
			},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "only comments and blanks",
			input:    "# nothing\n\n   \n# here\n",
			expected: nil,
		},
		{
			name:  "trailing whitespace trimmed",
			input: "FROM alpine   \nRUN true\t",
			expected: []LogicalLine{
				{Text: "FROM alpine", Line: 1},
				{Text: "RUN true", Line: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLexer(tt.input).LogicalLines()
			if err != nil {
				t.Fatalf("LogicalLines() error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d logical lines, want %d: %#v", len(got), len(tt.expected), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("line %d: got %+v, want %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestLexerUnterminatedQuote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{name: "unterminated double quote", input: `RUN echo "broken`, line: 1},
		{name: "unterminated single quote", input: "FROM alpine\nRUN echo 'broken", line: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer(tt.input).LogicalLines()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if kind := KindOf(err); kind != ErrMalformedInstruction {
				t.Errorf("got kind %q, want %q", kind, ErrMalformedInstruction)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Line != tt.line {
				t.Errorf("got line %d, want %d", pe.Line, tt.line)
			}
		})
	}
}
