// Package dockerfile: lexical pass turning raw text into logical lines.
package dockerfile

import (
	"strings"
)

// LogicalLine is one instruction-bearing line after continuation
// joining and comment stripping. Line is the 1-based number of the
// first physical line the logical line started on.
type LogicalLine struct {
	Text string
	Line int
}

// Lexer normalizes raw Dockerfile text into logical lines. Comment and
// blank lines are discarded, backslash-continued lines are joined, and
// quoted regions suppress backslash interpretation.
type Lexer struct {
	source string
}

// NewLexer creates a lexer over the given document text.
func NewLexer(source string) *Lexer {
	return &Lexer{source: source}
}

// LogicalLines splits the source into logical lines. An unterminated
// quote at the end of a physical line is an error: quoted regions do
// not span lines.
func (l *Lexer) LogicalLines() ([]LogicalLine, error) {
	var (
		lines     []LogicalLine
		buf       strings.Builder
		startLine int
		joining   bool
	)

	physical := strings.Split(l.source, "\n")
	for i, raw := range physical {
		lineNo := i + 1
		text := strings.TrimSuffix(raw, "\r")

		if !joining {
			trimmed := strings.TrimLeft(text, " \t")
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				// Blank lines, comments and parser directives carry no
				// analysis value.
				continue
			}
			startLine = lineNo
			text = trimmed
		} else {
			text = strings.TrimLeft(text, " \t")
			if strings.HasPrefix(text, "#") {
				// A full comment line inside a continuation run is
				// dropped; the continuation keeps going.
				continue
			}
		}

		content, cont, err := scanPhysicalLine(text)
		if err != nil {
			return nil, newParseError(ErrMalformedInstruction, lineNo, "", "%s", err.Error())
		}

		buf.WriteString(content)
		joining = cont
		if !joining {
			lines = append(lines, LogicalLine{
				Text: strings.TrimRight(buf.String(), " \t"),
				Line: startLine,
			})
			buf.Reset()
		}
	}

	// A trailing continuation at EOF still closes the logical line.
	if joining && buf.Len() > 0 {
		lines = append(lines, LogicalLine{
			Text: strings.TrimRight(buf.String(), " \t"),
			Line: startLine,
		})
	}

	return lines, nil
}

// scanPhysicalLine walks one physical line tracking quote state. It
// reports whether the line ends in an unescaped backslash outside
// quotes (a continuation) and returns the content with that backslash
// stripped.
func scanPhysicalLine(text string) (content string, cont bool, err error) {
	var (
		inQuote rune
		escaped bool
	)

	for _, ch := range text {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inQuote != '\'' {
				escaped = true
			}
		case '"', '\'':
			switch inQuote {
			case 0:
				inQuote = ch
			case ch:
				inQuote = 0
			}
		}
	}

	if inQuote != 0 {
		return "", false, errUnterminatedQuote(inQuote)
	}
	if escaped {
		// Line ended in an unescaped backslash: join with the next line.
		return text[:len(text)-1], true, nil
	}
	return text, false, nil
}

type quoteError rune

func (q quoteError) Error() string {
	return "unterminated " + string(rune(q)) + " quote"
}

func errUnterminatedQuote(q rune) error { return quoteError(q) }
