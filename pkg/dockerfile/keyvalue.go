// Package dockerfile: ARG/ENV/LABEL argument text extraction.
package dockerfile

import (
	"strings"
	"unicode"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// parseArgPairs parses ARG argument text: a bare name, or name=default
// with the default optionally quoted. A missing default is nil, not "".
func parseArgPairs(args string, line int) (*orderedmap.OrderedMap[string, *string], error) {
	pairs := orderedmap.New[string, *string]()

	tokens, err := splitShellWords(args)
	if err != nil {
		return nil, newParseError(ErrMalformedInstruction, line, KeywordArg, "%s", err.Error())
	}
	if len(tokens) == 0 {
		return nil, newParseError(ErrMalformedInstruction, line, KeywordArg, "missing argument name")
	}

	processed, err := normalizeKVTokens(tokens, line, KeywordArg)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(processed); i += 2 {
		key := processed[i]
		if key == "" {
			return nil, newParseError(ErrMalformedInstruction, line, KeywordArg, "empty argument name")
		}
		var value *string
		if i+1 < len(processed) {
			v := processed[i+1]
			value = &v
		}
		pairs.Set(key, value)
	}
	return pairs, nil
}

// parseKeyValuePairs parses ENV/LABEL argument text. Both forms are
// supported: space-separated key=value assignments, and the legacy
// "key value" form where everything after the first token is the
// value. The form is detected from the first token.
func parseKeyValuePairs(args string, line int, keyword string) (*orderedmap.OrderedMap[string, string], error) {
	pairs := orderedmap.New[string, string]()

	tokens, err := splitShellWords(args)
	if err != nil {
		return nil, newParseError(ErrMalformedInstruction, line, keyword, "%s", err.Error())
	}
	if len(tokens) == 0 {
		return pairs, nil
	}

	if isLegacyForm(tokens) {
		pairs.Set(tokens[0], strings.Join(tokens[1:], " "))
		return pairs, nil
	}

	processed, err := normalizeKVTokens(tokens, line, keyword)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(processed); i += 2 {
		key := processed[i]
		if key == "" {
			return nil, newParseError(ErrMalformedInstruction, line, keyword, "empty key")
		}
		value := ""
		if i+1 < len(processed) {
			value = processed[i+1]
		}
		pairs.Set(key, value)
	}
	return pairs, nil
}

// isLegacyForm reports whether tokens are the legacy single-key form:
// the first token carries no '=', and the next token is not a detached
// or prefixed '=' (which would make it a spaced assignment).
func isLegacyForm(tokens []string) bool {
	if strings.Contains(tokens[0], "=") {
		return false
	}
	if len(tokens) == 1 {
		return true
	}
	return tokens[1] != "=" && !strings.HasPrefix(tokens[1], "=")
}

// normalizeKVTokens flattens assignment tokens into an alternating
// key/value sequence, tolerating whitespace around '=' ("K=V", "K =V",
// "K= V", "K = V"). An '=' with no key pending is an empty key.
func normalizeKVTokens(tokens []string, line int, keyword string) ([]string, error) {
	var processed []string
	prev := ""

	for _, tok := range tokens {
		pending := len(processed)%2 == 1
		switch {
		case tok == "=":
			if !pending {
				return nil, newParseError(ErrMalformedInstruction, line, keyword, "empty key")
			}
		case strings.HasPrefix(tok, "="):
			if !pending {
				return nil, newParseError(ErrMalformedInstruction, line, keyword, "empty key")
			}
			processed = append(processed, strings.TrimPrefix(tok, "="))
		case strings.HasSuffix(tok, "="):
			processed = append(processed, strings.TrimSuffix(tok, "="))
		case strings.HasSuffix(prev, "="):
			// Previous token opened an assignment; this whole token is
			// the value, embedded '=' included.
			processed = append(processed, tok)
		default:
			if k, v, ok := strings.Cut(tok, "="); ok {
				processed = append(processed, k, v)
			} else {
				processed = append(processed, tok)
			}
		}
		prev = tok
	}

	return processed, nil
}

// splitShellWords splits text on unquoted whitespace. Double quotes
// allow escaped '"' and '\'; single quotes are literal; a backslash
// outside quotes escapes the next character. Quotes are stripped, and
// an empty quoted string is still a token.
func splitShellWords(s string) ([]string, error) {
	var (
		words   []string
		buf     strings.Builder
		inQuote rune
		started bool
	)

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if inQuote == '\'' {
			if ch == '\'' {
				inQuote = 0
			} else {
				buf.WriteRune(ch)
			}
			continue
		}
		if inQuote == '"' {
			switch {
			case ch == '"':
				inQuote = 0
			case ch == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\'):
				buf.WriteRune(runes[i+1])
				i++
			default:
				buf.WriteRune(ch)
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '"':
			inQuote = ch
			started = true
		case ch == '\\' && i+1 < len(runes):
			buf.WriteRune(runes[i+1])
			i++
			started = true
		case unicode.IsSpace(ch):
			if started {
				words = append(words, buf.String())
				buf.Reset()
				started = false
			}
		default:
			buf.WriteRune(ch)
			started = true
		}
	}

	if inQuote != 0 {
		return nil, errUnterminatedQuote(inQuote)
	}
	if started {
		words = append(words, buf.String())
	}
	return words, nil
}
