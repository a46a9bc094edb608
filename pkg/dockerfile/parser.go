// Package dockerfile: classification of logical lines into instructions.
package dockerfile

import (
	"strings"
	"unicode"
)

// Dockerfile instruction keywords.
const (
	KeywordAdd         = "ADD"
	KeywordArg         = "ARG"
	KeywordCmd         = "CMD"
	KeywordCopy        = "COPY"
	KeywordEntrypoint  = "ENTRYPOINT"
	KeywordEnv         = "ENV"
	KeywordExpose      = "EXPOSE"
	KeywordFrom        = "FROM"
	KeywordHealthcheck = "HEALTHCHECK"
	KeywordLabel       = "LABEL"
	KeywordMaintainer  = "MAINTAINER"
	KeywordOnbuild     = "ONBUILD"
	KeywordRun         = "RUN"
	KeywordShell       = "SHELL"
	KeywordStopsignal  = "STOPSIGNAL"
	KeywordUser        = "USER"
	KeywordVolume      = "VOLUME"
	KeywordWorkdir     = "WORKDIR"
)

var knownInstructions = map[string]bool{
	KeywordAdd:         true,
	KeywordArg:         true,
	KeywordCmd:         true,
	KeywordCopy:        true,
	KeywordEntrypoint:  true,
	KeywordEnv:         true,
	KeywordExpose:      true,
	KeywordFrom:        true,
	KeywordHealthcheck: true,
	KeywordLabel:       true,
	KeywordMaintainer:  true,
	KeywordOnbuild:     true,
	KeywordRun:         true,
	KeywordShell:       true,
	KeywordStopsignal:  true,
	KeywordUser:        true,
	KeywordVolume:      true,
	KeywordWorkdir:     true,
}

// IsKnownInstruction reports whether keyword is part of the Dockerfile
// instruction set. Unknown keywords are still counted by the analyzer.
func IsKnownInstruction(keyword string) bool {
	return knownInstructions[keyword]
}

// ParseInstructions classifies each logical line into an Instruction.
// The keyword is upper-cased; argument text is kept verbatim. FROM
// lines additionally get their base image, platform flag and AS alias
// extracted.
func ParseInstructions(lines []LogicalLine) ([]Instruction, error) {
	instructions := make([]Instruction, 0, len(lines))

	for _, line := range lines {
		keyword, args := splitKeyword(line.Text)
		ins := Instruction{
			Keyword: strings.ToUpper(keyword),
			Args:    args,
			Line:    line.Line,
		}

		if ins.Keyword == KeywordFrom {
			if err := parseFromArgs(&ins); err != nil {
				return nil, err
			}
		}

		instructions = append(instructions, ins)
	}

	return instructions, nil
}

// splitKeyword splits a logical line on its first whitespace run.
func splitKeyword(text string) (keyword, args string) {
	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return text, ""
	}
	return text[:idx], strings.TrimLeftFunc(text[idx:], unicode.IsSpace)
}

// parseFromArgs extracts the base image, optional --platform flag and
// optional AS alias from a FROM instruction's argument text. Image
// references and stage aliases are lower-cased unless they are variable
// placeholders, mirroring Docker's case handling for image names.
func parseFromArgs(ins *Instruction) error {
	fields := strings.Fields(ins.Args)

	i := 0
	for i < len(fields) && strings.HasPrefix(fields[i], "--") {
		name, value, _ := strings.Cut(strings.TrimPrefix(fields[i], "--"), "=")
		if name != "platform" {
			return newParseError(ErrMalformedInstruction, ins.Line, KeywordFrom,
				"unknown flag --%s", name)
		}
		ins.Platform = value
		i++
	}

	if i >= len(fields) {
		return newParseError(ErrMalformedInstruction, ins.Line, KeywordFrom,
			"missing base image")
	}
	ins.BaseImage = foldReference(fields[i])
	i++

	if i < len(fields) {
		if !strings.EqualFold(fields[i], "AS") {
			return newParseError(ErrMalformedInstruction, ins.Line, KeywordFrom,
				"unexpected token %q (expected AS)", fields[i])
		}
		if i+1 >= len(fields) {
			return newParseError(ErrMalformedInstruction, ins.Line, KeywordFrom,
				"missing stage name after AS")
		}
		ins.StageAlias = strings.ToLower(fields[i+1])
		i += 2
	}

	if i < len(fields) {
		return newParseError(ErrMalformedInstruction, ins.Line, KeywordFrom,
			"unexpected trailing token %q", fields[i])
	}
	return nil
}

// fromFlag extracts the --from flag value of a COPY or ADD instruction.
func fromFlag(args string) (string, bool) {
	for _, field := range strings.Fields(args) {
		if !strings.HasPrefix(field, "--") {
			// Flags precede the source/destination operands.
			return "", false
		}
		if value, ok := strings.CutPrefix(field, "--from="); ok {
			return value, true
		}
	}
	return "", false
}

// foldReference lower-cases an image or stage reference, leaving
// variable placeholders untouched.
func foldReference(ref string) string {
	if strings.HasPrefix(ref, "$") {
		return ref
	}
	return strings.ToLower(ref)
}
