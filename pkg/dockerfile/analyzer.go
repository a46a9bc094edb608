// Package dockerfile: single-pass analysis over the instruction stream.
package dockerfile

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Analyze parses the given Dockerfile text and derives structural facts
// about it. The call is pure: no state is shared across calls, so
// concurrent use is safe. On failure the returned error is a
// *ParseError describing the first offending instruction; no partial
// result is produced.
func Analyze(content string) (*Analysis, error) {
	lines, err := NewLexer(content).LogicalLines()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, newParseError(ErrEmptyInput, 0, "", "no instructions to analyze")
	}

	instructions, err := ParseInstructions(lines)
	if err != nil {
		return nil, err
	}

	return newDocumentScan().run(instructions)
}

// AnalyzeReader reads the full document from r and analyzes it.
func AnalyzeReader(r io.Reader) (*Analysis, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading dockerfile")
	}
	return Analyze(string(content))
}

// documentScan accumulates analysis state over one pass of the
// instruction sequence. All collections preserve first-seen order.
type documentScan struct {
	stages *stageRegistry

	images     []Image
	imagesSeen map[string]bool

	stageNames     []string
	stageNamesSeen map[string]bool

	copyFrom     []string
	copyFromSeen map[string]bool
	addFrom      []string
	addFromSeen  map[string]bool

	usedAsBase     []string
	usedAsBaseSeen map[string]bool

	exposedPorts []string

	byType *orderedmap.OrderedMap[string, int]
	total  int

	args    *orderedmap.OrderedMap[string, *string]
	labels  *orderedmap.OrderedMap[string, string]
	envVars *orderedmap.OrderedMap[string, string]
}

func newDocumentScan() *documentScan {
	return &documentScan{
		stages:         newStageRegistry(),
		images:         []Image{},
		imagesSeen:     make(map[string]bool),
		stageNames:     []string{},
		stageNamesSeen: make(map[string]bool),
		copyFrom:       []string{},
		copyFromSeen:   make(map[string]bool),
		addFrom:        []string{},
		addFromSeen:    make(map[string]bool),
		usedAsBase:     []string{},
		usedAsBaseSeen: make(map[string]bool),
		exposedPorts:   []string{},
		byType:         orderedmap.New[string, int](),
		args:           orderedmap.New[string, *string](),
		labels:         orderedmap.New[string, string](),
		envVars:        orderedmap.New[string, string](),
	}
}

func (s *documentScan) run(instructions []Instruction) (*Analysis, error) {
	for i := range instructions {
		ins := &instructions[i]

		s.total++
		count, _ := s.byType.Get(ins.Keyword)
		s.byType.Set(ins.Keyword, count+1)

		// Only ARG (build metadata) and unrecognized keywords may appear
		// before the first stage.
		if s.stages.count() == 0 && ins.Keyword != KeywordFrom && ins.Keyword != KeywordArg &&
			IsKnownInstruction(ins.Keyword) {
			return nil, newParseError(ErrMalformedInstruction, ins.Line, ins.Keyword,
				"instruction before first FROM")
		}

		var err error
		switch ins.Keyword {
		case KeywordFrom:
			err = s.scanFrom(ins)
		case KeywordCopy:
			err = s.scanFromFlag(ins, &s.copyFrom, s.copyFromSeen)
		case KeywordAdd:
			err = s.scanFromFlag(ins, &s.addFrom, s.addFromSeen)
		case KeywordExpose:
			s.exposedPorts = append(s.exposedPorts, strings.Fields(ins.Args)...)
		case KeywordArg:
			err = s.scanArg(ins)
		case KeywordEnv:
			err = s.scanKeyValues(ins, s.envVars)
		case KeywordLabel:
			err = s.scanKeyValues(ins, s.labels)
		}
		if err != nil {
			return nil, err
		}
	}

	if s.stages.count() == 0 {
		first := instructions[0]
		return nil, newParseError(ErrMalformedInstruction, first.Line, first.Keyword,
			"document has no FROM instruction")
	}

	return s.assemble(), nil
}

// scanFrom registers a new stage. The base image text is resolved
// against the stages declared so far: a match is a local stage
// reference and skips the image grammar entirely.
func (s *documentScan) scanFrom(ins *Instruction) error {
	var base Image
	_, isStageRef := s.stages.resolveName(ins.BaseImage)
	switch {
	case isStageRef:
		base = Image{Full: ins.BaseImage}
		s.record(&s.usedAsBase, s.usedAsBaseSeen, ins.BaseImage)
	case strings.HasPrefix(ins.BaseImage, "$"):
		// A variable placeholder stays opaque: no substitution, no
		// components.
		base = Image{Full: ins.BaseImage}
	default:
		components, err := ParseImageReference(ins.BaseImage, ins.Line, KeywordFrom)
		if err != nil {
			return err
		}
		base = Image{Full: ins.BaseImage, Components: components}
	}

	if !s.imagesSeen[base.Full] {
		s.imagesSeen[base.Full] = true
		s.images = append(s.images, base)
	}

	s.stages.add(ins.StageAlias, ins.Platform, base, ins.Line)
	if ins.StageAlias != "" {
		s.record(&s.stageNames, s.stageNamesSeen, ins.StageAlias)
	}
	return nil
}

// scanFromFlag resolves a COPY/ADD --from reference. A numeric value is
// a stage index and must already be declared; a name resolves against
// declared stages; anything else is an external image reference, which
// is validated but not recorded as a stage relationship.
func (s *documentScan) scanFromFlag(ins *Instruction, list *[]string, seen map[string]bool) error {
	ref, ok := fromFlag(ins.Args)
	if !ok {
		return nil
	}
	if strings.HasPrefix(ref, "$") {
		// Unexpandable placeholder; nothing to resolve.
		return nil
	}
	ref = strings.ToLower(ref)

	if index, numeric := isIndexRef(ref); numeric {
		stage, declared := s.stages.resolveIndex(index)
		if !declared {
			return newParseError(ErrInvalidStageReference, ins.Line, ins.Keyword,
				"stage index %d is not declared at this point", index)
		}
		name := stage.Name
		if name == "" {
			name = strconv.Itoa(stage.Index)
		}
		s.record(list, seen, name)
		return nil
	}

	if _, declared := s.stages.resolveName(ref); declared {
		s.record(list, seen, ref)
		return nil
	}

	// Copying from an external image is valid; only its grammar is
	// checked.
	_, err := ParseImageReference(ref, ins.Line, ins.Keyword)
	return err
}

func (s *documentScan) scanArg(ins *Instruction) error {
	pairs, err := parseArgPairs(ins.Args, ins.Line)
	if err != nil {
		return err
	}
	for pair := pairs.Oldest(); pair != nil; pair = pair.Next() {
		s.args.Set(pair.Key, pair.Value)
	}
	return nil
}

func (s *documentScan) scanKeyValues(ins *Instruction, into *orderedmap.OrderedMap[string, string]) error {
	pairs, err := parseKeyValuePairs(ins.Args, ins.Line, ins.Keyword)
	if err != nil {
		return err
	}
	for pair := pairs.Oldest(); pair != nil; pair = pair.Next() {
		into.Set(pair.Key, pair.Value)
	}
	return nil
}

func (s *documentScan) record(list *[]string, seen map[string]bool, value string) {
	if !seen[value] {
		seen[value] = true
		*list = append(*list, value)
	}
}

// assemble computes the multistage classification and builds the final
// aggregate.
func (s *documentScan) assemble() *Analysis {
	copiedFrom := s.declaredOnly(s.copyFrom)
	addedFrom := s.declaredOnly(s.addFrom)

	used := make(map[string]bool)
	for _, name := range s.usedAsBase {
		used[name] = true
	}
	for _, name := range copiedFrom {
		used[name] = true
	}
	for _, name := range addedFrom {
		used[name] = true
	}

	// The final stage is the implicit build target and is never unused.
	finalName := s.stages.last().Name

	unused := []string{}
	unusedSeen := make(map[string]bool)
	for _, stage := range s.stages.stages {
		if stage.Name == "" || used[stage.Name] || stage.Name == finalName || unusedSeen[stage.Name] {
			continue
		}
		unusedSeen[stage.Name] = true
		unused = append(unused, stage.Name)
	}

	return &Analysis{
		NumStages:      s.stages.count(),
		Images:         s.images,
		StageNames:     s.stageNames,
		CopyFromStages: s.copyFrom,
		AddFromStages:  s.addFrom,
		Multistage: MultistageAnalysis{
			IsMultistage:           s.stages.count() > 1,
			StagesUsedAsBaseImages: s.usedAsBase,
			StagesCopiedFrom:       copiedFrom,
			StagesAddedFrom:        addedFrom,
			UnusedStages:           unused,
		},
		ExposedPorts: s.exposedPorts,
		Instructions: InstructionStats{
			TotalCount: s.total,
			ByType:     s.byType,
		},
		Args:    s.args,
		Labels:  s.labels,
		EnvVars: s.envVars,
	}
}

// declaredOnly filters --from targets down to declared stage names,
// dropping numeric references to unnamed stages.
func (s *documentScan) declaredOnly(refs []string) []string {
	names := []string{}
	for _, ref := range refs {
		if _, ok := s.stages.resolveName(ref); ok {
			names = append(names, ref)
		}
	}
	return names
}
