// Package dockerfile parses Dockerfiles and derives structural facts
// about them: stage topology, image provenance, instruction statistics
// and declared configuration.
package dockerfile

import (
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Instruction is a single parsed Dockerfile instruction. The keyword is
// normalized to upper case; Args holds the raw argument text with
// quoting and variable references preserved verbatim.
type Instruction struct {
	// Keyword is the instruction keyword (FROM, RUN, ...), upper-cased.
	// Unrecognized keywords are kept as-is so no instruction is lost.
	Keyword string `json:"keyword"`

	// Args is the raw argument text after the keyword.
	Args string `json:"args"`

	// StageAlias is the AS name of a FROM instruction, lower-cased.
	StageAlias string `json:"stage_alias,omitempty"`

	// BaseImage is the base image text of a FROM instruction.
	BaseImage string `json:"base_image,omitempty"`

	// Platform is the --platform flag value of a FROM instruction.
	Platform string `json:"platform,omitempty"`

	// Line is the 1-based starting line of the instruction.
	Line int `json:"line"`
}

// Stage represents a single build stage declared by a FROM instruction.
type Stage struct {
	// Index is the zero-based declaration index of this stage.
	Index int `json:"index"`

	// Name is the optional stage alias, lower-cased; empty if unnamed.
	Name string `json:"name,omitempty"`

	// BaseImage is the image this stage builds from.
	BaseImage Image `json:"base_image"`

	// Platform is the target platform, if declared.
	Platform string `json:"platform,omitempty"`

	// Line is where the FROM instruction appears.
	Line int `json:"line"`
}

// Image is an image reference as it appears in the Dockerfile. When the
// reference names a previously declared stage, or is a variable
// placeholder, Components is nil and Full carries the reference as-is.
type Image struct {
	Full       string           `json:"full"`
	Components *ImageComponents `json:"components"`
}

// ImageComponents is the decomposition of an external image reference.
// Absent parts are nil rather than empty so "absent" stays
// distinguishable from "empty". Tag and Digest are mutually exclusive.
type ImageComponents struct {
	Registry *string `json:"registry"`
	Name     string  `json:"name"`
	Tag      *string `json:"tag"`
	Digest   *string `json:"digest"`
}

// ParsedDigest returns the digest as a validated OCI digest. The
// analyzer itself only requires digest presence; callers that need the
// algorithm:hex form verified can use this.
func (c *ImageComponents) ParsedDigest() (digest.Digest, error) {
	if c.Digest == nil {
		return "", errors.New("image reference has no digest")
	}
	d, err := digest.Parse(*c.Digest)
	if err != nil {
		return "", errors.Wrapf(err, "invalid digest %q", *c.Digest)
	}
	return d, nil
}

// MultistageAnalysis classifies how declared stages relate to each
// other in a multi-stage build.
type MultistageAnalysis struct {
	// IsMultistage is true when more than one stage is declared.
	IsMultistage bool `json:"is_multistage"`

	// StagesUsedAsBaseImages lists stage names later used after FROM.
	StagesUsedAsBaseImages []string `json:"stages_used_as_base_images"`

	// StagesCopiedFrom lists stage names referenced by COPY --from.
	StagesCopiedFrom []string `json:"stages_copied_from"`

	// StagesAddedFrom lists stage names referenced by ADD --from.
	StagesAddedFrom []string `json:"stages_added_from"`

	// UnusedStages lists named stages nothing references. The final
	// stage is never listed; it is the implicit build target.
	UnusedStages []string `json:"unused_stages"`
}

// InstructionStats holds instruction counts over the whole document.
type InstructionStats struct {
	TotalCount int                                 `json:"total_count"`
	ByType     *orderedmap.OrderedMap[string, int] `json:"by_type"`
}

// Analysis is the aggregate result of analyzing one Dockerfile. All
// lists and mappings preserve first-seen declaration order so identical
// input yields identical, diffable output.
type Analysis struct {
	NumStages      int                `json:"num_stages"`
	Images         []Image            `json:"images"`
	StageNames     []string           `json:"stage_names"`
	CopyFromStages []string           `json:"copy_from_stages"`
	AddFromStages  []string           `json:"add_from_stages"`
	Multistage     MultistageAnalysis `json:"multistage_analysis"`
	ExposedPorts   []string           `json:"exposed_ports"`
	Instructions   InstructionStats   `json:"instructions"`

	// Args maps ARG names to their optional defaults (nil = no default).
	Args *orderedmap.OrderedMap[string, *string] `json:"args"`

	// Labels accumulates LABEL pairs; a later duplicate key overwrites.
	Labels *orderedmap.OrderedMap[string, string] `json:"labels"`

	// EnvVars accumulates ENV pairs; a later duplicate key overwrites.
	EnvVars *orderedmap.OrderedMap[string, string] `json:"env_vars"`
}
