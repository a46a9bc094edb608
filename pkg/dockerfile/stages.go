// Package dockerfile: incremental stage registry for multistage builds.
package dockerfile

import (
	"strconv"
)

// stageRegistry tracks stages in declaration order with a name lookup
// reflecting only what has been declared so far. Resolution against it
// therefore forbids forward references without extra bookkeeping. A
// reused name shadows the earlier stage for later lookups, but both
// stages stay distinct by index.
type stageRegistry struct {
	stages []Stage
	byName map[string]int
}

func newStageRegistry() *stageRegistry {
	return &stageRegistry{byName: make(map[string]int)}
}

// add registers the next stage. The base image must already be resolved
// against the registry's prior state: the new name only becomes
// visible to instructions after this FROM.
func (r *stageRegistry) add(name, platform string, base Image, line int) *Stage {
	r.stages = append(r.stages, Stage{
		Index:     len(r.stages),
		Name:      name,
		BaseImage: base,
		Platform:  platform,
		Line:      line,
	})
	if name != "" {
		r.byName[name] = len(r.stages) - 1
	}
	return &r.stages[len(r.stages)-1]
}

// resolveName returns the most recently declared stage with the given
// (lower-cased) name.
func (r *stageRegistry) resolveName(name string) (*Stage, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return &r.stages[idx], true
}

// resolveIndex returns the stage at a numeric index if it has been
// declared by now.
func (r *stageRegistry) resolveIndex(index int) (*Stage, bool) {
	if index < 0 || index >= len(r.stages) {
		return nil, false
	}
	return &r.stages[index], true
}

// isIndexRef reports whether a --from value is a numeric stage index.
func isIndexRef(ref string) (int, bool) {
	idx, err := strconv.Atoi(ref)
	return idx, err == nil
}

// count returns the number of declared stages.
func (r *stageRegistry) count() int { return len(r.stages) }

// last returns the final declared stage, or nil before the first FROM.
func (r *stageRegistry) last() *Stage {
	if len(r.stages) == 0 {
		return nil
	}
	return &r.stages[len(r.stages)-1]
}
