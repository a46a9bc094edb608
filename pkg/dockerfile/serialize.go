package dockerfile

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ToMap renders the analysis as an ordered generic structure whose keys
// and nesting match the JSON encoding exactly. Callers embedding an
// analysis inside a larger document (such as the CLI report envelope)
// use this to keep field order stable through re-encoding.
func (a *Analysis) ToMap() *orderedmap.OrderedMap[string, any] {
	out := orderedmap.New[string, any]()
	out.Set("num_stages", a.NumStages)

	images := make([]any, 0, len(a.Images))
	for _, image := range a.Images {
		images = append(images, image.toMap())
	}
	out.Set("images", images)

	out.Set("stage_names", stringsToAny(a.StageNames))
	out.Set("copy_from_stages", stringsToAny(a.CopyFromStages))
	out.Set("add_from_stages", stringsToAny(a.AddFromStages))
	out.Set("multistage_analysis", a.Multistage.toMap())
	out.Set("exposed_ports", stringsToAny(a.ExposedPorts))
	out.Set("instructions", a.Instructions.toMap())
	out.Set("args", copyOrdered(a.Args))
	out.Set("labels", copyOrdered(a.Labels))
	out.Set("env_vars", copyOrdered(a.EnvVars))
	return out
}

func (i Image) toMap() *orderedmap.OrderedMap[string, any] {
	out := orderedmap.New[string, any]()
	out.Set("full", i.Full)
	if i.Components == nil {
		out.Set("components", nil)
		return out
	}
	components := orderedmap.New[string, any]()
	components.Set("registry", ptrToAny(i.Components.Registry))
	components.Set("name", i.Components.Name)
	components.Set("tag", ptrToAny(i.Components.Tag))
	components.Set("digest", ptrToAny(i.Components.Digest))
	out.Set("components", components)
	return out
}

func (m MultistageAnalysis) toMap() *orderedmap.OrderedMap[string, any] {
	out := orderedmap.New[string, any]()
	out.Set("is_multistage", m.IsMultistage)
	out.Set("stages_used_as_base_images", stringsToAny(m.StagesUsedAsBaseImages))
	out.Set("stages_copied_from", stringsToAny(m.StagesCopiedFrom))
	out.Set("stages_added_from", stringsToAny(m.StagesAddedFrom))
	out.Set("unused_stages", stringsToAny(m.UnusedStages))
	return out
}

func (s InstructionStats) toMap() *orderedmap.OrderedMap[string, any] {
	out := orderedmap.New[string, any]()
	out.Set("total_count", s.TotalCount)
	byType := orderedmap.New[string, any]()
	for pair := s.ByType.Oldest(); pair != nil; pair = pair.Next() {
		byType.Set(pair.Key, pair.Value)
	}
	out.Set("by_type", byType)
	return out
}

func stringsToAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func copyOrdered[V any](src *orderedmap.OrderedMap[string, V]) *orderedmap.OrderedMap[string, any] {
	out := orderedmap.New[string, any]()
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

func ptrToAny(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
