// Package dockerfile: decomposition of image references.
package dockerfile

import (
	"strings"
)

// ParseImageReference decomposes an external image reference of the
// form [registry/]name[:tag|@digest]. Variable placeholders are never
// expanded; callers keep references that are stage aliases or start
// with '$' out of this grammar entirely.
func ParseImageReference(ref string, line int, keyword string) (*ImageComponents, error) {
	if ref == "" {
		return nil, newParseError(ErrInvalidImageReference, line, keyword, "empty image reference")
	}
	if strings.Count(ref, "@") > 1 {
		return nil, newParseError(ErrInvalidImageReference, line, keyword,
			"image reference %q has multiple digest separators", ref)
	}

	comp := &ImageComponents{}

	rest := ref
	if name, dig, ok := strings.Cut(rest, "@"); ok {
		if dig == "" {
			return nil, newParseError(ErrInvalidImageReference, line, keyword,
				"image reference %q has an empty digest", ref)
		}
		comp.Digest = &dig
		rest = name
	}

	// A tag is everything after a ':' that follows the last '/'; a
	// colon inside the registry segment (a port) is not a tag.
	lastSlash := strings.LastIndex(rest, "/")
	if colon := strings.LastIndex(rest, ":"); colon > lastSlash {
		tag := rest[colon+1:]
		if tag == "" {
			return nil, newParseError(ErrInvalidImageReference, line, keyword,
				"image reference %q has an empty tag", ref)
		}
		if comp.Digest != nil {
			return nil, newParseError(ErrInvalidImageReference, line, keyword,
				"image reference %q has both a tag and a digest", ref)
		}
		comp.Tag = &tag
		rest = rest[:colon]
	}

	// The first path component is a registry only when it looks like a
	// hostname: contains '.' or ':' or equals "localhost". This keeps
	// "library/ubuntu" a plain namespaced name.
	if head, tail, ok := strings.Cut(rest, "/"); ok && isRegistryHost(head) {
		comp.Registry = &head
		rest = tail
	}

	if rest == "" {
		return nil, newParseError(ErrInvalidImageReference, line, keyword,
			"image reference %q has an empty name", ref)
	}
	comp.Name = rest

	return comp, nil
}

func isRegistryHost(segment string) bool {
	return segment == "localhost" || strings.ContainsAny(segment, ".:")
}
