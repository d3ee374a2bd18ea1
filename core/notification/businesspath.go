package notification

import (
	"strconv"
	"strings"
)

// BusinessPath builds the "[Kind:id][Kind:id]..." locator of a resource, outermost first.
func BusinessPath(refs ...ContextRef) string {
	var sb strings.Builder
	for _, ref := range refs {
		sb.WriteString("[" + ref.Kind + ":" + strconv.FormatInt(ref.ID, 10) + "]")
	}
	return sb.String()
}

// ParseBusinessPath returns the references of bp; malformed parts are skipped. Kinds are lower-cased.
func ParseBusinessPath(bp string) []ContextRef {
	var refs []ContextRef
	for _, part := range strings.Split(bp, "[") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "]"))
		idx := strings.LastIndex(part, ":")
		if idx <= 0 {
			continue
		}
		id, err := strconv.ParseInt(part[idx+1:], 10, 64)
		if err != nil {
			continue
		}
		refs = append(refs, ContextRef{Kind: strings.ToLower(part[:idx]), ID: id})
	}
	return refs
}

// FindContext returns the first reference of one of kinds in bp.
func FindContext(bp string, kinds ...string) (ContextRef, bool) {
	for _, ref := range ParseBusinessPath(bp) {
		for _, kind := range kinds {
			if ref.Kind == kind {
				return ref, true
			}
		}
	}
	return ContextRef{}, false
}
