// Package fieldmask merges partial entity updates under an optional mask of
// field names. Merges are pure: they return new values and never persist.
package fieldmask

import (
	"slices"
	"sort"
	"strings"
)

// Separator joins a nested entity prefix and its field name.
const Separator = "."

// Mask restricts which allowlisted fields an update may change. The zero
// value is "no mask" and selects every allowlisted field.
type Mask struct {
	fields map[string]struct{}
	set    bool
}

// Parse reads a comma-delimited mask. Entries are trimmed and blanks are
// dropped; an empty or blank input yields no mask.
func Parse(raw string) Mask {
	var fields map[string]struct{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if fields == nil {
			fields = make(map[string]struct{})
		}
		fields[part] = struct{}{}
	}
	if len(fields) == 0 {
		return Mask{}
	}
	return Mask{fields: fields, set: true}
}

// Of builds a mask from explicit field names.
func Of(fields ...string) Mask {
	return Parse(strings.Join(fields, ","))
}

// IsSet reports whether the mask restricts fields.
func (m Mask) IsSet() bool { return m.set }

// Includes reports whether field may change under the mask.
func (m Mask) Includes(field string) bool {
	if !m.set {
		return true
	}
	_, ok := m.fields[field]
	return ok
}

// Nested routes entries namespaced under prefix to a mask for the nested
// entity, stripping the prefix. A bare prefix entry selects every field of
// the nested entity. A set mask without matching entries selects nothing.
func (m Mask) Nested(prefix string) Mask {
	if !m.set {
		return m
	}
	if _, ok := m.fields[prefix]; ok {
		return Mask{}
	}
	nested := Mask{fields: map[string]struct{}{}, set: true}
	for field := range m.fields {
		if rest, ok := strings.CutPrefix(field, prefix+Separator); ok && rest != "" {
			nested.fields[rest] = struct{}{}
		}
	}
	return nested
}

// Fields returns the mask entries in sorted order.
func (m Mask) Fields() []string {
	out := make([]string, 0, len(m.fields))
	for f := range m.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (m Mask) String() string {
	return strings.Join(m.Fields(), ",")
}

// Allowed filters the mask down to entries present in allowlist.
func (m Mask) Allowed(allowlist []string) []string {
	if !m.set {
		return slices.Clone(allowlist)
	}
	var out []string
	for _, f := range allowlist {
		if m.Includes(f) {
			out = append(out, f)
		}
	}
	return out
}
