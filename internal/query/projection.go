package query

import (
	"strings"

	"github.com/rpattn/billingapi/internal/schema"
)

// Selection is the ordered, de-duplicated list of requested output paths.
type Selection []string

// Record is a sparse projected entity keyed by canonical field names.
// Attached relation fields appear as nested records.
type Record map[string]any

// ParseSelection splits a comma separated field list.
func ParseSelection(raw string) Selection {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make(Selection, 0, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// AllScalars selects every declared scalar field of desc.
func AllScalars(desc *schema.Descriptor) Selection {
	fields := desc.Scalars()
	out := make(Selection, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

// RequiredRelations returns the canonical names of the attachable relations
// that the selection reaches through dotted paths, in first-seen order.
func RequiredRelations(desc *schema.Descriptor, sel Selection) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, path := range sel {
		head, _, dotted := strings.Cut(path, ".")
		if !dotted {
			continue
		}
		rel, ok := desc.Relation(head)
		if !ok || !rel.Attachable {
			continue
		}
		if _, dup := seen[rel.Name]; dup {
			continue
		}
		seen[rel.Name] = struct{}{}
		out = append(out, rel.Name)
	}
	return out
}

// Project builds the sparse record for entity. The identifier is always
// present. Unknown names, bare relation names and paths through a null
// relation are dropped without error.
func Project(reg *schema.Registry, desc *schema.Descriptor, entity any, sel Selection) Record {
	id := desc.Identifier()
	out := Record{id.Name: id.Value(entity)}

	for _, path := range sel {
		head, rest, dotted := strings.Cut(path, ".")
		if !dotted {
			if f, ok := desc.Field(head); ok && f.IsScalar() {
				out[f.Name] = f.Value(entity)
			}
			continue
		}
		projectRelated(reg, desc, entity, head, rest, out)
	}
	return out
}

func projectRelated(reg *schema.Registry, desc *schema.Descriptor, entity any, relName, path string, out Record) {
	rel, ok := desc.Relation(relName)
	if !ok || strings.Contains(path, ".") {
		return
	}
	target, ok := reg.Lookup(rel.Target)
	if !ok {
		return
	}
	f, ok := target.Field(path)
	if !ok || !f.IsScalar() {
		return
	}
	related := rel.Value(entity)
	if related == nil {
		return
	}
	nested, _ := out[rel.Name].(Record)
	if nested == nil {
		nested = Record{}
		out[rel.Name] = nested
	}
	nested[f.Name] = f.Value(related)
}

// ProjectAll projects every entity with the same selection.
func ProjectAll(reg *schema.Registry, desc *schema.Descriptor, entities []any, sel Selection) []Record {
	out := make([]Record, 0, len(entities))
	for _, e := range entities {
		out = append(out, Project(reg, desc, e, sel))
	}
	return out
}
