package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/schema"
)

// PatchOperation is one entry of a JSON Patch document.
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// ParsePatchDocument decodes a JSON Patch array. A missing or empty document
// is a patch error.
func ParsePatchDocument(body []byte) ([]PatchOperation, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, domain.PatchError("", "patch document is missing")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var ops []PatchOperation
	if err := dec.Decode(&ops); err != nil {
		return nil, domain.PatchError("", fmt.Sprintf("malformed patch document: %v", err))
	}
	if len(ops) == 0 {
		return nil, domain.PatchError("", "patch document is missing")
	}
	return ops, nil
}

// Assignment writes one coerced value into one field.
type Assignment struct {
	Field *schema.Field
	Value any
}

// PatchPlan is a fully validated, ordered list of assignments.
type PatchPlan []Assignment

// PlanPatch validates every operation against desc before anything is
// mutated, so an invalid operation rejects the whole document.
func PlanPatch(desc *schema.Descriptor, ops []PatchOperation) (PatchPlan, error) {
	if len(ops) == 0 {
		return nil, domain.PatchError("", "patch document is missing")
	}
	plan := make(PatchPlan, 0, len(ops))
	for _, op := range ops {
		a, err := planOperation(desc, op)
		if err != nil {
			return nil, err
		}
		plan = append(plan, a)
	}
	return plan, nil
}

func planOperation(desc *schema.Descriptor, op PatchOperation) (Assignment, error) {
	name, err := patchPath(op.Path)
	if err != nil {
		return Assignment{}, err
	}
	field, ok := desc.Field(name)
	if !ok {
		return Assignment{}, domain.PatchError(name, "unknown field")
	}
	if !field.IsScalar() {
		return Assignment{}, domain.PatchError(field.Name, "relations cannot be patched")
	}
	if field.Role != schema.RoleNone || !field.Mutable {
		return Assignment{}, domain.PatchError(field.Name, "field is read-only")
	}

	switch strings.ToLower(strings.TrimSpace(op.Op)) {
	case "replace", "add":
		v, err := schema.Coerce(field.Type, op.Value)
		if err != nil {
			return Assignment{}, domain.PatchError(field.Name, fmt.Sprintf("invalid value: %v", err))
		}
		return Assignment{Field: field, Value: v}, nil
	case "remove":
		return Assignment{Field: field}, nil
	default:
		return Assignment{}, domain.PatchError(field.Name, fmt.Sprintf("unsupported operation %q", op.Op))
	}
}

func patchPath(path string) (string, error) {
	p := strings.TrimSpace(path)
	if !strings.HasPrefix(p, "/") {
		return "", domain.PatchError(p, "path must start with '/'")
	}
	name := p[1:]
	if name == "" || strings.Contains(name, "/") {
		return "", domain.PatchError(p, "path must name a single field")
	}
	name = strings.NewReplacer("~1", "/", "~0", "~").Replace(name)
	return name, nil
}

// Apply performs the assignments in order; a later assignment to the same
// field overwrites an earlier one.
func (p PatchPlan) Apply(entity any) error {
	for _, a := range p {
		if err := a.Field.Assign(entity, a.Value); err != nil {
			return domain.PatchError(a.Field.Name, err.Error())
		}
	}
	return nil
}
