package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Descriptor is the immutable, declared shape of one entity type.
type Descriptor struct {
	name   string
	route  string
	fields []*Field
	byName map[string]*Field

	identifier *Field
	tenant     *Field
	newEntity  func() any
}

// New declares the descriptor for entity type E. The declaration is checked
// when the descriptor is registered.
func New[E any](name string, fields ...*Field) *Descriptor {
	d := &Descriptor{
		name:      name,
		route:     strings.ToLower(name),
		fields:    fields,
		byName:    make(map[string]*Field, len(fields)),
		newEntity: func() any { return new(E) },
	}
	for _, f := range fields {
		if f == nil {
			continue
		}
		d.byName[strings.ToLower(f.Name)] = f
		switch f.Role {
		case RoleIdentifier:
			if d.identifier == nil {
				d.identifier = f
			}
		case RoleTenant:
			if d.tenant == nil {
				d.tenant = f
			}
		}
	}
	return d
}

// Name returns the canonical entity type name.
func (d *Descriptor) Name() string { return d.name }

// Route returns the lower-case name used in URLs.
func (d *Descriptor) Route() string { return d.route }

// Field resolves a field by name, ignoring case.
func (d *Descriptor) Field(name string) (*Field, bool) {
	f, ok := d.byName[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Fields returns all declared fields in declaration order.
func (d *Descriptor) Fields() []*Field {
	out := make([]*Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Scalars returns the scalar fields in declaration order.
func (d *Descriptor) Scalars() []*Field {
	out := make([]*Field, 0, len(d.fields))
	for _, f := range d.fields {
		if f.IsScalar() {
			out = append(out, f)
		}
	}
	return out
}

// Relations returns the relation fields in declaration order.
func (d *Descriptor) Relations() []*Field {
	var out []*Field
	for _, f := range d.fields {
		if f.IsRelation() {
			out = append(out, f)
		}
	}
	return out
}

// Relation resolves a relation field by name, ignoring case.
func (d *Descriptor) Relation(name string) (*Field, bool) {
	f, ok := d.Field(name)
	if !ok || !f.IsRelation() {
		return nil, false
	}
	return f, true
}

// Searchable returns the text fields that take part in free-text search.
func (d *Descriptor) Searchable() []*Field {
	var out []*Field
	for _, f := range d.fields {
		if f.IsScalar() && f.Searchable {
			out = append(out, f)
		}
	}
	return out
}

// Identifier returns the identifier field.
func (d *Descriptor) Identifier() *Field { return d.identifier }

// Tenant returns the tenant stamp field.
func (d *Descriptor) Tenant() *Field { return d.tenant }

// AuditField returns the audit field with the given name, if declared.
func (d *Descriptor) AuditField(name string) (*Field, bool) {
	f, ok := d.Field(name)
	if !ok || f.Role != RoleAudit {
		return nil, false
	}
	return f, true
}

// NewEntity allocates a zero value of the described type.
func (d *Descriptor) NewEntity() any { return d.newEntity() }

// Accepts reports whether entity is a value of the described type.
func (d *Descriptor) Accepts(entity any) bool {
	if entity == nil || d.identifier == nil {
		return false
	}
	return d.identifier.Value(entity) != nil
}

// IDOf returns the identifier of entity.
func (d *Descriptor) IDOf(entity any) uuid.UUID {
	id, _ := d.identifier.Value(entity).(uuid.UUID)
	return id
}

// TenantOf returns the tenant of entity, or uuid.Nil when it is unset.
func (d *Descriptor) TenantOf(entity any) uuid.UUID {
	id, _ := d.tenant.Value(entity).(uuid.UUID)
	return id
}

// Owns reports whether entity belongs to tenantID.
func (d *Descriptor) Owns(tenantID uuid.UUID, entity any) bool {
	return tenantID != uuid.Nil && d.TenantOf(entity) == tenantID
}

func (d *Descriptor) validate() error {
	if strings.TrimSpace(d.name) == "" {
		return fmt.Errorf("entity type name is required")
	}

	seen := make(map[string]struct{}, len(d.fields))
	identifiers, tenants := 0, 0
	for _, f := range d.fields {
		if f == nil {
			return fmt.Errorf("entity %s declares a nil field", d.name)
		}
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("entity %s declares a field without a name", d.name)
		}
		if strings.Contains(name, ".") {
			return fmt.Errorf("field %s.%s cannot contain '.'", d.name, name)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("field %s.%s is declared more than once", d.name, name)
		}
		seen[key] = struct{}{}

		switch f.Role {
		case RoleIdentifier:
			identifiers++
			if f.Type != TypeUUID {
				return fmt.Errorf("identifier %s.%s must be a uuid", d.name, name)
			}
		case RoleTenant:
			tenants++
			if f.Type != TypeUUID {
				return fmt.Errorf("tenant field %s.%s must be a uuid", d.name, name)
			}
		}
	}

	if identifiers != 1 {
		return fmt.Errorf("entity %s must declare exactly one identifier, found %d", d.name, identifiers)
	}
	if tenants != 1 {
		return fmt.Errorf("entity %s must declare exactly one tenant field, found %d", d.name, tenants)
	}

	for _, rel := range d.Relations() {
		fk, ok := d.Field(rel.ForeignKey)
		if !ok {
			return fmt.Errorf("relation %s.%s references unknown foreign key %s", d.name, rel.Name, rel.ForeignKey)
		}
		if !fk.IsScalar() || fk.Type != TypeUUID {
			return fmt.Errorf("relation %s.%s foreign key %s must be a uuid scalar", d.name, rel.Name, rel.ForeignKey)
		}
	}
	return nil
}

type descriptorJSON struct {
	Name   string   `json:"name"`
	Route  string   `json:"route"`
	Fields []*Field `json:"fields"`
}

// MarshalJSON renders the declared shape for schema discovery.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{Name: d.name, Route: d.route, Fields: d.fields})
}
