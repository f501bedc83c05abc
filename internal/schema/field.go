package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DataType represents the declared value type of a scalar field.
type DataType string

const (
	TypeText     DataType = "text"
	TypeInteger  DataType = "integer"
	TypeFloat    DataType = "float"
	TypeBoolean  DataType = "boolean"
	TypeDateTime DataType = "datetime"
	TypeUUID     DataType = "uuid"
)

// Ordered reports whether values of the type support range comparison.
func (t DataType) Ordered() bool {
	switch t {
	case TypeInteger, TypeFloat, TypeDateTime:
		return true
	}
	return false
}

// FieldKind distinguishes stored scalar values from navigations to other entities.
type FieldKind string

const (
	KindScalar   FieldKind = "scalar"
	KindRelation FieldKind = "relation"
)

// Role marks fields the engine stamps itself and never lets callers write.
type Role string

const (
	RoleNone       Role = ""
	RoleIdentifier Role = "identifier"
	RoleTenant     Role = "tenant"
	RoleAudit      Role = "audit"
)

// Field describes one declared member of an entity type together with the
// accessor and mutator used to reach it. Fields are built once at startup.
type Field struct {
	Name       string    `json:"name"`
	Kind       FieldKind `json:"kind"`
	Type       DataType  `json:"type,omitempty"`
	Role       Role      `json:"role,omitempty"`
	Sortable   bool      `json:"sortable"`
	Searchable bool      `json:"searchable"`
	Filterable bool      `json:"filterable"`
	Mutable    bool      `json:"mutable"`

	// Relation only.
	Target     string `json:"target,omitempty"`
	ForeignKey string `json:"foreignKey,omitempty"`
	Attachable bool   `json:"attachable,omitempty"`

	get func(entity any) any
	set func(entity any, value any) error
}

// Value reads the field from entity. Null values and foreign entity types yield nil.
func (f *Field) Value(entity any) any {
	if f == nil || f.get == nil || entity == nil {
		return nil
	}
	return f.get(entity)
}

// Assign writes an already coerced value into entity. A nil value clears nullable fields.
func (f *Field) Assign(entity any, value any) error {
	if f == nil || f.set == nil {
		return fmt.Errorf("field is not assignable")
	}
	return f.set(entity, value)
}

// IsScalar reports whether the field holds a stored value.
func (f *Field) IsScalar() bool {
	return f != nil && f.Kind == KindScalar
}

// IsRelation reports whether the field navigates to another entity.
func (f *Field) IsRelation() bool {
	return f != nil && f.Kind == KindRelation
}

// Option adjusts a field while it is being declared.
type Option func(*Field)

// NotSortable excludes the field from sort expressions.
func NotSortable() Option {
	return func(f *Field) { f.Sortable = false }
}

// NotSearchable excludes a text field from free-text search.
func NotSearchable() Option {
	return func(f *Field) { f.Searchable = false }
}

// NotFilterable excludes the field from filter criteria.
func NotFilterable() Option {
	return func(f *Field) { f.Filterable = false }
}

// ReadOnly keeps the field out of patch documents.
func ReadOnly() Option {
	return func(f *Field) { f.Mutable = false }
}

// Detached declares a relation that may not be eagerly attached.
func Detached() Option {
	return func(f *Field) { f.Attachable = false }
}

// AsTenant marks the tenant stamp field.
func AsTenant() Option {
	return func(f *Field) {
		f.Role = RoleTenant
		f.Mutable = false
	}
}

// AsAudit marks a created/updated stamp field.
func AsAudit() Option {
	return func(f *Field) {
		f.Role = RoleAudit
		f.Mutable = false
	}
}

func scalar[E any, V any](name string, dataType DataType, ref func(*E) **V, opts []Option) *Field {
	field := &Field{
		Name:       name,
		Kind:       KindScalar,
		Type:       dataType,
		Sortable:   true,
		Searchable: dataType == TypeText,
		Filterable: true,
		Mutable:    true,
		get: func(entity any) any {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return nil
			}
			p := *ref(e)
			if p == nil {
				return nil
			}
			return *p
		},
		set: func(entity any, value any) error {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return fmt.Errorf("field %s: unexpected entity %T", name, entity)
			}
			if value == nil {
				*ref(e) = nil
				return nil
			}
			v, ok := value.(V)
			if !ok {
				return fmt.Errorf("field %s: expected %s value, got %T", name, dataType, value)
			}
			*ref(e) = &v
			return nil
		},
	}
	for _, opt := range opts {
		opt(field)
	}
	if field.Type != TypeText {
		field.Searchable = false
	}
	return field
}

// Text declares a nullable string field.
func Text[E any](name string, ref func(*E) **string, opts ...Option) *Field {
	return scalar(name, TypeText, ref, opts)
}

// Integer declares a nullable int64 field.
func Integer[E any](name string, ref func(*E) **int64, opts ...Option) *Field {
	return scalar(name, TypeInteger, ref, opts)
}

// Float declares a nullable float64 field.
func Float[E any](name string, ref func(*E) **float64, opts ...Option) *Field {
	return scalar(name, TypeFloat, ref, opts)
}

// Boolean declares a nullable bool field.
func Boolean[E any](name string, ref func(*E) **bool, opts ...Option) *Field {
	return scalar(name, TypeBoolean, ref, opts)
}

// DateTime declares a nullable time field.
func DateTime[E any](name string, ref func(*E) **time.Time, opts ...Option) *Field {
	return scalar(name, TypeDateTime, ref, opts)
}

// UUID declares a nullable UUID field, typically a foreign key.
func UUID[E any](name string, ref func(*E) **uuid.UUID, opts ...Option) *Field {
	return scalar(name, TypeUUID, ref, opts)
}

// Identifier declares the non-nullable record identifier.
func Identifier[E any](name string, ref func(*E) *uuid.UUID) *Field {
	return &Field{
		Name:       name,
		Kind:       KindScalar,
		Type:       TypeUUID,
		Role:       RoleIdentifier,
		Sortable:   true,
		Filterable: true,
		get: func(entity any) any {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return nil
			}
			return *ref(e)
		},
		set: func(entity any, value any) error {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return fmt.Errorf("field %s: unexpected entity %T", name, entity)
			}
			id, ok := value.(uuid.UUID)
			if !ok {
				return fmt.Errorf("field %s: expected uuid value, got %T", name, value)
			}
			*ref(e) = id
			return nil
		},
	}
}

// Relation declares a navigation to an entity of type target, keyed by the
// foreignKey scalar field on E.
func Relation[E any, R any](name, target, foreignKey string, ref func(*E) **R, opts ...Option) *Field {
	field := &Field{
		Name:       name,
		Kind:       KindRelation,
		Target:     target,
		ForeignKey: foreignKey,
		Attachable: true,
		get: func(entity any) any {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return nil
			}
			p := *ref(e)
			if p == nil {
				return nil
			}
			return p
		},
		set: func(entity any, value any) error {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return fmt.Errorf("relation %s: unexpected entity %T", name, entity)
			}
			if value == nil {
				*ref(e) = nil
				return nil
			}
			related, ok := value.(*R)
			if !ok {
				return fmt.Errorf("relation %s: expected %s, got %T", name, target, value)
			}
			*ref(e) = related
			return nil
		},
	}
	for _, opt := range opts {
		opt(field)
	}
	return field
}
