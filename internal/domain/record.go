package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/schema"
)

// Record holds the key, tenant and audit stamps every entity carries.
type Record struct {
	Id        uuid.UUID  `json:"Id"`
	TenantId  *uuid.UUID `json:"TenantId"`
	CreatedOn *time.Time `json:"CreatedOn"`
	CreatedBy *uuid.UUID `json:"CreatedBy"`
	UpdatedOn *time.Time `json:"UpdatedOn"`
	UpdatedBy *uuid.UUID `json:"UpdatedBy"`
}

// Audit field names shared by every entity type.
const (
	FieldID        = "Id"
	FieldTenantID  = "TenantId"
	FieldCreatedOn = "CreatedOn"
	FieldCreatedBy = "CreatedBy"
	FieldUpdatedOn = "UpdatedOn"
	FieldUpdatedBy = "UpdatedBy"
)

// declare wraps the entity-specific fields with the shared key, tenant and
// audit fields so every descriptor lists them in the same positions.
func declare[E any](name string, rec func(*E) *Record, fields ...*schema.Field) *schema.Descriptor {
	all := make([]*schema.Field, 0, len(fields)+6)
	all = append(all,
		schema.Identifier(FieldID, func(e *E) *uuid.UUID { return &rec(e).Id }),
		schema.UUID(FieldTenantID, func(e *E) **uuid.UUID { return &rec(e).TenantId }, schema.AsTenant()),
	)
	all = append(all, fields...)
	all = append(all,
		schema.DateTime(FieldCreatedOn, func(e *E) **time.Time { return &rec(e).CreatedOn }, schema.AsAudit()),
		schema.UUID(FieldCreatedBy, func(e *E) **uuid.UUID { return &rec(e).CreatedBy }, schema.AsAudit()),
		schema.DateTime(FieldUpdatedOn, func(e *E) **time.Time { return &rec(e).UpdatedOn }, schema.AsAudit()),
		schema.UUID(FieldUpdatedBy, func(e *E) **uuid.UUID { return &rec(e).UpdatedBy }, schema.AsAudit()),
	)
	return schema.New[E](name, all...)
}
