package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/domain"
)

type contextKey string

const sessionKey contextKey = "session"

// Action is one of the four entitlement verbs a route can require.
type Action string

const (
	ActionCreate Action = "Create"
	ActionRead   Action = "Read"
	ActionUpdate Action = "Update"
	ActionDelete Action = "Delete"
)

// Wildcard grants every entitlement.
const Wildcard = "*"

// Session is the authenticated caller.
type Session struct {
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Entitlements []string
}

// Entitlement names the permission to perform action on entityType,
// for example "Payment.Read".
func Entitlement(entityType string, action Action) string {
	return entityType + "." + string(action)
}

// Allows reports whether the session holds the entitlement. "*" grants
// everything and "Payment.*" grants every action on Payment. Matching is
// case-insensitive.
func (s Session) Allows(entityType string, action Action) bool {
	want := Entitlement(entityType, action)
	entityWildcard := entityType + "." + Wildcard
	for _, e := range s.Entitlements {
		if e == Wildcard || strings.EqualFold(e, want) || strings.EqualFold(e, entityWildcard) {
			return true
		}
	}
	return false
}

// ContextWithSession returns a new context that carries the authenticated session.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext retrieves the authenticated session from the context, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionKey).(Session)
	if !ok || s.TenantID == uuid.Nil {
		return Session{}, false
	}
	return s, true
}

// Authorize checks that ctx carries a session entitled to action on entityType.
func Authorize(ctx context.Context, entityType string, action Action) (Session, error) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return Session{}, domain.NewError(domain.KindUnauthenticated, "", "tenant session is required")
	}
	if !s.Allows(entityType, action) {
		return Session{}, domain.NewError(domain.KindForbidden, "", "missing entitlement "+Entitlement(entityType, action))
	}
	return s, nil
}
