package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/domain"
)

// Authenticator extracts a session from an incoming request.
type Authenticator interface {
	Authenticate(r *http.Request) (Session, error)
}

// HeaderAuthenticator trusts tenant and user headers set by an upstream
// gateway. Such sessions carry every entitlement.
type HeaderAuthenticator struct {
	TenantHeader string
	UserHeader   string
}

func (a HeaderAuthenticator) Authenticate(r *http.Request) (Session, error) {
	raw := strings.TrimSpace(r.Header.Get(a.TenantHeader))
	if raw == "" {
		return Session{}, domain.NewError(domain.KindUnauthenticated, "", "missing "+a.TenantHeader+" header")
	}
	tenant, err := uuid.Parse(raw)
	if err != nil || tenant == uuid.Nil {
		return Session{}, domain.NewError(domain.KindUnauthenticated, "", "invalid "+a.TenantHeader+" header")
	}
	var user uuid.UUID
	if raw := strings.TrimSpace(r.Header.Get(a.UserHeader)); raw != "" {
		user, err = uuid.Parse(raw)
		if err != nil {
			return Session{}, domain.NewError(domain.KindUnauthenticated, "", "invalid "+a.UserHeader+" header")
		}
	}
	return Session{TenantID: tenant, UserID: user, Entitlements: []string{Wildcard}}, nil
}

// JWTAuthenticator validates HS256 bearer tokens.
type JWTAuthenticator struct {
	Secret []byte
}

func (a JWTAuthenticator) Authenticate(r *http.Request) (Session, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return Session{}, domain.NewError(domain.KindUnauthenticated, "", "missing bearer token")
	}
	claims, err := ValidateToken(strings.TrimSpace(token), a.Secret)
	if err != nil {
		return Session{}, &domain.Error{Kind: domain.KindUnauthenticated, Reason: "invalid token", Err: err}
	}
	s, err := claims.Session()
	if err != nil {
		return Session{}, &domain.Error{Kind: domain.KindUnauthenticated, Reason: err.Error(), Err: err}
	}
	return s, nil
}

// Middleware authenticates every request. Failures are handed to onError,
// which owns the response format.
func Middleware(a Authenticator, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := a.Authenticate(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), s)))
		})
	}
}
