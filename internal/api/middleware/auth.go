package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/auth"
	"github.com/reelwork/marketplace/internal/session"
	"github.com/reelwork/marketplace/pkg/logger"
)

const (
	MethodBearer  = "bearer"
	MethodSession = "session"
)

// Principal is the authenticated caller. It is only ever set by
// Authenticate, never read from client headers.
type Principal struct {
	UserID uuid.UUID
	Method string
	// SessionID is set when Method is MethodSession.
	SessionID string
}

type principalKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller, if the request was authenticated.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != uuid.Nil
}

// Authenticator resolves a Principal from a bearer token or a session cookie.
type Authenticator struct {
	tokens     *auth.TokenIssuer
	sessions   session.Store
	cookieName string
}

func NewAuthenticator(tokens *auth.TokenIssuer, sessions session.Store, cookieName string) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, cookieName: cookieName}
}

// Authenticate attaches the Principal when the request carries valid
// credentials. A bearer header takes precedence over the cookie. Requests
// without valid credentials continue anonymously.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := a.resolve(r); ok {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) resolve(r *http.Request) (Principal, bool) {
	ctx := r.Context()
	if ah := r.Header.Get("Authorization"); ah != "" {
		scheme, tok, found := strings.Cut(ah, " ")
		if !found || !strings.EqualFold(scheme, "bearer") {
			return Principal{}, false
		}
		uid, err := a.tokens.Parse(strings.TrimSpace(tok))
		if err != nil {
			logger.Ctx(ctx).Debug("bearer token rejected", zap.Error(err))
			return Principal{}, false
		}
		return Principal{UserID: uid, Method: MethodBearer}, true
	}

	c, err := r.Cookie(a.cookieName)
	if err != nil || c.Value == "" {
		return Principal{}, false
	}
	s, err := a.sessions.Get(ctx, c.Value)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			logger.Ctx(ctx).Warn("session lookup failed", zap.Error(err))
		}
		return Principal{}, false
	}
	return Principal{UserID: s.UserID, Method: MethodSession, SessionID: c.Value}, true
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
