package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dyluth/cantas/pkg/board"
)

// DefaultCookieName is the cookie carrying the session token.
const DefaultCookieName = "oid"

// UserLoader loads a user document by identifier.
type UserLoader interface {
	Get(ctx context.Context, typeName, id string) (*board.Document, error)
}

// Authenticator resolves the user behind a request from its session token.
// The token is read from the session cookie, the "token" query parameter or
// a bearer Authorization header, in that order.
type Authenticator struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	users      UserLoader
	userType   string
}

// NewAuthenticator creates an authenticator verifying tokens signed with secret
// and loading users of userType through users.
func NewAuthenticator(secret []byte, cookieName string, ttl time.Duration, users UserLoader, userType string) *Authenticator {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Authenticator{secret: secret, cookieName: cookieName, ttl: ttl, users: users, userType: userType}
}

// CookieName returns the name of the session cookie.
func (a *Authenticator) CookieName() string {
	return a.cookieName
}

// Issue signs a session token for userID.
func (a *Authenticator) Issue(userID string) (string, error) {
	return GenerateToken(userID, a.secret, a.ttl)
}

// Authenticate returns the user identified by the request's session token.
// Every failure wraps board.ErrUnauthorized.
func (a *Authenticator) Authenticate(r *http.Request) (*board.Document, error) {
	token := tokenFromRequest(r, a.cookieName)
	if token == "" {
		return nil, fmt.Errorf("missing session token: %w", board.ErrUnauthorized)
	}

	userID, err := GetUserIDFromToken(token, a.secret)
	if err != nil {
		return nil, err
	}

	user, err := a.users.Get(r.Context(), a.userType, userID)
	if err != nil {
		if board.IsNotFound(err) {
			return nil, fmt.Errorf("unknown user %q: %w", userID, board.ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

type userKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *board.Document) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user stored by WithUser.
func UserFromContext(ctx context.Context) (*board.Document, bool) {
	u, ok := ctx.Value(userKey{}).(*board.Document)
	return u, ok && u != nil
}

// Middleware rejects unauthenticated requests with 401 and stores the user in
// the request context of authenticated ones.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Authenticate(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
