package auth

import (
	"context"
	"fmt"
	"net/http"
)

// TokenHeader is the request header the client sends its JWT in. The
// original API used a custom header rather than Authorization: Bearer, and
// existing clients depend on it.
const TokenHeader = "x-auth-token"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue keys are compared by type AND value. With a plain string
// key like "identity", any package that knows the string could read or shadow
// the value. A package-private type makes collisions impossible: only this
// package can construct a contextKey.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth enforces authentication on protected routes.
//
// It reads the JWT from the x-auth-token header, validates it, and stores the
// caller's Identity in the request context. Missing or invalid tokens stop
// the chain with 401 Unauthorized.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(TokenHeader)
			if raw == "" {
				denyJSON(w, "Access denied. No token provided.")
				return
			}

			id, err := tokens.Validate(raw)
			if err != nil {
				denyJSON(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

// denyJSON writes a 401 in the same envelope the handlers use for their
// errors; http.Error would force text/plain.
func denyJSON(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":"unauthorized","message":%q}`, message)
}

// ContextWithIdentity stores the authenticated caller in the context.
// RequireAuth calls this on every request it admits; tests use it to build
// pre-authenticated requests without minting a token.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated caller from the request
// context.
//
// Returns (Identity{}, false) if the request is anonymous — only possible on
// routes that don't use RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.ID != ""
}
