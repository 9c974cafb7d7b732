package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/ptetdev/ptet/internal/domain/user"
)

type principalKey struct{}

// principal is the authenticated caller attached to the request context.
type principal struct {
	user  *user.User
	write bool
}

func principalFrom(ctx context.Context) (*principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*principal)
	return p, ok
}

// authenticate verifies the bearer token and resolves (or creates) the
// user behind its identity. A missing or malformed header is a client
// error, a failing token is an authorization error.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			h.writeError(w, r, http.StatusBadRequest, "missing bearer token")
			return
		}

		claims, _, err := h.verifier.Verify(raw)
		if err != nil {
			h.writeError(w, r, http.StatusUnauthorized, "token rejected")
			return
		}
		if claims.Issuer == "" || claims.Subject == "" {
			h.writeError(w, r, http.StatusBadRequest, "token carries no identity")
			return
		}

		u, err := h.users.FindOrCreate(r.Context(), claims.Issuer, claims.Subject)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, &principal{
			user:  u,
			write: claims.Write,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireWrite gates mutating routes on the write claim.
func (h *Handler) requireWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok || !p.write {
			h.writeError(w, r, http.StatusUnauthorized, "write access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// caller returns the authenticated principal. The authenticate
// middleware guarantees its presence on routed requests.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*principal, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	return p, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
