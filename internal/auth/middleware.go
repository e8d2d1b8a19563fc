package auth

import (
	"net/http"

	"github.com/go-chi/render"
)

type errResponse struct {
	Error string `json:"error"`
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, errResponse{Error: msg})
}

// Middleware authenticates every request with a Bearer JWT and stores the
// resulting Principal in the request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := ParseFromHeader(r, secret)
			if err != nil {
				unauthorized(w, r, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin rejects requests whose principal is not an admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok || p.Kind != "admin" {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, errResponse{Error: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
