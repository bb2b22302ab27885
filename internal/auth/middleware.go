package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const adminIDKey ctxKey = "admin_id"

func AdminIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(adminIDKey).(uint64)
	return id, ok
}

func RequireAdmin(jwtSvc *JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := jwtSvc.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), adminIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
