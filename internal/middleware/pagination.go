package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/microblog/internal/repository"
	"github.com/sakif/microblog/internal/service"
)

// defaultLimit is the page size used when the client sends none (or garbage).
const defaultLimit = 5

// contextKey is a private type so our context values can't collide with
// other packages'.
type contextKey string

const pageKey contextKey = "page"

// Pagination normalizes the `maxDate` and `limit` query parameters into a
// repository.Page and stores it on the request context.
//
// Normalization never rejects: a limit that isn't a positive integer falls
// back to the default, and a maxDate that doesn't parse falls back to "now".
// Handlers downstream read the result with PageFromContext.
func Pagination(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := repository.Page{
			MaxDate: time.Now(),
			Limit:   defaultLimit,
		}

		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				page.Limit = n
			}
		}
		if raw := r.URL.Query().Get("maxDate"); raw != "" {
			if d, ok := service.ParseDate(raw); ok {
				page.MaxDate = d
			}
		}

		ctx := context.WithValue(r.Context(), pageKey, page)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PageFromContext returns the normalized page stored by Pagination. Routes
// not wrapped in the middleware get the same defaults a parameterless
// request would.
func PageFromContext(ctx context.Context) repository.Page {
	if page, ok := ctx.Value(pageKey).(repository.Page); ok {
		return page
	}
	return repository.Page{MaxDate: time.Now(), Limit: defaultLimit}
}
