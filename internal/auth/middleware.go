package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/iskra-katalog/katalog/internal/platform/httpx"
	"github.com/iskra-katalog/katalog/internal/shared"
)

// RequireOperator redirects anonymous requests to the login page, keeping the
// requested path in the next parameter.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.OperatorFromContext(r.Context()) != "" {
			next.ServeHTTP(w, r)
			return
		}
		target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

// RequireOperatorAPI answers anonymous requests with 401 instead of a redirect.
func RequireOperatorAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.OperatorFromContext(r.Context()) == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "operator login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SafeNext returns next when it is a local path, otherwise fallback. It keeps
// login redirects on this host.
func SafeNext(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
