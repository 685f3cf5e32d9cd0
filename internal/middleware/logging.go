package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

// LogRequest traces incoming requests. Ping probes are skipped, the
// uptime monitor hits that route every few seconds and drowns out the
// interesting traffic.
func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ping" {
				log.Tracef("--> [%s] %s [ua: %s]", r.Method, r.URL.Path, r.Header.Get("User-Agent"))
			}
			next.ServeHTTP(w, r)
		})
	}
}
