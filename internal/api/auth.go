package api

import (
	"crypto/subtle"
	"net/http"

	"unitbook/internal/config"
)

// HTTPAuth проверяет API-ключ в заголовке запроса. При выключенной
// аутентификации пропускает все запросы.
type HTTPAuth struct {
	cfg config.APIAuthConfig
}

func NewHTTPAuth(cfg config.APIAuthConfig) *HTTPAuth {
	return &HTTPAuth{cfg: cfg}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		// /healthz остается открытым для проб.
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(a.cfg.HeaderAPIKey)
		if key == "" || !a.validKey(key) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) validKey(key string) bool {
	for _, known := range a.cfg.APIKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(known)) == 1 {
			return true
		}
	}
	return false
}
