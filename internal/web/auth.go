package web

import (
	"errors"
	"net/http"
	"strings"

	"notelink/internal/auth"
)

// Auth guards the API with bearer API keys. A nil *Auth lets every request
// through.
type Auth struct {
	keys *auth.Keyring
}

func newAuth(path string) (*Auth, error) {
	keys, err := auth.LoadAPIKeys(path)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return &Auth{keys: auth.NewKeyring(keys)}, nil
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="notelink"`)
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
		alias, err := a.keys.Authenticate(token)
		if err != nil {
			msg := "unauthorized"
			if errors.Is(err, auth.ErrExpiredKey) {
				msg = "api key expired"
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="notelink", error="invalid_token"`)
			writeJSON(w, http.StatusUnauthorized, errorBody(msg))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), Caller{Alias: alias})))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
