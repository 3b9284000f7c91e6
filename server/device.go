package server

import (
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// deviceScope returns the credential scope of the requesting browser. The scope is a digest
// of the device cookie, so cookie values never appear in storage keys.
func (s *Server) deviceScope(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.config.GetDeviceCookieName())
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return "", false
	}
	return scopeFor(id), true
}

// ensureDevice returns the device scope, issuing a new device cookie when the request has
// none.
func (s *Server) ensureDevice(w http.ResponseWriter, r *http.Request) string {
	if scope, ok := s.deviceScope(r); ok {
		return scope
	}

	id := uuid.New()
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetDeviceCookieName(),
		Value:    id.String(),
		Path:     "/",
		MaxAge:   int(s.config.GetDeviceCookieMaxAge().Seconds()),
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
	return scopeFor(id)
}

func scopeFor(id uuid.UUID) string {
	sum := blake2b.Sum256(id[:])
	return hex.EncodeToString(sum[:])
}
