package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const CookieName = "X-Report-Session"

// IdleTimeout is how long an unused view session survives in memory.
const IdleTimeout = 12 * time.Hour

func SessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
	}
}

// NewID returns a fresh view session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID rejects cookie values that could not have come from NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
