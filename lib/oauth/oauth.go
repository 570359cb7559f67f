package oauth

import (
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("pathwise.lib.oauth")

var (
	ErrNotConfigured  = errors.New("oauth provider is not configured")
	ErrWrongRecipient = errors.New("wrong recipient, token audience does not match client id")
	ErrInvalidToken   = errors.New("invalid id token")
	ErrNoAccessToken  = errors.New("failed to get access token")
	ErrEmailRequired  = errors.New("email is required")
	// the provider api answered 404 for the exchanged token
	ErrInvalidCode = errors.New("invalid authorization code")
)

// Profile is the identity a provider vouches for.
type Profile struct {
	Provider  string
	ID        string
	Email     string
	FirstName string
	LastName  string
	Username  string
}

// configured rejects empty values and the `your_*_here` placeholders
// shipped in sample env files.
func configured(values ...string) bool {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return false
		}
		if strings.HasPrefix(v, "your_") && strings.HasSuffix(v, "_here") {
			return false
		}
	}
	return true
}
