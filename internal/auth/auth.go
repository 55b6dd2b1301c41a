// Package auth provides bearer-token credentials for the warehouse backend.
package auth

import (
	"fmt"
	"os"
	"strings"
)

// TokenProvider yields the bearer token used to authenticate both the REST
// client and the event transport. Implementations must return an error
// rather than an empty token so callers can fail fast before dialing.
type TokenProvider interface {
	Token() (string, error)
}

// Credentials holds a resolved bearer token.
type Credentials struct {
	token string
}

// LoadCredentials resolves credentials from a literal token or a token file.
// A non-empty tokenFile takes precedence over the literal token.
func LoadCredentials(token, tokenFile string) (*Credentials, error) {
	if tokenFile != "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("read token file: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}

	if token == "" {
		return nil, fmt.Errorf("no auth token configured")
	}

	return &Credentials{token: token}, nil
}

// Static wraps a literal token, mainly for tests.
func Static(token string) *Credentials {
	return &Credentials{token: token}
}

// Token returns the bearer token.
func (c *Credentials) Token() (string, error) {
	if c == nil || c.token == "" {
		return "", fmt.Errorf("no auth token configured")
	}
	return c.token, nil
}
