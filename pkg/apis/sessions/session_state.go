package sessions

import (
	"fmt"
	"time"
)

// SessionState holds the information about the currently authenticated user
// that travels inside the signed session cookie. It is fully self-describing:
// no server side lookup is needed to evaluate it.
type SessionState struct {
	// Subject is the stable subject identifier asserted by the provider.
	Subject string

	// Email is the user's email claim, when present.
	Email string

	CreatedAt time.Time
	ExpiresOn time.Time

	// RefreshToken is the opaque provider refresh token, stored only when
	// token refreshing is enabled.
	RefreshToken string

	// Claims is the snapshot of identity claim values selected for header
	// projection, keyed by claim path and already stringified.
	Claims map[string]string

	// Roles the provider asserted for the user.
	Roles []string
}

// IsExpired checks whether the session has passed its expiry, treating a
// session within skew of expiry as already expired so that minor clock drift
// between gateway replicas never admits a stale session.
func (s *SessionState) IsExpired(skew time.Duration) bool {
	return !s.ExpiresOn.IsZero() && time.Now().Add(skew).After(s.ExpiresOn)
}

// NearExpiry checks whether the session is within lead of its expiry and
// should be refreshed. A zero lead disables early refreshing.
func (s *SessionState) NearExpiry(lead time.Duration) bool {
	if lead <= 0 || s.ExpiresOn.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresOn.Add(-lead))
}

// Age returns the age of the session.
func (s *SessionState) Age() time.Duration {
	if s.CreatedAt.IsZero() {
		return 0
	}
	return time.Now().Truncate(time.Second).Sub(s.CreatedAt)
}

// HasRole reports whether the session carries the named role. Matching is
// case-sensitive and exact.
func (s *SessionState) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// String constructs a summary of the session state suitable for logs. Token
// material is never included.
func (s *SessionState) String() string {
	o := fmt.Sprintf("Session{subject:%s email:%s", s.Subject, s.Email)
	if !s.CreatedAt.IsZero() {
		o += fmt.Sprintf(" created:%s", s.CreatedAt)
	}
	if !s.ExpiresOn.IsZero() {
		o += fmt.Sprintf(" expires:%s", s.ExpiresOn)
	}
	if s.RefreshToken != "" {
		o += " refresh_token:true"
	}
	if len(s.Roles) > 0 {
		o += fmt.Sprintf(" roles:%v", s.Roles)
	}
	return o + "}"
}
