package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	now := time.Now()

	testCases := map[string]struct {
		expiresOn time.Time
		skew      time.Duration
		expired   bool
	}{
		"not expired":               {now.Add(time.Hour), 0, false},
		"expired":                   {now.Add(-time.Minute), 0, true},
		"inside skew window":        {now.Add(30 * time.Second), time.Minute, true},
		"outside skew window":       {now.Add(2 * time.Minute), time.Minute, false},
		"zero expiry never expires": {time.Time{}, time.Minute, false},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			s := &SessionState{ExpiresOn: tc.expiresOn}
			assert.Equal(t, tc.expired, s.IsExpired(tc.skew))
		})
	}
}

func TestNearExpiry(t *testing.T) {
	now := time.Now()

	s := &SessionState{ExpiresOn: now.Add(10 * time.Minute)}
	assert.False(t, s.NearExpiry(5*time.Minute))
	assert.True(t, s.NearExpiry(15*time.Minute))
	assert.False(t, s.NearExpiry(0))

	none := &SessionState{}
	assert.False(t, none.NearExpiry(time.Hour))
}

func TestHasRole(t *testing.T) {
	s := &SessionState{Roles: []string{"Example Role", "viewer"}}

	assert.True(t, s.HasRole("Example Role"))
	assert.True(t, s.HasRole("viewer"))
	assert.False(t, s.HasRole("example role"))
	assert.False(t, s.HasRole("admin"))
}

func TestStringOmitsTokenMaterial(t *testing.T) {
	s := &SessionState{
		Subject:      "u1",
		Email:        "a@b.com",
		RefreshToken: "very-secret-refresh-token",
	}

	out := s.String()
	assert.Contains(t, out, "subject:u1")
	assert.Contains(t, out, "refresh_token:true")
	assert.NotContains(t, out, "very-secret-refresh-token")
}
