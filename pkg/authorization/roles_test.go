package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingRoles(t *testing.T) {
	testCases := map[string]struct {
		required []string
		held     []string
		missing  []string
	}{
		"no requirements": {
			required: nil,
			held:     []string{"viewer"},
			missing:  nil,
		},
		"all present": {
			required: []string{"Example Role", "viewer"},
			held:     []string{"viewer", "Example Role", "offline_access"},
			missing:  nil,
		},
		"one missing": {
			required: []string{"Example Role", "admin"},
			held:     []string{"Example Role"},
			missing:  []string{"admin"},
		},
		"all missing with no roles held": {
			required: []string{"admin"},
			held:     nil,
			missing:  []string{"admin"},
		},
		"case sensitive": {
			required: []string{"Admin"},
			held:     []string{"admin"},
			missing:  []string{"Admin"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.missing, MissingRoles(tc.required, tc.held))
			assert.Equal(t, tc.missing == nil, CheckRoles(tc.required, tc.held))
		})
	}
}
