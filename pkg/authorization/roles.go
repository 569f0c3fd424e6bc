// Package authorization decides whether an authenticated session may reach
// the protected upstream: role checks, per-endpoint overrides, trusted
// network bypass and claim-to-header projection.
package authorization

// MissingRoles returns the required roles the session does not hold. Role
// comparison is exact and case sensitive, matching how the identity provider
// emits them.
func MissingRoles(required, held []string) []string {
	if len(required) == 0 {
		return nil
	}

	have := make(map[string]struct{}, len(held))
	for _, role := range held {
		have[role] = struct{}{}
	}

	var missing []string
	for _, role := range required {
		if _, ok := have[role]; !ok {
			missing = append(missing, role)
		}
	}
	return missing
}

// CheckRoles reports whether the held roles satisfy every required role.
func CheckRoles(required, held []string) bool {
	return len(MissingRoles(required, held)) == 0
}
