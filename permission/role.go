package permission

import "strings"

// RolePrefix is the convention marker some identity services put in front of role names.
const RolePrefix = "ROLE_"

// HasRole reports whether any authority equals role or RolePrefix+role. An empty role or
// an empty authority list never matches.
func HasRole[S ~string](authorities []S, role string) bool {
	if role == "" || len(authorities) == 0 {
		return false
	}

	prefixed := RolePrefix + role
	for _, a := range authorities {
		s := string(a)
		if s == role || s == prefixed {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether HasRole holds for at least one of roles.
func HasAnyRole[S ~string](authorities []S, roles ...string) bool {
	for _, r := range roles {
		if HasRole(authorities, r) {
			return true
		}
	}
	return false
}

// Normalize strips a single leading RolePrefix, for display.
func Normalize(authority string) string {
	return strings.TrimPrefix(authority, RolePrefix)
}

// Roles returns the display names of authorities, de-duplicated in first-seen order.
func Roles[S ~string](authorities []S) []string {
	if len(authorities) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(authorities))
	out := make([]string, 0, len(authorities))
	for _, a := range authorities {
		n := Normalize(string(a))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
