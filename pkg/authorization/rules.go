package authorization

import (
	"fmt"
	"net"
	"regexp"
	"sort"
	"strings"

	"github.com/authgate/authgate/pkg/apis/options"
)

// Rules resolves per-endpoint overrides. Each customization pairs a filter
// on the original request's host and path with extra requirements; every
// matching customization contributes to the effective config.
type Rules struct {
	entries []rule
}

type rule struct {
	hostname   string
	hostnameRe *regexp.Regexp
	path       string
	pathPrefix string
	pathRe     *regexp.Regexp
	config     options.EndpointConfig
}

// NewRules compiles the configured customizations.
func NewRules(customizations []options.Customization) (*Rules, error) {
	r := &Rules{}
	for i, c := range customizations {
		entry := rule{
			hostname:   c.Filter.Hostname,
			path:       c.Filter.Path,
			pathPrefix: c.Filter.PathPrefix,
			config:     c.Config,
		}

		var err error
		if c.Filter.HostnameRegex != "" {
			if entry.hostnameRe, err = regexp.Compile(c.Filter.HostnameRegex); err != nil {
				return nil, fmt.Errorf("customization %d has an invalid hostname_regex: %w", i, err)
			}
		}
		if c.Filter.PathRegex != "" {
			if entry.pathRe, err = regexp.Compile(c.Filter.PathRegex); err != nil {
				return nil, fmt.Errorf("customization %d has an invalid path_regex: %w", i, err)
			}
		}

		r.entries = append(r.entries, entry)
	}
	return r, nil
}

// Resolve folds every customization matching the original request into the
// effective endpoint config: matching rules append their required roles to
// the global list (the result is deduplicated and sorted), and bypass holds
// as soon as any matching rule sets it. host may carry a port, which is
// ignored.
func (r *Rules) Resolve(host, path string, globalRoles []string) (requiredRoles []string, bypass bool) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	roles := append([]string(nil), globalRoles...)
	for i := range r.entries {
		if !r.entries[i].matches(host, path) {
			continue
		}
		roles = append(roles, r.entries[i].config.RequiredRoles...)
		if r.entries[i].config.Bypass {
			bypass = true
		}
	}
	return normalizeRoles(roles), bypass
}

// normalizeRoles sorts the role list and drops duplicates in place.
func normalizeRoles(roles []string) []string {
	sort.Strings(roles)
	out := roles[:0]
	for _, role := range roles {
		if len(out) == 0 || out[len(out)-1] != role {
			out = append(out, role)
		}
	}
	return out
}

// matches requires every set criterion to hold. A filter with no criteria
// matches everything.
func (e *rule) matches(host, path string) bool {
	if e.hostname != "" && e.hostname != host {
		return false
	}
	if e.hostnameRe != nil && !e.hostnameRe.MatchString(host) {
		return false
	}
	if e.path != "" && e.path != path {
		return false
	}
	if e.pathPrefix != "" && !strings.HasPrefix(path, e.pathPrefix) {
		return false
	}
	if e.pathRe != nil && !e.pathRe.MatchString(path) {
		return false
	}
	return true
}
