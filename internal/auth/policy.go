package auth

import (
	"net/http"
	"strings"
)

// Policy determines required access levels by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredLevel resolves the required access level for the request.
// Every device operation, including the latest-metric query, is reserved
// for the technical tier; sites and subscriptions are open to viewers.
func (p Policy) RequiredLevel(r *http.Request) (AccessLevel, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path

	switch {
	case path == "/devices" || strings.HasPrefix(path, "/devices/"):
		return LevelTechnical, true
	case path == "/sites" || strings.HasPrefix(path, "/sites/"):
		return LevelViewer, true
	case path == "/subscriptions" || strings.HasPrefix(path, "/subscriptions/"):
		return LevelViewer, true
	}
	return "", false
}
