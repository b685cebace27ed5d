package http

import (
	"net/http"
)

// =============================================================================
// AUTHENTICATION STRATEGIES
// =============================================================================

// AuthConfig represents credential injection for provider requests. A
// nil AuthConfig means unauthenticated access (GBIF).
type AuthConfig interface {
	Apply(req *http.Request)
}

// APIKeyQuery sends an API key as a query parameter. Pl@ntNet expects
// the credential as "api-key".
type APIKeyQuery struct {
	Key   string
	Param string // Query parameter name (default: api-key)
}

// Apply adds the API key to the request URL.
func (a APIKeyQuery) Apply(req *http.Request) {
	if a.Key == "" {
		return
	}
	param := a.Param
	if param == "" {
		param = "api-key"
	}
	query := req.URL.Query()
	query.Set(param, a.Key)
	req.URL.RawQuery = query.Encode()
}
