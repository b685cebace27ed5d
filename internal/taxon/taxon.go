// Package taxon resolves free-text scientific names to identifiers of
// the local taxonomic referential (cd_nom), with an in-process cache, a
// local-database lookup and a remote-service fallback.
package taxon

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/basileandre056/api2gn/internal/connector/http"
	"github.com/basileandre056/api2gn/pkg/logging"
)

// DefaultRemoteURL is the public taxonomic referential lookup service.
const DefaultRemoteURL = "https://taxref.mnhn.fr/api"

// Referential is the local taxonomic store the resolver matches against.
type Referential interface {
	// FindCdNom returns the cd_nom whose name matches the given
	// normalized name case-insensitively, or nil when unknown.
	FindCdNom(ctx context.Context, name string) (*int64, error)

	// CdNomExists reports whether the identifier is present locally.
	CdNomExists(ctx context.Context, cdNom int64) (bool, error)
}

// Stats counts resolution outcomes for one resolver lifetime.
type Stats struct {
	CacheHits      int
	ResolvedLocal  int
	ResolvedRemote int
}

// Resolver resolves scientific names through cache, local referential
// and remote fallback, in that order. It is owned by a pipeline
// invocation; share one across runs only deliberately, and call Reset
// between unrelated runs if name reuse across providers is unwanted.
type Resolver struct {
	local  Referential
	remote *http.Client
	log    *logging.Logger

	cache map[string]*int64 // nil value = cached negative result
	stats Stats
}

type candidate struct {
	CdNom *int64 `json:"cd_nom"`
}

// NewResolver creates a resolver over the given local referential. The
// remote client may be nil to disable the fallback tier.
func NewResolver(local Referential, remote *http.Client, log *logging.Logger) *Resolver {
	if log == nil {
		log = logging.New("taxon", logging.InfoLevel)
	}
	return &Resolver{
		local:  local,
		remote: remote,
		log:    log,
		cache:  make(map[string]*int64),
	}
}

// NewRemoteClient builds the HTTP client for the remote referential
// service. The original service answers within a few seconds or not at
// all, hence the short timeout and single attempt.
func NewRemoteClient(baseURL string) *http.Client {
	cfg := http.DefaultClientConfig()
	if baseURL == "" {
		baseURL = DefaultRemoteURL
	}
	cfg.BaseURL = baseURL
	cfg.Timeout = 4 * time.Second
	cfg.Tries = 1
	return http.NewClient(cfg)
}

var qualifierRE = regexp.MustCompile(`(?i)\b(subsp\.|var\.|ssp\.|forma)\b.*`)

// Normalize strips rank qualifiers and authorship from a scientific name
// and reduces it to its first two tokens ("Genus species").
func Normalize(name string) string {
	if name == "" {
		return name
	}
	name = qualifierRE.ReplaceAllString(name, "")
	parts := strings.Fields(name)
	if len(parts) >= 2 {
		return parts[0] + " " + parts[1]
	}
	return strings.TrimSpace(name)
}

// Resolve maps a scientific name to a cd_nom, or nil when the name
// cannot be matched against the local referential. An unresolved name is
// not an error; failures of the remote tier degrade to nil.
func (r *Resolver) Resolve(ctx context.Context, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}

	if cached, ok := r.cache[name]; ok {
		r.stats.CacheHits++
		return cached, nil
	}

	cd, err := r.local.FindCdNom(ctx, Normalize(name))
	if err != nil {
		return nil, err
	}
	if cd != nil {
		r.cache[name] = cd
		r.stats.ResolvedLocal++
		return cd, nil
	}

	if cd := r.resolveRemote(ctx, name); cd != nil {
		exists, err := r.local.CdNomExists(ctx, *cd)
		if err != nil {
			return nil, err
		}
		// A remote match the local referential cannot join against is
		// useless downstream; treat it as unresolved.
		if exists {
			r.cache[name] = cd
			r.stats.ResolvedRemote++
			return cd, nil
		}
	}

	r.cache[name] = nil
	return nil, nil
}

// resolveRemote queries the remote referential with the unnormalized
// name and returns the first candidate, or nil on any failure.
func (r *Resolver) resolveRemote(ctx context.Context, name string) *int64 {
	if r.remote == nil {
		return nil
	}

	resp, err := r.remote.Get(ctx, "/taxa", url.Values{"q": []string{name}})
	if err != nil {
		r.log.Warn("remote taxon lookup failed", logging.Fields{"name": name, "error": err.Error()})
		return nil
	}

	var candidates []candidate
	if err := resp.JSON(&candidates); err != nil || len(candidates) == 0 {
		return nil
	}
	return candidates[0].CdNom
}

// Stats returns resolution counters accumulated so far.
func (r *Resolver) Stats() Stats {
	return r.stats
}

// Reset clears the cache and counters.
func (r *Resolver) Reset() {
	r.cache = make(map[string]*int64)
	r.stats = Stats{}
}
