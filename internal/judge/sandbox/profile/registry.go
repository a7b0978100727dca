package profile

import (
	"sort"
	"strings"

	"codejudge/internal/judge/sandbox/security"
	appErr "codejudge/pkg/errors"
)

// Registry resolves language tags to specs.
type Registry struct {
	languages map[string]LanguageSpec
	tags      map[string]string
}

// NewRegistry creates a registry from config lists. Later entries with the
// same id replace earlier ones.
func NewRegistry(languages []LanguageSpec) *Registry {
	r := &Registry{
		languages: make(map[string]LanguageSpec),
		tags:      make(map[string]string),
	}
	for _, lang := range languages {
		id := normalizeTag(lang.ID)
		if id == "" {
			continue
		}
		lang.ID = id
		if lang.Strategy == "" {
			lang.Strategy = StrategyProcess
		}
		r.languages[id] = lang
		r.tags[id] = id
		for _, alias := range lang.Aliases {
			if a := normalizeTag(alias); a != "" {
				r.tags[a] = id
			}
		}
	}
	return r
}

// Lookup returns the spec for a language tag or alias.
func (r *Registry) Lookup(tag string) (LanguageSpec, error) {
	if id, ok := r.tags[normalizeTag(tag)]; ok {
		return r.languages[id], nil
	}
	return LanguageSpec{}, appErr.Newf(appErr.LanguageNotSupported, "Execution for language '%s' is not supported.", tag)
}

// Languages lists the registered specs ordered by id.
func (r *Registry) Languages() []LanguageSpec {
	out := make([]LanguageSpec, 0, len(r.languages))
	for _, lang := range r.languages {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve maps a profile name (a language id) to isolation settings.
func (r *Registry) Resolve(profileName string) (security.IsolationProfile, error) {
	if profileName == "" {
		return security.IsolationProfile{}, appErr.ValidationError("profile", "required")
	}
	lang, ok := r.languages[normalizeTag(profileName)]
	if !ok {
		return security.IsolationProfile{}, appErr.New(appErr.NotFound).WithMessage("profile not found")
	}
	return lang.Isolation(), nil
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
