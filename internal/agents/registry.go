package agents

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/AngelCh415/leadsync/internal/models"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// Registry is the fixed agent roster, looked up by slug.
type Registry struct {
	profiles []models.AgentProfile
	bySlug   map[string]int
}

// NewRegistry loads the built-in roster.
func NewRegistry() (*Registry, error) {
	return ParseRegistry(defaultProfiles)
}

func ParseRegistry(data []byte) (*Registry, error) {
	var profiles []models.AgentProfile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse agent profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, errors.New("agent profiles: roster is empty")
	}

	r := &Registry{bySlug: make(map[string]int, len(profiles))}
	for _, p := range profiles {
		p.Slug = Slugify(p.Name)
		if p.Slug == "" {
			return nil, fmt.Errorf("agent profiles: %q has no usable name", p.Name)
		}
		if _, dup := r.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("agent profiles: duplicate slug %q", p.Slug)
		}
		for i, kw := range p.Keywords {
			p.Keywords[i] = strings.ToLower(kw)
		}
		r.bySlug[p.Slug] = len(r.profiles)
		r.profiles = append(r.profiles, p)
	}
	return r, nil
}

// All returns a copy of the roster in declaration order.
func (r *Registry) All() []models.AgentProfile {
	out := make([]models.AgentProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Lookup finds a profile by slug. The argument is slugified first, so names work too.
func (r *Registry) Lookup(name string) (models.AgentProfile, bool) {
	i, ok := r.bySlug[Slugify(name)]
	if !ok {
		return models.AgentProfile{}, false
	}
	return r.profiles[i], true
}

// BySlug matches slug exactly, without normalising it first.
func (r *Registry) BySlug(slug string) (models.AgentProfile, bool) {
	i, ok := r.bySlug[slug]
	if !ok {
		return models.AgentProfile{}, false
	}
	return r.profiles[i], true
}

// Default is the first profile of the roster.
func (r *Registry) Default() models.AgentProfile { return r.profiles[0] }

// Slugify lowercases s and collapses every run of non-alphanumerics into a
// single "-", trimming dashes at both ends.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
