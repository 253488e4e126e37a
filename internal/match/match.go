// Package match pairs attachment references found in a transcript with archive entry names.
//
// Exports carry no shared key between the two, so matching is a heuristic: candidates are scanned
// in archive order and the first one satisfying any rule of the policy wins.
package match

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FileAttachedMarker is the phrase an export appends to a shared file's name.
const FileAttachedMarker = "(file attached)"

// Rule decides whether a candidate entry name satisfies a transcript reference.
type Rule interface {
	Name() string
	Matches(reference, candidate string) bool
}

// Policy is an ordered list of rules. For a single candidate, earlier rules are reported first.
type Policy []Rule

// DefaultPolicy is exact name, then containment, then the relaxed opus/webp comparison.
var DefaultPolicy = Policy{ExactRule{}, ContainsRule{}, RelaxedExtensionRule{Extensions: []string{".opus", ".webp"}}}

// Match is a resolved candidate and the rule that selected it.
type Match struct {
	Name string
	Rule string
}

// Resolve returns the best candidate for reference, or false when no rule matches any candidate.
func (p Policy) Resolve(reference string, candidates []string) (Match, bool) {
	normalizedReference := normalize(reference)
	if normalizedReference == "" {
		return Match{}, false
	}
	normalizedCandidates := make([]string, len(candidates))
	for index, candidate := range candidates {
		normalizedCandidates[index] = normalize(candidate)
	}
	for index, candidate := range normalizedCandidates {
		if candidate == "" {
			continue
		}
		for _, rule := range p {
			if rule.Matches(normalizedReference, candidate) {
				return Match{Name: candidates[index], Rule: rule.Name()}, true
			}
		}
	}
	return Match{}, false
}

// ResolveAll resolves every reference independently against the same candidates.
func (p Policy) ResolveAll(references []string, candidates []string) map[string]string {
	resolved := make(map[string]string, len(references))
	for _, reference := range references {
		if found, ok := p.Resolve(reference, candidates); ok {
			resolved[reference] = found.Name
		}
	}
	return resolved
}

// ExactRule matches when the names are equal ignoring case, against the full path or its base name.
type ExactRule struct{}

func (ExactRule) Name() string { return "exact" }

func (ExactRule) Matches(reference, candidate string) bool {
	return reference == candidate || reference == path.Base(candidate)
}

// ContainsRule matches when either name contains the other.
type ContainsRule struct{}

func (ContainsRule) Name() string { return "contains" }

func (ContainsRule) Matches(reference, candidate string) bool {
	return strings.Contains(candidate, reference) || strings.Contains(reference, candidate)
}

// RelaxedExtensionRule compares stems when the reference names one of Extensions.
// Voice notes and stickers are sometimes stored under a different container extension.
type RelaxedExtensionRule struct {
	Extensions []string
}

func (RelaxedExtensionRule) Name() string { return "relaxed-extension" }

func (r RelaxedExtensionRule) Matches(reference, candidate string) bool {
	for _, ext := range r.Extensions {
		if !strings.Contains(reference, ext) {
			continue
		}
		referenceStem := strings.TrimSpace(strings.ReplaceAll(reference, FileAttachedMarker, ""))
		referenceStem = strings.TrimSpace(strings.ReplaceAll(referenceStem, ext, ""))
		base := path.Base(candidate)
		candidateStem := strings.TrimSpace(strings.TrimSuffix(base, path.Ext(base)))
		if referenceStem != "" && referenceStem == candidateStem {
			return true
		}
	}
	return false
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}
