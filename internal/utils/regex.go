package utils

import (
	"fmt"
	"regexp"
	"strings"
)

func CompileUserPattern(user string) (*regexp.Regexp, error) {
	if looksLikeRegex(user) {
		return regexp.Compile(user)
	}
	// plain string => case-insensitive literal
	return regexp.Compile("(?i)" + regexp.QuoteMeta(user))
}

// CompileUserPatterns compiles every pattern, naming the first one that fails.
func CompileUserPatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, patternText := range patterns {
		re, err := CompileUserPattern(patternText)
		if err != nil {
			return nil, &PatternError{Pattern: patternText, Err: err}
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

func looksLikeRegex(s string) bool {
	if strings.HasPrefix(s, "(?") {
		return true
	}
	if strings.ContainsAny(s, `[]()|+\^$\\`) {
		return true
	}
	if strings.Contains(s, "?=") || strings.Contains(s, "?<=") || strings.Contains(s, "?!") {
		return true
	}
	return false
}

func ToLowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func StringsJoinComma(items []string) string {
	return strings.Join(items, ",")
}
