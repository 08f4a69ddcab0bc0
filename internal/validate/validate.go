// Package validate implements the lexical sanity checks and the read-only
// safety classifier applied to every query before it reaches the database.
// Both are deliberately heuristic: a guard, not a SQL parser.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Keywords that mark a query unsafe when they appear as a whole word anywhere
// in the text, including inside string literals. Over-rejection is the
// intended tradeoff.
var denyKeywords = []string{
	"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "INSERT",
	"UPDATE", "REPLACE", "EXEC", "EXECUTE", "GRANT", "REVOKE",
}

var allowedLeaders = []string{"SELECT", "WITH"}

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i);\s*(DROP|DELETE|INSERT|UPDATE)`),
	regexp.MustCompile(`(?i)UNION.*SELECT`),
	regexp.MustCompile(`(?i)EXEC\s*\(`),
	regexp.MustCompile(`(?i)xp_\w+`),
}

// Outcome is the result of the syntactic check.
type Outcome struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

// Report aggregates both gates for diagnostics. It never changes
// classification, only explains it.
type Report struct {
	IsSafe          bool     `json:"is_safe"`
	IsValid         bool     `json:"is_valid"`
	Issues          []string `json:"issues"`
	ValidationError string   `json:"validation_error,omitempty"`
}

// Validator evaluates a fixed sequence of compiled matchers. The zero value
// is not usable; construct with New.
type Validator struct {
	denyPatterns []*regexp.Regexp
}

func New() *Validator {
	patterns := make([]*regexp.Regexp, 0, len(denyKeywords))
	for _, keyword := range denyKeywords {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+keyword+`\b`))
	}
	return &Validator{denyPatterns: patterns}
}

// Validate runs fast lexical checks: non-empty, read-only leading token,
// balanced parentheses, even unescaped quote counts.
func (v *Validator) Validate(sql string) Outcome {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return Outcome{IsValid: false, Error: "query is empty"}
	}
	if !hasAllowedLeader(trimmed) {
		return Outcome{IsValid: false, Error: "query must start with SELECT or WITH"}
	}
	if strings.Count(trimmed, "(") != strings.Count(trimmed, ")") {
		return Outcome{IsValid: false, Error: "unbalanced parentheses"}
	}
	singles := strings.Count(trimmed, `'`) - strings.Count(trimmed, `\'`)
	doubles := strings.Count(trimmed, `"`) - strings.Count(trimmed, `\"`)
	if singles%2 != 0 || doubles%2 != 0 {
		return Outcome{IsValid: false, Error: "unbalanced quotes"}
	}
	return Outcome{IsValid: true}
}

// IsSafe reports whether the query is admissible for execution: no
// deny-listed keyword anywhere, no known injection pattern, and a read-only
// leading token.
func (v *Validator) IsSafe(sql string) bool {
	for _, pattern := range v.denyPatterns {
		if pattern.MatchString(sql) {
			return false
		}
	}
	if !hasAllowedLeader(strings.TrimSpace(sql)) {
		return false
	}
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(sql) {
			return false
		}
	}
	return true
}

// SafetyReport lists which deny patterns fired alongside the validation
// outcome.
func (v *Validator) SafetyReport(sql string) Report {
	safe := v.IsSafe(sql)
	outcome := v.Validate(sql)

	issues := make([]string, 0)
	if !safe {
		for i, pattern := range v.denyPatterns {
			if pattern.MatchString(sql) {
				issues = append(issues, fmt.Sprintf("contains dangerous keyword: %s", denyKeywords[i]))
			}
		}
		for _, pattern := range injectionPatterns {
			if pattern.MatchString(sql) {
				issues = append(issues, fmt.Sprintf("matches injection pattern: %s", pattern.String()))
			}
		}
	}

	return Report{
		IsSafe:          safe,
		IsValid:         outcome.IsValid,
		Issues:          issues,
		ValidationError: outcome.Error,
	}
}

func hasAllowedLeader(trimmed string) bool {
	upper := strings.ToUpper(trimmed)
	for _, leader := range allowedLeaders {
		if strings.HasPrefix(upper, leader) {
			return true
		}
	}
	return false
}
