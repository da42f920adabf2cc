package admission

import (
	"net/url"
	"regexp"
)

type shieldRule struct {
	name string
	re   *regexp.Regexp
}

var shieldRules = []shieldRule{
	{"sql-injection", regexp.MustCompile(`(?i)(\bunion\b.+\bselect\b|'\s*or\s+'?\w+'?\s*=\s*'?\w+|;\s*(drop|delete|insert|update)\s+|\bsleep\s*\(\s*\d+\s*\)|\bbenchmark\s*\(|\bwaitfor\s+delay\b|/\*.*\*/)`)},
	{"path-traversal", regexp.MustCompile(`(\.\./|\.\.\\)`)},
	{"xss", regexp.MustCompile(`(?i)(<\s*script\b|javascript\s*:|\bon(error|load|mouseover|focus)\s*=|<\s*iframe\b|<\s*svg\b)`)},
	{"command-injection", regexp.MustCompile(`(?i)((;|\|\||&&)\s*(cat|ls|id|whoami|uname|wget|curl|sh|bash|nc)\b|\$\(|\x60)`)},
	{"sensitive-file", regexp.MustCompile(`(?i)(/etc/(passwd|shadow)|/proc/self/|/\.env\b|/\.git/|wp-login\.php|/wp-admin\b|phpmyadmin|\.htaccess)`)},
}

// Shield matches request targets against known attack signatures.
type Shield struct {
	rules []shieldRule
}

func NewShield() *Shield {
	return &Shield{rules: shieldRules}
}

// Inspect checks the path and query in raw, once-decoded and twice-decoded
// form and returns the first rule that matches.
func (s *Shield) Inspect(path string, rawQuery string) (string, bool) {
	for _, candidate := range decodings(path + "?" + rawQuery) {
		for _, rule := range s.rules {
			if rule.re.MatchString(candidate) {
				return rule.name, true
			}
		}
	}
	return "", false
}

func decodings(target string) []string {
	out := []string{target}
	current := target
	for i := 0; i < 2; i++ {
		decoded, err := url.QueryUnescape(current)
		if err != nil || decoded == current {
			break
		}
		out = append(out, decoded)
		current = decoded
	}
	return out
}
