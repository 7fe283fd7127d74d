// Package sqlguard rejects string parameters that look like SQL injection
// payloads before they can reach a query. Every value still binds through
// pgx placeholders; this is a defense-in-depth backstop, not the primary
// protection. The policy is reject, never repair: a legitimate name,
// description, or enum value has no business containing these patterns.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mythic3011/AED-Api/pkg/e"
)

// literal fragments that terminate, comment out, or chain statements.
var literalMarkers = []string{
	"--",
	"/*",
	"*/",
	"';",
	"\";",
	";--",
}

var suspiciousPatterns = []*regexp.Regexp{
	// statement chaining: "; DROP", "; DELETE", ...
	regexp.MustCompile(`(?i);\s*(drop|delete|insert|update|alter|truncate|create|exec)\b`),
	// set-based exfiltration: UNION SELECT
	regexp.MustCompile(`(?i)\bunion\b[\s(]+(all[\s(]+)?select\b`),
	// boolean tautologies: OR 1=1, ' OR 'a'='a, 1=1 OR
	regexp.MustCompile(`(?i)\b(or|and)\b\s+'?[\w]+'?\s*=\s*'?[\w]+'?`),
	regexp.MustCompile(`(?i)'?[\w]+'?\s*=\s*'?[\w]+'?\s+\b(or|and)\b`),
	// quote followed by OR, the classic auth bypass
	regexp.MustCompile(`(?i)'\s*(or|and)\b`),
	// stacked procedure execution
	regexp.MustCompile(`(?i)\bexec(\s|\+)+(s|x)p\w+`),
}

// Check scans one named string parameter. On a match it returns
// e.ErrInjectionDetected; the value itself never ends up in the error.
func Check(name, value string) error {
	if value == "" {
		return nil
	}

	lower := strings.ToLower(value)
	for _, marker := range literalMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("parameter %q: %w", name, e.ErrInjectionDetected)
		}
	}
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(value) {
			return fmt.Errorf("parameter %q: %w", name, e.ErrInjectionDetected)
		}
	}

	return nil
}

// CheckAll scans every string parameter in the map. Non-string kinds are
// protected structurally by the validator and are not scanned here.
func CheckAll(params map[string]string) error {
	for name, value := range params {
		if err := Check(name, value); err != nil {
			return err
		}
	}
	return nil
}
