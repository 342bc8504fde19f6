package policy

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/mzalewski/secadmin-api/internal/model"
)

// Violation identifies the single complexity rule a candidate password
// failed.
type Violation struct {
	Rule    string
	Message string
}

// Rule names, in check order.
const (
	RuleMinimumLength = "minimum_length"
	RuleDigit         = "digit"
	RuleUppercase     = "uppercase"
	RuleSpecial       = "special"
)

// Validate checks a candidate password against the policy's complexity
// rules. A disabled policy passes everything, including the empty string;
// password history and hash verification are not gated by that flag and are
// enforced elsewhere. Checks run in fixed order and stop at the first
// failure.
func Validate(password string, p *model.PasswordPolicy) *Violation {
	if !p.Enabled {
		return nil
	}

	if p.MinimumLength != nil && utf8.RuneCountInString(password) < *p.MinimumLength {
		return &Violation{
			Rule:    RuleMinimumLength,
			Message: fmt.Sprintf("password must be at least %d characters long", *p.MinimumLength),
		}
	}

	if p.RequireDigit && !containsFunc(password, unicode.IsDigit) {
		return &Violation{
			Rule:    RuleDigit,
			Message: "password must contain at least one digit",
		}
	}

	if p.RequireUppercase && !containsFunc(password, unicode.IsUpper) {
		return &Violation{
			Rule:    RuleUppercase,
			Message: "password must contain at least one uppercase letter",
		}
	}

	if p.RequireSpecial && !containsFunc(password, isSpecial) {
		return &Violation{
			Rule:    RuleSpecial,
			Message: "password must contain at least one special character (e.g. !, @, #)",
		}
	}

	return nil
}

func containsFunc(s string, f func(rune) bool) bool {
	for _, r := range s {
		if f(r) {
			return true
		}
	}
	return false
}

// isSpecial counts anything that is not a letter or digit, underscore
// included.
func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
