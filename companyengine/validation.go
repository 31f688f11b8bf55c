package companyengine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLength       = 100
	maxExpressionLength = 4096
)

// ValidateRule checks a review rule's name and expression before it is
// compiled. Whether the expression references only known fact objects is
// decided by compilation.
func ValidateRule(name, expression string) error {
	if err := validateName("rule name", name); err != nil {
		return err
	}

	if strings.TrimSpace(expression) == "" {
		return fmt.Errorf("rule expression cannot be empty")
	}
	if n := utf8.RuneCountInString(expression); n > maxExpressionLength {
		return fmt.Errorf("rule expression length %d exceeds maximum of %d characters", n, maxExpressionLength)
	}

	return nil
}

// ValidateCompanyName checks a company name
func ValidateCompanyName(name string) error {
	return validateName("company name", name)
}

func validateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%s has leading or trailing whitespace: %q", kind, name)
	}
	if n := utf8.RuneCountInString(name); n > maxNameLength {
		return fmt.Errorf("%s length %d exceeds maximum of %d characters", kind, n, maxNameLength)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%s contains control characters: %q", kind, name)
		}
	}
	return nil
}
